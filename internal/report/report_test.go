package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress/internal/manifest"
)

func TestBuildContentDescriptionIncludesSpacesAndViolations(t *testing.T) {
	m := manifest.Manifest{
		RunID:      "run-1",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		SourceFile: "lobby.ifc",
		CellSize:   0.5,
		Spaces: []manifest.SpaceSummary{
			{SpaceName: "Lobby", Floor: 0, Distance: 22.5, HasRoute: true, Violations: []string{"distance exceeds daytime limit"}},
		},
	}

	raw, err := buildContentDescription(m)
	require.NoError(t, err)

	var desc pdfDescription
	require.NoError(t, json.Unmarshal(raw, &desc))
	require.Len(t, desc.Pages, 1)

	var found, foundViolation bool
	for _, box := range desc.Pages[0].Content {
		if box.Value == "Lobby (floor 0): distance=22.5m, to-stair=0.0m, route=true" {
			found = true
		}
		if box.Value == "  - distance exceeds daytime limit" {
			foundViolation = true
		}
	}
	assert.True(t, found, "expected space summary line in content")
	assert.True(t, foundViolation, "expected violation line in content")
}

func TestBuildContentDescriptionEmptyManifest(t *testing.T) {
	raw, err := buildContentDescription(manifest.Manifest{})
	require.NoError(t, err)

	var desc pdfDescription
	require.NoError(t, json.Unmarshal(raw, &desc))
	assert.GreaterOrEqual(t, len(desc.Pages[0].Content), 4)
}
