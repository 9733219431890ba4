package manifest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := Manifest{
		RunID:        "run-1",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SourceFile:   "lobby.ifc",
		CellSize:     0.5,
		BufferRadius: 2,
		Floors:       3,
		Spaces: []SpaceSummary{
			{SpaceID: "s1", SpaceName: "Lobby", Distance: 12.5, HasRoute: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, m))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, m.SourceFile, got.SourceFile)
	assert.Equal(t, m.CellSize, got.CellSize)
	require.Len(t, got.Spaces, 1)
	assert.Equal(t, "Lobby", got.Spaces[0].SpaceName)
}

func TestDecodeInvalidYAML(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("not: valid: yaml: [["))
	assert.Error(t, err)
}
