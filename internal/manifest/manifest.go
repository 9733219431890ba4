// Package manifest reads and writes a run manifest: the parameters and
// summary outcome of one process_file run, serialized as YAML so it can
// be checked into version control alongside the source building file
// (spec.md section 12).
package manifest

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v2"
)

// Manifest records everything needed to reproduce and audit one run.
type Manifest struct {
	RunID        string    `yaml:"run_id"`
	CreatedAt    time.Time `yaml:"created_at"`
	SourceFile   string    `yaml:"source_file"`
	CellSize     float64   `yaml:"cell_size"`
	BufferRadius int       `yaml:"buffer_radius"`
	AllowDiagonal bool     `yaml:"allow_diagonal"`
	MinimizeCost bool      `yaml:"minimize_cost"`

	Floors           int      `yaml:"floors"`
	Rescaled         bool     `yaml:"rescaled"`
	GeometryFailures []string `yaml:"geometry_failures,omitempty"`

	Spaces []SpaceSummary `yaml:"spaces,omitempty"`
}

// SpaceSummary is one space's worst-case egress outcome within the run.
type SpaceSummary struct {
	SpaceID         string   `yaml:"space_id"`
	SpaceName       string   `yaml:"space_name"`
	Floor           int      `yaml:"floor"`
	Distance        float64  `yaml:"distance"`
	DistanceToStair float64  `yaml:"distance_to_stair"`
	HasRoute        bool     `yaml:"has_route"`
	Violations      []string `yaml:"violations,omitempty"`
}

// Encode writes m as YAML to w.
func Encode(w io.Writer, m Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("manifest: write: %w", err)
	}
	return nil
}

// Decode reads a YAML manifest from r.
func Decode(r io.Reader) (Manifest, error) {
	var m Manifest
	data, err := io.ReadAll(r)
	if err != nil {
		return m, fmt.Errorf("manifest: read: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	return m, nil
}
