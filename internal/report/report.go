// Package report renders a run's egress analysis as a PDF summary
// (spec.md section 12) using github.com/pdfcpu/pdfcpu's content-JSON
// "create" pipeline, kept out of the core engine's import graph so the
// CLI/API can omit it on headless, report-free installs.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"egress/internal/manifest"
)

// Render writes a one-page PDF summarizing m to outPath: source file,
// run parameters, and one text line per space with its worst-case
// distance and distance to stair, followed by a line per violation.
func Render(m manifest.Manifest, outPath string) error {
	descJSON, err := buildContentDescription(m)
	if err != nil {
		return fmt.Errorf("report: build content description: %w", err)
	}

	descFile, err := os.CreateTemp("", "egress-report-*.json")
	if err != nil {
		return fmt.Errorf("report: create temp description: %w", err)
	}
	defer os.Remove(descFile.Name())
	defer descFile.Close()

	if _, err := descFile.Write(descJSON); err != nil {
		return fmt.Errorf("report: write temp description: %w", err)
	}
	if err := descFile.Close(); err != nil {
		return fmt.Errorf("report: close temp description: %w", err)
	}

	if err := api.CreatePDFFile(descFile.Name(), outPath, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("report: create pdf: %w", err)
	}
	return nil
}

// pdfPage mirrors pdfcpu's content-description JSON shape for one page:
// a page number plus an ordered list of text content blocks (the page
// size is set once on pdfDescription).
type pdfPage struct {
	PageNr  int            `json:"pageNr"`
	Content []pdfContentBox `json:"content"`
}

type pdfContentBox struct {
	Type     string `json:"type"` // "Text"
	Value    string `json:"value"`
	Position [2]int `json:"position"`
	FontSize int    `json:"fontSize,omitempty"`
}

type pdfDescription struct {
	PageSize string    `json:"pageSize"`
	Pages    []pdfPage `json:"pages"`
}

func buildContentDescription(m manifest.Manifest) ([]byte, error) {
	content := []pdfContentBox{
		{Type: "Text", Value: "Egress Analysis Report", Position: [2]int{50, 780}, FontSize: 18},
		{Type: "Text", Value: fmt.Sprintf("Source: %s", m.SourceFile), Position: [2]int{50, 750}},
		{Type: "Text", Value: fmt.Sprintf("Run: %s (%s)", m.RunID, m.CreatedAt.Format("2006-01-02 15:04")), Position: [2]int{50, 730}},
		{Type: "Text", Value: fmt.Sprintf("Cell size: %.2fm  Buffer radius: %d  Floors: %d", m.CellSize, m.BufferRadius, m.Floors), Position: [2]int{50, 710}},
	}

	y := 670
	for _, s := range m.Spaces {
		line := fmt.Sprintf("%s (floor %d): distance=%.1fm, to-stair=%.1fm, route=%v", s.SpaceName, s.Floor, s.Distance, s.DistanceToStair, s.HasRoute)
		content = append(content, pdfContentBox{Type: "Text", Value: line, Position: [2]int{50, y}})
		y -= 16
		for _, v := range s.Violations {
			content = append(content, pdfContentBox{Type: "Text", Value: "  - " + v, Position: [2]int{60, y}})
			y -= 16
		}
	}

	desc := pdfDescription{
		PageSize: "A4",
		Pages:    []pdfPage{{PageNr: 1, Content: content}},
	}
	b, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("marshal content description: %w", err)
	}
	return b, nil
}
