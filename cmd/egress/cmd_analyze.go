package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"egress/internal/graph"
	"egress/internal/manifest"
	"egress/internal/report"
	"egress/internal/storage/blob"
	"egress/internal/storage/history"
	"egress/internal/writer"
)

var (
	analyzeBufferRadius  int
	analyzeAllowDiagonal bool
	analyzeMinimizeCost  bool
	analyzeOutDir        string
	analyzeWritePDF      bool
	analyzeRecordHistory bool
	analyzeWriteMeshes   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run one-shot egress analysis on a geometry file",
	Long:  "Rasterize a geometry file, detect exits and spaces, build the navigation graph, compute every space's worst-case escape route, and write a run manifest (and optionally a PDF report).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ctx := cmd.Context()

		src, cellSize, err := loadGeometryFile(path)
		if err != nil {
			return err
		}

		bufferRadius := analyzeBufferRadius
		if bufferRadius <= 0 {
			bufferRadius = cfg.Engine.DefaultBufferRadius
		}
		graphOpts := graph.Options{AllowDiagonal: analyzeAllowDiagonal, MinimizeCost: analyzeMinimizeCost}

		m, routes, raw, err := runPipeline(filepath.Base(path), src, cellSize, bufferRadius, graphOpts)
		if err != nil {
			return fmt.Errorf("run pipeline: %w", err)
		}

		outDir := analyzeOutDir
		if outDir == "" {
			outDir = cfg.GetRunsPath()
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		manifestPath := filepath.Join(outDir, m.RunID+".yaml")
		mf, err := os.Create(manifestPath)
		if err != nil {
			return fmt.Errorf("create manifest file: %w", err)
		}
		defer mf.Close()
		if err := manifest.Encode(mf, m); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}

		store, err := blob.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		if mfBytes, err := os.ReadFile(manifestPath); err == nil {
			_ = store.Put(ctx, m.RunID+"/manifest.yaml", bytesReader(mfBytes))
		}

		if analyzeWritePDF && cfg.Features.EnableReports {
			pdfPath := filepath.Join(outDir, m.RunID+".pdf")
			if err := report.Render(m, pdfPath); err != nil {
				logger.Sugar().Warnf("report render failed: %v", err)
			} else if pdfBytes, err := os.ReadFile(pdfPath); err == nil {
				_ = store.Put(ctx, m.RunID+"/report.pdf", bytesReader(pdfBytes))
			}
		}

		if analyzeRecordHistory {
			if err := recordHistory(ctx, m); err != nil {
				logger.Sugar().Warnf("history record failed: %v", err)
			}
		}

		if analyzeWriteMeshes {
			for _, route := range routes {
				if !route.HasRoute || len(route.OptimalPath) < 2 {
					continue
				}
				points := writer.RouteToWorldPoints(raw, route.OptimalPath, 0)
				mesh := writer.RibbonMesh(points, writer.DefaultWidth, writer.DefaultHeight)
				meshPath := filepath.Join(outDir, fmt.Sprintf("%s-%s.obj", m.RunID, route.SpaceID))
				if err := writeMeshFile(meshPath, mesh); err != nil {
					logger.Sugar().Warnf("write mesh for space %s failed: %v", route.SpaceID, err)
					continue
				}
				if meshBytes, err := os.ReadFile(meshPath); err == nil {
					_ = store.Put(ctx, fmt.Sprintf("%s/routes/%s.obj", m.RunID, route.SpaceID), bytesReader(meshBytes))
				}
			}
		}

		fmt.Printf("run %s: %d floor(s), %d space(s), manifest at %s\n", m.RunID, m.Floors, len(m.Spaces), manifestPath)
		for _, s := range m.Spaces {
			status := "ok"
			if len(s.Violations) > 0 {
				status = fmt.Sprintf("%d violation(s)", len(s.Violations))
			}
			fmt.Printf("  %-24s floor %d  distance=%.1fm  %s\n", s.SpaceName, s.Floor, s.Distance, status)
		}
		return nil
	},
}

func recordHistory(ctx context.Context, m manifest.Manifest) error {
	store, err := history.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	var counts history.ViolationCounts
	for _, s := range m.Spaces {
		counts.General += len(s.Violations)
	}
	manifestJSON, err := manifestToJSON(m)
	if err != nil {
		return err
	}

	return store.RecordRun(ctx, history.Run{
		SourceName:       m.SourceFile,
		CellSize:         m.CellSize,
		BufferRadius:     m.BufferRadius,
		Floors:           m.Floors,
		Rescaled:         m.Rescaled,
		GeometryFailures: len(m.GeometryFailures),
		SpaceCount:       len(m.Spaces),
		ViolationCounts:  history.EncodeViolationCounts(counts),
		Manifest:         manifestJSON,
	})
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeBufferRadius, "buffer-radius", 0, "wall buffer radius in cells (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeAllowDiagonal, "allow-diagonal", true, "allow diagonal graph edges")
	analyzeCmd.Flags().BoolVar(&analyzeMinimizeCost, "minimize-cost", true, "scale diagonal edges to approximate physical distance")
	analyzeCmd.Flags().StringVar(&analyzeOutDir, "out", "", "directory to write the manifest/report into (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeWritePDF, "pdf", false, "render a PDF summary alongside the manifest")
	analyzeCmd.Flags().BoolVar(&analyzeRecordHistory, "record-history", false, "record the run in the Postgres run-history store")
	analyzeCmd.Flags().BoolVar(&analyzeWriteMeshes, "meshes", false, "export each space's worst-case route as a ribbon-mesh OBJ file")
}

func writeMeshFile(path string, mesh writer.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mesh file: %w", err)
	}
	defer f.Close()
	return writer.WriteOBJ(f, mesh)
}
