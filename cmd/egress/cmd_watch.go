package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"egress/internal/graph"
)

var watchBufferRadius int

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and re-analyze every new geometry file dropped into it",
	Long:  "Watch a directory for new .json geometry files (spec.md section 1's materialized-geometry shape) and run the analyze pipeline against each one as it arrives.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if !cfg.Features.EnableWatch {
			return fmt.Errorf("watch is disabled by config (features.enable_watch)")
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer w.Close()

		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		fmt.Printf("watching %s for new geometry files (ctrl-c to stop)\n", dir)

		bufferRadius := watchBufferRadius
		if bufferRadius <= 0 {
			bufferRadius = cfg.Engine.DefaultBufferRadius
		}
		graphOpts := graph.Options{AllowDiagonal: cfg.Engine.AllowDiagonal, MinimizeCost: cfg.Engine.MinimizeCost}

		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
					continue
				}
				if err := handleWatchedFile(ev.Name, bufferRadius, graphOpts); err != nil {
					logger.Sugar().Warnf("analyze %s: %v", ev.Name, err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				logger.Sugar().Warnf("watcher error: %v", err)
			}
		}
	},
}

func handleWatchedFile(path string, bufferRadius int, graphOpts graph.Options) error {
	src, cellSize, err := loadGeometryFile(path)
	if err != nil {
		return err
	}
	m, _, _, err := runPipeline(filepath.Base(path), src, cellSize, bufferRadius, graphOpts)
	if err != nil {
		return err
	}
	fmt.Printf("%s: run %s, %d space(s) analyzed\n", filepath.Base(path), m.RunID, len(m.Spaces))
	return nil
}

func init() {
	watchCmd.Flags().IntVar(&watchBufferRadius, "buffer-radius", 0, "wall buffer radius in cells (default from config)")
}
