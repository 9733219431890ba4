// Command egress is the CLI front end for the worst-case egress routing
// and code-compliance engine: it can serve the HTTP API, run one-shot
// analysis over a geometry file, watch a directory for new files, or
// show a terminal dashboard of the last analyzed building.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"egress/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "unknown"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "egress",
	Short: "Worst-case egress routing and code-compliance checking over BIM geometry",
	Long: `egress loads rasterized building geometry, detects exits and spaces,
builds a navigation graph, and computes the worst-case evacuation route and
distance-threshold violations for every space.

  egress serve              start the HTTP API
  egress analyze <file>     run one-shot analysis and write a manifest
  egress watch <directory>  re-analyze any new file dropped into a directory
  egress view <manifest>    show the last run's routes in a terminal dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			cfg, err = config.Load(cfgPath)
		} else {
			cfg = config.Default()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err = newLogger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		return nil
	},
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Telemetry.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("egress %s\n", Version)
		fmt.Printf("built:  %s\n", BuildTime)
		fmt.Printf("commit: %s\n", Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (yaml or json)")

	rootCmd.AddCommand(
		serveCmd,
		analyzeCmd,
		watchCmd,
		viewCmd,
		versionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
