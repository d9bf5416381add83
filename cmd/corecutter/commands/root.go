package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amgaina/CoreCutter/internal/config"
	"github.com/amgaina/CoreCutter/internal/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "corecutter",
		Short: "CoreCutter - exact core cutting optimizer",
		Long: `CoreCutter finds the minimum number of master cores needed to cut a list
of requested widths, accounting for the material each blade pass removes.

Lengths are handled as exact decimals and the result is proven optimal.
Plans can be printed, saved as JSON records, or exported as PDF reports,
QR-coded core labels and Excel workbooks.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newOptimizeCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newEstimateCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSolversCommand())

	return rootCmd
}

// env is what every command needs after the config file is read.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// loadEnv reads the configuration and builds the logger. The returned
// context carries the logger for the engine.
func loadEnv(cmd *cobra.Command) (context.Context, *env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log output: %w", err)
	}
	logger.Debug().Str("config", configPath).Msg("Configuration loaded")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx), &env{cfg: cfg, logger: logger}, nil
}
