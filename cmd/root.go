package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/gdprocgen/internal/config"
	"github.com/cwbudde/gdprocgen/internal/store"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
	dataDir    string
	storeKind  string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gdprocgen",
	Short: "Gradient descent for procedural generation",
	Long: `gdprocgen tunes procedural-generation parameters with finite-difference
gradient descent, using batch or stochastic coordinate gradients, and records
every trajectory for later inspection or animation.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		// Logs go to stderr so command output stays pipeable
		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML run file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir, "Base directory for run artifacts")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", store.KindFS, "Run record store (fs, sqlite)")
}

// loadConfig reads --config when given and applies the persistent flags
// that were set explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.File, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flagChanged(cmd, "data-dir") {
		cfg.DataDir = dataDir
	}
	if flagChanged(cmd, "store") {
		cfg.Store = storeKind
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the run store the configuration names
func openStore(cfg *config.File) (store.Store, error) {
	runStore, err := store.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return runStore, nil
}

// flagChanged reports whether the named flag was set on the command line.
// A nil command is treated as having no flags set.
func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	return cmd.Flags().Changed(name)
}
