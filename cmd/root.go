// Package cmd implements the nuzot launcher and the nuzotctl command-line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	logLevel   string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "nuzotctl",
	Short: "nuzotctl - manage the nuzot launcher",
	Long: `nuzotctl manages the nuzot launcher.

nuzot hands its arguments, untouched, to a downstream entry point (by default
the NuZot solver) and exits with that program's status. nuzotctl initialises
the configuration, inspects and validates targets, launches them by name and
browses the optional launch journal.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var status *exitStatusError
		if !errors.As(err, &status) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(exitCode(err))
	}
}

// initConfig initialises configuration and the logger.
func initConfig() error {
	// Load configuration with optional override
	if err := config.Load(configFile); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := config.C.LogLevel
	if logLevel != "" {
		level = logLevel
	}

	// Override log level if verbose flag set
	if verbose {
		level = "debug"
	}

	output := config.C.Paths.LogsFile
	if output == "" {
		output = logger.OutputStderr
	}

	// Initialise logger with configured level
	if err := logger.Init(logger.Config{
		Level:      level,
		Format:     "console",
		OutputFile: output,
	}); err != nil {
		return fmt.Errorf("failed to initialise logger: %w", err)
	}

	logger.L().Debug("configuration loaded", zap.String("config_path", configFile))
	logger.L().Debug("logger initialised", zap.String("level", level))
	return nil
}

// exitStatusError carries a downstream exit status through cobra without a message.
type exitStatusError struct {
	code int
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitStatusError) ExitCode() int { return e.code }

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (overrides defaults)")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
