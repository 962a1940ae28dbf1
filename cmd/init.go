package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/journal"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/PuzzleDev/NuZot/internal/target"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// initCmd creates the config file, the targets directory with an example
// target, and the journal database.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialise launcher configuration, targets and journal",
	Long:  "Create the config file, the targets directory with the default NuZot target, and the SQLite launch journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		targetsDir := config.C.Paths.Targets
		if targetsDir == "" {
			return fmt.Errorf("no targets directory: set paths.targets or NUZOT_PATHS_TARGETS")
		}
		if err := os.MkdirAll(targetsDir, 0755); err != nil {
			logger.L().Error("failed to create directory", zap.String("path", targetsDir), zap.Error(err))
			return fmt.Errorf("failed to create directory %s: %w", targetsDir, err)
		}
		logger.L().Debug("directory created or already exists", zap.String("path", targetsDir))

		// Example target mirroring the builtin one
		targetFile := filepath.Join(targetsDir, config.DefaultTarget+target.FileExt)
		if _, err := os.Stat(targetFile); os.IsNotExist(err) {
			data, err := target.Marshal(target.Builtin())
			if err != nil {
				return fmt.Errorf("failed to encode default target: %w", err)
			}
			if err := os.WriteFile(targetFile, data, 0644); err != nil {
				logger.L().Error("failed to write target file", zap.String("path", targetFile), zap.Error(err))
				return fmt.Errorf("failed to write target file: %w", err)
			}
			logger.L().Info("target file created", zap.String("path", targetFile))
		} else {
			logger.L().Info("target file already exists, skipping creation", zap.String("path", targetFile))
		}

		// Initialise SQLite journal
		dbPath := config.C.Paths.Database
		store, err := journal.NewStore(dbPath)
		if err != nil {
			logger.L().Error("failed to initialise database", zap.String("path", dbPath), zap.Error(err))
			return fmt.Errorf("failed to initialise database: %w", err)
		}
		store.Close()

		// Initialise config file & parent directories, if they don't exist
		cfgFile := configFile
		if cfgFile == "" {
			if cfgFile, err = config.ConfigFile(); err != nil {
				return fmt.Errorf("%w: pass --config", err)
			}
		}
		cfgDir := filepath.Dir(cfgFile)

		if err := os.MkdirAll(cfgDir, 0755); err != nil {
			logger.L().Error("failed to create configuration directory", zap.String("path", cfgDir), zap.Error(err))
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}

		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			if err := os.WriteFile(cfgFile, []byte(config.DefaultConfig()), 0644); err != nil {
				logger.L().Error("failed to write config file", zap.String("path", cfgFile), zap.Error(err))
				return fmt.Errorf("failed to write config file: %w", err)
			}
			logger.L().Info("config file created", zap.String("path", cfgFile))
		} else {
			logger.L().Info("config file already exists, skipping creation", zap.String("path", cfgFile))
		}

		fmt.Fprintln(out, "\n✓ Launcher initialised successfully")
		fmt.Fprintf(out, "  Config file: %s\n", cfgFile)
		fmt.Fprintf(out, "  Targets:     %s\n", targetsDir)
		fmt.Fprintf(out, "  Database:    %s\n", dbPath)
		fmt.Fprintf(out, "  Jar:         %s\n", config.C.Paths.Jar)
		fmt.Fprintln(out, "\nSet journal: true in the config file to record launches.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
