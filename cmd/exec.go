package cmd

import (
	"fmt"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var execMode string

// execCmd launches a named target the same way the nuzot shim launches the
// configured one. Everything after the target name is forwarded.
var execCmd = &cobra.Command{
	Use:   "exec <target> [--] [args...]",
	Short: "Launch a target by name",
	Long: `Launch a target by name, forwarding the remaining arguments untouched.

Flags must come before the target name; everything after it goes to the target.
A single -- right after the target name is dropped, so "exec nuzot -- --help"
forwards ["--help"]. The command exits with the target's exit status.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, forwarded := args[0], args[1:]
		if len(forwarded) > 0 && forwarded[0] == "--" {
			forwarded = forwarded[1:]
		}

		if execMode != "" && execMode != config.ModeReplace && execMode != config.ModeSpawn {
			return fmt.Errorf("invalid mode %q (allowed: %s, %s)", execMode, config.ModeReplace, config.ModeSpawn)
		}

		logger.L().Info("launching target", zap.String("target", name), zap.Int("args", len(forwarded)))

		code, err := launchTarget(cmd.Context(), name, execMode, forwarded)
		if err != nil {
			return err
		}
		if code != 0 {
			return &exitStatusError{code: code}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().StringVar(&execMode, "mode", "", "Launch mode: replace or spawn (default from target or config)")
	execCmd.Flags().SetInterspersed(false)
}
