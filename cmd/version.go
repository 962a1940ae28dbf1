package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridable with -ldflags "-X github.com/PuzzleDev/NuZot/cmd.Version=...".
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

var versionJSON bool

// summary returns a concise single-line version string.
func summary() string {
	v := Version
	if Commit != "" {
		c := Commit
		if len(c) > 7 {
			c = c[:7]
		}
		v += " (commit=" + c + ")"
	}
	return v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !versionJSON {
			_, err := fmt.Fprintf(out, "nuzot %s\n", summary())
			return err
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"version": Version,
			"commit":  Commit,
			"date":    Date,
			"go":      runtime.Version(),
			"go_os":   runtime.GOOS,
			"go_arch": runtime.GOARCH,
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print detailed JSON version info")
}
