package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"text/tabwriter"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/launch"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/PuzzleDev/NuZot/internal/target"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	targetsJSON   bool
	targetsYAML   bool
	showFormat    string
	validateJSON  bool
	validateNoRun bool
)

// targetInfo describes one launchable name for listing.
type targetInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Kind    string   `json:"kind" yaml:"kind"` // file, builtin or in-process
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
	Mode    string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Valid   bool     `json:"valid" yaml:"valid"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
	Default bool     `json:"default,omitempty" yaml:"default,omitempty"`
}

// validateResult holds the result of validating a single target.
type validateResult struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Inspect and validate launch targets",
}

// targetsListCmd lists target files, the builtin NuZot target and in-process entry points.
var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := collectTargets(config.C.Paths.Targets)
		if err != nil {
			logger.L().Error("targets list failed", zap.Error(err))
			return err
		}

		logger.L().Info("listing targets",
			zap.String("directory", config.C.Paths.Targets),
			zap.Int("count", len(infos)),
		)

		out := cmd.OutOrStdout()
		switch {
		case targetsJSON:
			return encodeJSON(out, infos)
		case targetsYAML:
			return yaml.NewEncoder(out).Encode(infos)
		}
		return printTargetsTable(out, infos)
	},
}

// collectTargets gathers every name the launcher can resolve, sorted.
func collectTargets(dir string) ([]*targetInfo, error) {
	seen := make(map[string]bool)
	var infos []*targetInfo

	for _, name := range launch.Registered() {
		seen[name] = true
		infos = append(infos, &targetInfo{Name: name, Kind: "in-process", Valid: true})
	}

	targets, failures, err := target.LoadAll(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, t := range targets {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		infos = append(infos, &targetInfo{Name: t.Name, Kind: "file", Command: t.Command, Mode: t.Mode, Valid: true})
	}
	for name, ferr := range failures {
		if seen[name] {
			continue
		}
		seen[name] = true
		infos = append(infos, &targetInfo{Name: name, Kind: "file", Valid: false, Error: ferr.Error()})
	}

	if !seen[config.DefaultTarget] {
		b := target.Builtin()
		infos = append(infos, &targetInfo{Name: b.Name, Kind: "builtin", Command: b.Command, Valid: true})
	}

	for _, info := range infos {
		info.Default = info.Name == config.C.Target
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// printTargetsTable displays targets in a formatted table.
func printTargetsTable(out io.Writer, infos []*targetInfo) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "TARGET\tKIND\tMODE\tSTATUS\tCOMMAND\n")
	fmt.Fprintf(w, "------\t----\t----\t------\t-------\n")

	for _, info := range infos {
		name := info.Name
		if info.Default {
			name += " *"
		}
		mode := info.Mode
		if mode == "" {
			mode = "-"
		}
		status := "✓ valid"
		if !info.Valid {
			status = "✗ invalid"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", name, info.Kind, mode, status, info.Command)
	}

	return w.Flush()
}

// targetsShowCmd prints a single target definition.
var targetsShowCmd = &cobra.Command{
	Use:   "show <target>",
	Short: "Show a target definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := lookupTarget(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch showFormat {
		case "toml":
			data, err := target.Marshal(t)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		case "json":
			return encodeJSON(out, t)
		case "yaml":
			return yaml.NewEncoder(out).Encode(t)
		default:
			return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", showFormat)
		}
	},
}

// targetsValidateCmd checks target definitions and that their programs can be found.
var targetsValidateCmd = &cobra.Command{
	Use:   "validate [target]",
	Short: "Validate target definitions",
	Long:  "Validate all target files, or a single target, and check that each program resolves on PATH",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var results []validateResult

		if len(args) == 1 {
			t, err := lookupTarget(args[0])
			if err == nil && !validateNoRun {
				err = t.CheckRunnable()
			}
			results = append(results, newValidateResult(args[0], err))
		} else {
			report, err := target.ValidateAll(cmd.Context(), config.C.Paths.Targets, !validateNoRun)
			if err != nil {
				return fmt.Errorf("failed to validate targets: %w", err)
			}
			for name, verr := range report {
				results = append(results, newValidateResult(name, verr))
			}
			sort.Slice(results, func(i, j int) bool {
				return results[i].Name < results[j].Name
			})
		}

		failed := 0
		for _, r := range results {
			if !r.Valid {
				failed++
			}
		}

		out := cmd.OutOrStdout()
		if validateJSON {
			if err := encodeJSON(out, results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				if r.Valid {
					fmt.Fprintf(out, "✓ %s: valid\n", r.Name)
				} else {
					fmt.Fprintf(out, "✗ %s: %s\n", r.Name, r.Error)
				}
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No targets found in %s\n", config.C.Paths.Targets)
			}
		}

		if failed > 0 {
			return fmt.Errorf("validation failed: %d target(s) invalid", failed)
		}
		return nil
	},
}

func newValidateResult(name string, err error) validateResult {
	if err != nil {
		logger.L().Warn("target validation failed", zap.String("target", name), zap.Error(err))
		return validateResult{Name: name, Valid: false, Error: err.Error()}
	}
	return validateResult{Name: name, Valid: true}
}

func encodeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.AddCommand(targetsListCmd, targetsShowCmd, targetsValidateCmd)

	targetsListCmd.Flags().BoolVar(&targetsJSON, "json", false, "Output in JSON format")
	targetsListCmd.Flags().BoolVar(&targetsYAML, "yaml", false, "Output in YAML format")
	targetsListCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	targetsShowCmd.Flags().StringVarP(&showFormat, "format", "f", "toml", "Output format: toml, json or yaml")

	targetsValidateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
	targetsValidateCmd.Flags().BoolVar(&validateNoRun, "definitions-only", false, "Skip checking that programs resolve on PATH")
}
