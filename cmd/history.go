package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/journal"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	historyTarget    string
	historyStatus    string
	historyLimit     int
	historyOffset    int
	historyJSON      bool
	historyOlderThan time.Duration
)

// historyCmd lists recorded launches with filtering and pagination.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded launches",
	Long:  "List launches recorded in the journal (enable with journal: true), newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyStatus != "" && !journal.ValidStatus(historyStatus) {
			return fmt.Errorf("invalid status %q (running|exec|success|failed)", historyStatus)
		}

		store, err := openJournal()
		if err != nil {
			return err
		}
		defer store.Close()

		launches, err := store.List(historyTarget, historyStatus, historyLimit, historyOffset)
		if err != nil {
			logger.L().Error("failed to list launches", zap.Error(err))
			return fmt.Errorf("failed to list launches: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(launches) == 0 {
			fmt.Fprintln(out, "No launches found")
			return nil
		}

		if historyJSON {
			return printLaunchesJSON(out, launches)
		}

		return printLaunchesTable(out, launches)
	},
}

// historyShowCmd prints one launch record.
var historyShowCmd = &cobra.Command{
	Use:   "show <launch_id>",
	Short: "Show a recorded launch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal()
		if err != nil {
			return err
		}
		defer store.Close()

		l, err := store.Load(args[0])
		if err != nil {
			logger.L().Error("launch not found", zap.String("launch_id", args[0]), zap.Error(err))
			return fmt.Errorf("launch '%s' not found: %w", args[0], err)
		}

		return printLaunchesJSON(cmd.OutOrStdout(), []*journal.Launch{l})
	},
}

// historyPruneCmd deletes old launch records.
var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete launches older than a given age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		store, err := openJournal()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Prune(time.Now().Add(-historyOlderThan))
		if err != nil {
			logger.L().Error("failed to prune launches", zap.Error(err))
			return fmt.Errorf("failed to prune launches: %w", err)
		}

		logger.L().Info("pruned launches", zap.Int64("count", n), zap.Duration("older_than", historyOlderThan))
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d launch(es)\n", n)
		return nil
	},
}

func openJournal() (*journal.Store, error) {
	dbPath := config.C.Paths.Database
	store, err := journal.NewStore(dbPath)
	if err != nil {
		logger.L().Error("failed to open journal", zap.String("path", dbPath), zap.Error(err))
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

// printLaunchesTable displays launches in a formatted table.
func printLaunchesTable(out io.Writer, launches []*journal.Launch) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "LAUNCH ID\tTARGET\tMODE\tSTATUS\tEXIT\tSTARTED AT\tDURATION\tARGS\n")
	fmt.Fprintf(w, "---------\t------\t----\t------\t----\t----------\t--------\t----\n")

	for _, l := range launches {
		duration := "-"
		if l.EndedAt.Valid {
			duration = fmt.Sprintf("%.2fs", l.EndedAt.Time.Sub(l.StartedAt).Seconds())
		}

		exit := "-"
		if l.ExitCode.Valid {
			exit = fmt.Sprintf("%d", l.ExitCode.Int64)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID,
			l.Target,
			l.Mode,
			coloriseStatus(l.Status),
			exit,
			l.StartedAt.Format("2006-01-02 15:04:05"),
			duration,
			strings.Join(l.Args, " "),
		)
	}

	logger.L().Info("displayed launches", zap.Int("count", len(launches)))

	return w.Flush()
}

// printLaunchesJSON outputs launches in JSON format.
func printLaunchesJSON(out io.Writer, launches []*journal.Launch) error {
	for _, l := range launches {
		data, err := journal.MarshalLaunch(l)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(out, buf.String())
	}

	return nil
}

// coloriseStatus adds a marker to status strings for better readability.
func coloriseStatus(status journal.LaunchStatus) string {
	switch status {
	case journal.StatusSuccess:
		return "✓ " + string(status)
	case journal.StatusFailed:
		return "✗ " + string(status)
	case journal.StatusRunning:
		return "⟳ " + string(status)
	case journal.StatusExec:
		return "→ " + string(status)
	default:
		return string(status)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)

	historyCmd.Flags().StringVarP(&historyTarget, "target", "t", "", "Filter by target name")
	historyCmd.Flags().StringVarP(&historyStatus, "status", "s", "", "Filter by status (running|exec|success|failed)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Limit number of results")
	historyCmd.Flags().IntVarP(&historyOffset, "offset", "o", 0, "Offset for pagination")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output in JSON format")

	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 30*24*time.Hour, "Delete launches older than this age")
}
