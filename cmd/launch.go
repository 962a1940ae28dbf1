package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/journal"
	"github.com/PuzzleDev/NuZot/internal/launch"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"go.uber.org/zap"
)

// modeInProcess is recorded for registered entry points, which never leave the launcher.
const modeInProcess = "in-process"

// ConfigEnv names the variable that points the launcher at a config file.
const ConfigEnv = "NUZOT_CONFIG"

// Launch is the nuzot shim: it hands args, untouched, to the configured
// target and returns the target's exit status. It interprets no arguments.
func Launch(args []string) int {
	return launchWith(context.Background(), args, os.Stderr)
}

func launchWith(ctx context.Context, args []string, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}

	if err := config.Load(os.Getenv(ConfigEnv)); err != nil {
		fmt.Fprintf(stderr, "nuzot: %v\n", err)
		return launch.ExitCodeCannotExecute
	}

	// stdout and stderr belong to the target; only an explicit log file is written.
	if err := logger.Init(logger.Config{
		Level:      config.C.LogLevel,
		Format:     "json",
		OutputFile: config.C.Paths.LogsFile,
	}); err != nil {
		fmt.Fprintf(stderr, "nuzot: failed to initialise logger: %v\n", err)
		return launch.ExitCodeCannotExecute
	}
	defer logger.Sync()

	code, err := launchTarget(ctx, config.C.Target, "", args)
	if err != nil {
		fmt.Fprintf(stderr, "nuzot: %v\n", err)
		return exitCode(err)
	}
	return code
}

// launchTarget resolves name and runs it once with args.
func launchTarget(ctx context.Context, name, mode string, args []string) (int, error) {
	r, err := resolveEntry(name, mode)
	if err != nil {
		return exitCode(err), err
	}

	var rec *recorder
	if config.C.Journal {
		rec = startRecording(name, r, args)
		defer rec.close()
	}

	if proc, ok := r.Entry.(*launch.ProcessEntry); ok {
		proc.BeforeHandoff = rec.handoff
		proc.Started = rec.started
	} else {
		rec.handoff(modeInProcess)
	}

	code, err := launch.New(name, r.Entry).Run(ctx, args)
	rec.finish(code, err)
	return code, err
}

// recorder writes one journal entry per launch. A nil recorder does nothing,
// and journal failures are logged without touching the launch itself.
type recorder struct {
	store  *journal.Store
	launch *journal.Launch
}

func startRecording(name string, r *resolved, args []string) *recorder {
	var hash string
	if r.Target != nil {
		h, err := r.Target.ComputeHash()
		if err != nil {
			logger.L().Warn("failed to hash target", zap.String("target", name), zap.Error(err))
		}
		hash = h
	}

	store, err := journal.NewStore(config.C.Paths.Database)
	if err != nil {
		logger.L().Warn("journal unavailable", zap.String("path", config.C.Paths.Database), zap.Error(err))
		return nil
	}

	l, err := store.NewLaunch(name, hash, "", args)
	if err != nil {
		logger.L().Warn("failed to record launch", zap.String("target", name), zap.Error(err))
		store.Close()
		return nil
	}

	return &recorder{store: store, launch: l}
}

func (r *recorder) update() {
	if err := r.store.Update(r.launch); err != nil {
		logger.L().Warn("failed to update launch record", zap.String("launch_id", r.launch.ID), zap.Error(err))
	}
}

func (r *recorder) handoff(mode string) {
	if r == nil {
		return
	}
	r.launch.Mode = mode
	if mode == config.ModeReplace {
		r.launch.Status = journal.StatusExec
		r.launch.PID = sql.NullInt64{Int64: int64(os.Getpid()), Valid: true}
	}
	r.update()
}

func (r *recorder) started(pid int) {
	if r == nil {
		return
	}
	r.launch.PID = sql.NullInt64{Int64: int64(pid), Valid: true}
	r.update()
}

func (r *recorder) finish(code int, err error) {
	if r == nil || r.store == nil {
		return
	}
	r.launch.Finish(code, err)
	r.update()
	logger.L().Info("launch recorded",
		zap.String("launch_id", r.launch.ID),
		zap.String("status", string(r.launch.Status)),
		zap.Int("exit_code", code),
	)
}

func (r *recorder) close() {
	if r == nil || r.store == nil {
		return
	}
	_ = r.store.Close()
	r.store = nil
}
