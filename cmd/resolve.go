package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/launch"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/PuzzleDev/NuZot/internal/target"
	"go.uber.org/zap"
)

// ErrUnknownTarget is returned when a name matches no entry point.
var ErrUnknownTarget = errors.New("unknown target")

// exitCoder is implemented by errors that carry a process exit status.
type exitCoder interface {
	ExitCode() int
}

// ResolveError reports that a target name could not be turned into an entry point.
type ResolveError struct {
	Name string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("target %q: %v", e.Name, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ExitCode is 127 for names that match nothing and 126 for broken definitions.
func (e *ResolveError) ExitCode() int {
	if errors.Is(e.Err, ErrUnknownTarget) {
		return launch.ExitCodeNotFound
	}
	return launch.ExitCodeCannotExecute
}

// exitCode picks the process status for err.
func exitCode(err error) int {
	var ec exitCoder
	if errors.As(err, &ec) {
		if c := ec.ExitCode(); c != 0 {
			return c
		}
	}
	return 1
}

// resolved is an entry point together with the definition it came from.
// Target is nil for in-process entry points.
type resolved struct {
	Entry  launch.EntryPoint
	Target *target.Target
}

// lookupTarget finds the definition for name: a target file first, then the
// builtin NuZot target.
func lookupTarget(name string) (*target.Target, error) {
	if !target.ValidName(name) {
		return nil, &ResolveError{Name: name, Err: ErrUnknownTarget}
	}

	t, err := target.Load(name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, &ResolveError{Name: name, Err: err}
	}

	if name == config.DefaultTarget {
		return target.Builtin(), nil
	}

	return nil, &ResolveError{Name: name, Err: ErrUnknownTarget}
}

// resolveEntry turns name into an entry point. Registered in-process entry
// points take precedence over target files. mode overrides the configured
// launch mode when non-empty.
func resolveEntry(name, mode string) (*resolved, error) {
	if entry, ok := launch.Lookup(name); ok {
		logger.L().Debug("resolved in-process entry point", zap.String("target", name))
		return &resolved{Entry: entry}, nil
	}

	t, err := lookupTarget(name)
	if err != nil {
		logger.L().Error("failed to resolve target", zap.String("target", name), zap.Error(err))
		return nil, err
	}

	env, err := t.Environ(os.Environ())
	if err != nil {
		return nil, &ResolveError{Name: name, Err: err}
	}

	if mode == "" {
		mode = t.Mode
	}
	if mode == "" {
		mode = config.C.Mode
	}

	logger.L().Debug("resolved target",
		zap.String("target", t.Name),
		zap.Strings("command", t.Command),
		zap.String("mode", mode),
		zap.String("source", t.Source),
	)

	return &resolved{
		Entry: &launch.ProcessEntry{
			Name:    t.Name,
			Command: t.Command,
			Dir:     t.Dir,
			Env:     env,
			Mode:    mode,
		},
		Target: t,
	}, nil
}
