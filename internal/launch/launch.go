// Package launch hands the process arguments to a downstream entry point,
// unchanged, and reports back whatever status that entry point produces.
package launch

import (
	"context"
	"errors"

	"github.com/PuzzleDev/NuZot/internal/logger"
	"go.uber.org/zap"
)

// Exit codes used when the downstream cannot be invoked at all. They follow
// the shell conventions so wrappers scripting the launcher see familiar values.
const (
	ExitCodeCannotExecute = 126
	ExitCodeNotFound      = 127
	ExitCodeSignalBase    = 128
)

// ErrNoEntry is returned by a Launcher with no entry point.
var ErrNoEntry = errors.New("no downstream entry point")

// EntryPoint is a downstream program. Main runs it once with args and returns
// its exit status. The error is reserved for failing to invoke it; a program
// that ran and failed reports that through the status alone.
type EntryPoint interface {
	Main(ctx context.Context, args []string) (int, error)
}

// EntryFunc adapts an ordinary function to an EntryPoint.
type EntryFunc func(ctx context.Context, args []string) (int, error)

// Main calls f(ctx, args).
func (f EntryFunc) Main(ctx context.Context, args []string) (int, error) {
	return f(ctx, args)
}

// Launcher forwards arguments to exactly one entry point.
type Launcher struct {
	Name  string
	Entry EntryPoint
}

// New returns a Launcher for the named entry point.
func New(name string, entry EntryPoint) *Launcher {
	return &Launcher{Name: name, Entry: entry}
}

// Run calls the entry point once with args and returns its result as is.
func (l *Launcher) Run(ctx context.Context, args []string) (int, error) {
	if l.Entry == nil {
		return ExitCodeNotFound, ErrNoEntry
	}

	logger.L().Debug("handing off to entry point",
		zap.String("target", l.Name),
		zap.Strings("args", args),
	)

	return l.Entry.Main(ctx, args)
}

// StartError reports that a downstream program could not be started.
type StartError struct {
	Target  string
	Program string
	Err     error
}

func (e *StartError) Error() string {
	return "cannot start " + e.Target + " (" + e.Program + "): " + e.Err.Error()
}

func (e *StartError) Unwrap() error { return e.Err }

// ExitCode maps the failure to the status a shell would report for it.
func (e *StartError) ExitCode() int {
	if isNotFound(e.Err) {
		return ExitCodeNotFound
	}
	return ExitCodeCannotExecute
}
