package launch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// DefaultGracePeriod is how long a cancelled child gets between SIGTERM and SIGKILL.
const DefaultGracePeriod = 10 * time.Second

// ProcessEntry is an entry point implemented by another executable.
// Command holds the program followed by any leading arguments; the forwarded
// arguments are appended after them.
type ProcessEntry struct {
	Name    string
	Command []string
	Dir     string
	Env     []string // nil inherits the launcher's environment
	Mode    string   // config.ModeReplace or config.ModeSpawn

	// Nil streams inherit the launcher's own stdio.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	GracePeriod time.Duration

	// BeforeHandoff runs once the program has been resolved, right before it
	// starts or replaces the launcher, with the mode actually used.
	BeforeHandoff func(mode string)

	// Started runs after a spawned child has started.
	Started func(pid int)
}

// Main runs the program once with args appended to Command.
func (p *ProcessEntry) Main(ctx context.Context, args []string) (int, error) {
	if len(p.Command) == 0 {
		return startFailure(p.Name, "", exec.ErrNotFound)
	}

	program := p.Command[0]
	path, err := p.lookPath(program)
	if err != nil {
		logger.L().Error("program not runnable", zap.String("target", p.Name), zap.String("program", program), zap.Error(err))
		return startFailure(p.Name, program, err)
	}

	argv := make([]string, 0, len(p.Command)+len(args))
	argv = append(argv, p.Command...)
	argv = append(argv, args...)

	env := p.Env
	if env == nil {
		env = os.Environ()
	}

	if p.replaces() {
		if p.BeforeHandoff != nil {
			p.BeforeHandoff(config.ModeReplace)
		}
		logger.L().Debug("replacing launcher process", zap.String("target", p.Name), zap.String("path", path))
		logger.Flush()
		err := replaceProcess(path, argv, env, p.Dir)
		// Only reached when the exec itself failed.
		return startFailure(p.Name, program, err)
	}

	return p.spawn(ctx, path, argv, env)
}

// replaces reports whether the launcher image should be replaced. That needs
// platform support and the launcher's own stdio.
func (p *ProcessEntry) replaces() bool {
	return p.Mode == config.ModeReplace && canReplace &&
		p.Stdin == nil && p.Stdout == nil && p.Stderr == nil
}

func (p *ProcessEntry) lookPath(program string) (string, error) {
	if p.Dir != "" && !filepath.IsAbs(program) && strings.ContainsRune(program, os.PathSeparator) {
		program = filepath.Join(p.Dir, program)
	}
	path, err := exec.LookPath(program)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

func (p *ProcessEntry) spawn(ctx context.Context, path string, argv, env []string) (int, error) {
	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Args = slices.Clone(argv)
	cmd.Dir = p.Dir
	cmd.Env = env
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if p.Stdin != nil {
		cmd.Stdin = p.Stdin
	}
	if p.Stdout != nil {
		cmd.Stdout = p.Stdout
	}
	if p.Stderr != nil {
		cmd.Stderr = p.Stderr
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(terminateSignal)
	}
	cmd.WaitDelay = p.GracePeriod
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultGracePeriod
	}

	if p.BeforeHandoff != nil {
		p.BeforeHandoff(config.ModeSpawn)
	}

	// Handlers go in before Start so a signal in between is queued, not fatal.
	relay := watchSignals(onTerminal())

	if err := cmd.Start(); err != nil {
		relay.cancel()
		logger.L().Error("failed to start program", zap.String("target", p.Name), zap.String("path", path), zap.Error(err))
		return startFailure(p.Name, argv[0], err)
	}

	logger.L().Debug("program started", zap.String("target", p.Name), zap.Int("child_pid", cmd.Process.Pid))
	if p.Started != nil {
		p.Started(cmd.Process.Pid)
	}

	stop := relay.forward(cmd.Process)
	err := cmd.Wait()
	stop()

	code := ExitStatus(cmd.ProcessState)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// I/O or wait-delay trouble; the child's own status still stands.
			logger.L().Warn("program wait reported an error", zap.String("target", p.Name), zap.Error(err))
		}
	}

	logger.L().Debug("program exited", zap.String("target", p.Name), zap.Int("exit_code", code))
	return code, nil
}

// ExitStatus converts a finished process state into a shell-style status:
// the exit code, or 128+N when the process died from signal N.
func ExitStatus(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	if code, ok := signalExitCode(state); ok {
		return code
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

// onTerminal reports whether the launcher's stdin is a terminal.
func onTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// signalRelay catches the signals a spawned child should see and passes the
// relayed ones on.
type signalRelay struct {
	sigs  chan os.Signal
	relay []os.Signal
}

func watchSignals(interactive bool) *signalRelay {
	relay, absorb := signalSets(interactive)
	r := &signalRelay{sigs: make(chan os.Signal, 4), relay: relay}
	if handled := append(slices.Clone(relay), absorb...); len(handled) > 0 {
		signal.Notify(r.sigs, handled...)
	}
	return r
}

// cancel restores default handling without relaying anything.
func (r *signalRelay) cancel() {
	signal.Stop(r.sigs)
}

// forward relays signals to proc, including any queued before the call,
// until the returned stop function is called.
func (r *signalRelay) forward(proc *os.Process) (stop func()) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-r.sigs:
				if slices.Contains(r.relay, sig) {
					logger.L().Debug("relaying signal", zap.String("signal", sig.String()))
					_ = proc.Signal(sig)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		r.cancel()
		close(done)
	}
}

func startFailure(name, program string, err error) (int, error) {
	se := &StartError{Target: name, Program: program, Err: err}
	return se.ExitCode(), se
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
