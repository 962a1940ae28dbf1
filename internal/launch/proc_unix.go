//go:build unix

package launch

import (
	"os"
	"slices"
	"syscall"
)

const canReplace = true

var (
	// Sent to the child only by whoever targets the launcher itself.
	relayedSignals = []os.Signal{syscall.SIGTERM, syscall.SIGHUP}
	// On a terminal these already reach the whole foreground group.
	interactiveSignals = []os.Signal{os.Interrupt, syscall.SIGQUIT}

	terminateSignal os.Signal = syscall.SIGTERM
)

// signalSets splits the handled signals into those relayed to the child and
// those absorbed. Interactive signals are relayed too when no terminal
// delivers them to the child.
func signalSets(interactive bool) (relay, absorb []os.Signal) {
	if interactive {
		return relayedSignals, interactiveSignals
	}
	return append(slices.Clone(relayedSignals), interactiveSignals...), nil
}

// replaceProcess execs path in place of the current process. It returns only
// on failure.
func replaceProcess(path string, argv, env []string, dir string) error {
	if dir != "" {
		if err := os.Chdir(dir); err != nil {
			return err
		}
	}
	return syscall.Exec(path, argv, env)
}

func signalExitCode(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return ExitCodeSignalBase + int(ws.Signal()), true
}
