//go:build !unix

package launch

import (
	"errors"
	"os"
)

const canReplace = false

var terminateSignal = os.Kill

// signalSets absorbs interrupts; they cannot be sent to another process here.
func signalSets(interactive bool) (relay, absorb []os.Signal) {
	return nil, []os.Signal{os.Interrupt}
}

func replaceProcess(path string, argv, env []string, dir string) error {
	return errors.New("replacing the process is not supported on this platform")
}

func signalExitCode(state *os.ProcessState) (int, bool) {
	return 0, false
}
