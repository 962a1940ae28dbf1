package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/PuzzleDev/NuZot/internal/launch"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init(logger.Config{
		Level:  "info",
		Format: "console",
	})

	launch.Register(echoEntryName, launch.EntryFunc(func(ctx context.Context, args []string) (int, error) {
		echo.record(args)
		return echo.code(), nil
	}))
}

const echoEntryName = "cmd-test-echo"

// echoRecorder remembers every argument vector the in-process test entry sees.
type echoRecorder struct {
	mu     sync.Mutex
	calls  [][]string
	status int
}

var echo = &echoRecorder{}

func (e *echoRecorder) record(args []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, args)
}

func (e *echoRecorder) code() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// reset clears recorded calls and sets the status the entry returns.
func (e *echoRecorder) reset(t *testing.T, status int) {
	t.Helper()
	e.mu.Lock()
	e.calls = nil
	e.status = status
	e.mu.Unlock()
	t.Cleanup(func() {
		e.mu.Lock()
		e.calls = nil
		e.status = 0
		e.mu.Unlock()
	})
}

func (e *echoRecorder) recorded() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.calls...)
}

// testFS is a launcher home laid out in a temp dir.
type testFS struct {
	Root string
}

// newTestFS isolates the user directories and NUZOT_* settings for one test.
func newTestFS(t *testing.T) *testFS {
	t.Helper()
	fs := &testFS{Root: t.TempDir()}

	t.Setenv("HOME", fs.Path("home"))
	t.Setenv("XDG_CONFIG_HOME", fs.Path("home", ".config"))
	t.Setenv("XDG_CACHE_HOME", fs.Path("home", ".cache"))
	t.Setenv(ConfigEnv, "")
	t.Setenv("NUZOT_TARGET", "")
	t.Setenv("NUZOT_MODE", "")
	t.Setenv("NUZOT_JOURNAL", "")
	t.Setenv("NUZOT_LOG_LEVEL", "")
	t.Setenv("NUZOT_PATHS_LOGS_FILE", "")
	t.Setenv("NUZOT_PATHS_TARGETS", fs.Path("targets"))
	t.Setenv("NUZOT_PATHS_DATABASE", fs.Path("data", "nuzot.db"))
	t.Setenv("NUZOT_PATHS_JAR", fs.Path("data", "nuzot.jar"))

	return fs
}

func (fs *testFS) Path(parts ...string) string {
	return filepath.Join(append([]string{fs.Root}, parts...)...)
}

func (fs *testFS) Write(t *testing.T, rel string, content string) string {
	t.Helper()
	path := fs.Path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// runCtl executes nuzotctl with args and returns what it printed.
func runCtl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag of c and its subcommands to its default,
// since cobra keeps parsed values between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
