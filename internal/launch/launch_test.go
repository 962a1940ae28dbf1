package launch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingEntry counts calls and keeps the last argument list it saw.
type recordingEntry struct {
	calls int
	got   []string
	code  int
	err   error
}

func (r *recordingEntry) Main(ctx context.Context, args []string) (int, error) {
	r.calls++
	r.got = args
	return r.code, r.err
}

// TestLauncherForwardsArgsUnchanged checks that every argument sequence reaches
// the entry point exactly once with the same order, content and count.
func TestLauncherForwardsArgsUnchanged(t *testing.T) {
	cases := map[string][]string{
		"empty":          {},
		"help":           {"--help"},
		"flags":          {"-v", "--config", "x.yaml", "--"},
		"spaces":         {"a b", " ", "", "\t"},
		"completion":     {"__complete", "run", ""},
		"unicode":        {"∀x", "□(p → ◇q)", "çà"},
		"duplicates":     {"x", "x", "x"},
		"trailing_empty": {"file.zot", ""},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			entry := &recordingEntry{}
			code, err := New("test", entry).Run(context.Background(), args)

			require.NoError(t, err)
			require.Equal(t, 0, code)
			require.Equal(t, 1, entry.calls)
			require.Equal(t, args, entry.got)
			require.Len(t, entry.got, len(args))
		})
	}
}

// TestLauncherIdentityManyArgs forwards a long generated argument list.
func TestLauncherIdentityManyArgs(t *testing.T) {
	args := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		args = append(args, fmt.Sprintf("--arg-%d=%d", i, i*i))
	}

	entry := &recordingEntry{}
	_, err := New("test", entry).Run(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, 1, entry.calls)
	require.Equal(t, args, entry.got)
}

// TestLauncherReturnsEntryStatus checks the entry point's status is returned as is.
func TestLauncherReturnsEntryStatus(t *testing.T) {
	for _, want := range []int{0, 1, 2, 42, 255} {
		entry := &recordingEntry{code: want}
		code, err := New("test", entry).Run(context.Background(), []string{"x"})
		require.NoError(t, err)
		require.Equal(t, want, code)
	}
}

// TestLauncherDoesNotWrapErrors checks invocation errors come back untouched.
func TestLauncherDoesNotWrapErrors(t *testing.T) {
	boom := errors.New("boom")
	entry := &recordingEntry{code: 7, err: boom}

	code, err := New("test", entry).Run(context.Background(), nil)
	require.Same(t, boom, err)
	require.Equal(t, 7, code)
	require.Equal(t, 1, entry.calls)
}

// TestLauncherNilEntry tests that a launcher without an entry point fails.
func TestLauncherNilEntry(t *testing.T) {
	code, err := New("missing", nil).Run(context.Background(), []string{"a"})
	require.ErrorIs(t, err, ErrNoEntry)
	require.Equal(t, ExitCodeNotFound, code)
}

// TestEntryFunc tests the function adapter.
func TestEntryFunc(t *testing.T) {
	var got []string
	f := EntryFunc(func(ctx context.Context, args []string) (int, error) {
		got = args
		return 3, nil
	})

	code, err := f.Main(context.Background(), []string{"p", "q"})
	require.NoError(t, err)
	require.Equal(t, 3, code)
	require.Equal(t, []string{"p", "q"}, got)
}

// TestStartErrorExitCode tests the shell-style codes for start failures.
func TestStartErrorExitCode(t *testing.T) {
	notFound := &StartError{Target: "t", Program: "p", Err: fmt.Errorf("lookup: %w", errNotFoundForTest)}
	require.Equal(t, ExitCodeNotFound, notFound.ExitCode())

	denied := &StartError{Target: "t", Program: "p", Err: errors.New("permission denied")}
	require.Equal(t, ExitCodeCannotExecute, denied.ExitCode())
	require.Contains(t, denied.Error(), "cannot start t (p)")
}

// TestRegistry tests registering and looking up in-process entry points.
func TestRegistry(t *testing.T) {
	entry := &recordingEntry{}
	Register("registry-test", entry)

	got, ok := Lookup("registry-test")
	require.True(t, ok)
	require.Same(t, entry, got)
	require.Contains(t, Registered(), "registry-test")

	_, ok = Lookup("registry-test-missing")
	require.False(t, ok)

	require.Panics(t, func() { Register("registry-test", entry) })
	require.Panics(t, func() { Register("registry-test-nil", nil) })
}
