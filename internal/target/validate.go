package target

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// namePattern defines valid characters for target names
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidName reports whether name can be used as a target name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Validate checks the target for common issues:
// - Valid target name
// - A non-empty command with a program to run
// - A known launch mode
// - Well-formed env keys
func (t *Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("target name is required")
	}

	if !namePattern.MatchString(t.Name) {
		return fmt.Errorf("invalid target name %q (allowed: letters, digits, _, -)", t.Name)
	}

	if len(t.Command) == 0 {
		return fmt.Errorf("target %s has no command defined", t.Name)
	}

	if strings.TrimSpace(t.Command[0]) == "" {
		return fmt.Errorf("target %s has an empty program name", t.Name)
	}

	switch t.Mode {
	case "", config.ModeReplace, config.ModeSpawn:
	default:
		return fmt.Errorf("target %s has invalid mode %q (allowed: %s, %s)", t.Name, t.Mode, config.ModeReplace, config.ModeSpawn)
	}

	for k := range t.Env {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			logger.L().Error("invalid env key", zap.String("target", t.Name), zap.String("key", k))
			return fmt.Errorf("target %s has invalid env key %q", t.Name, k)
		}
	}

	return nil
}

// CheckRunnable verifies that the target's program can be found and that its
// env file, if any, parses.
func (t *Target) CheckRunnable() error {
	program := t.Command[0]
	if t.Dir != "" && !filepath.IsAbs(program) && strings.ContainsRune(program, os.PathSeparator) {
		program = filepath.Join(t.Dir, program)
	}
	if _, err := exec.LookPath(program); err != nil {
		return fmt.Errorf("target %s: %w", t.Name, err)
	}

	if _, err := t.Environ(nil); err != nil {
		return fmt.Errorf("target %s: %w", t.Name, err)
	}

	return nil
}

// ValidateAll checks all target files in dir, concurrently. Runnable also
// checks that each program resolves. The returned map holds one entry per
// target file; nil means the target is valid.
func ValidateAll(ctx context.Context, dir string, runnable bool) (map[string]error, error) {
	names, err := Names(dir)
	if err != nil {
		logger.L().Error("failed to read targets directory", zap.String("dir", dir), zap.Error(err))
		return nil, err
	}

	results := make([]error, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := LoadFile(filepath.Join(dir, name+FileExt))
			if err == nil && runnable {
				err = t.CheckRunnable()
			}
			results[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := make(map[string]error, len(names))
	invalid := 0
	for i, name := range names {
		report[name] = results[i]
		if results[i] != nil {
			invalid++
		}
	}

	logger.L().Info("targets validated", zap.Int("count", len(names)), zap.Int("invalid", invalid))
	return report, nil
}
