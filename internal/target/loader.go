package target

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/logger"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// FileExt is the extension of target definition files.
const FileExt = ".toml"

// Load reads a target from a TOML file located in the configured targets directory.
func Load(name string) (*Target, error) {
	name = strings.TrimSuffix(name, FileExt)
	if config.C.Paths.Targets == "" {
		return nil, fmt.Errorf("no targets directory configured for %s: %w", name, fs.ErrNotExist)
	}

	filePath := filepath.Join(config.C.Paths.Targets, name+FileExt)
	return LoadFile(filePath)
}

// LoadFile reads and validates the target definition at path.
func LoadFile(filePath string) (*Target, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		logger.L().Debug("failed to read target file", zap.String("path", filePath), zap.Error(err))
		return nil, fmt.Errorf("failed to read target file %s: %w", filePath, err)
	}

	t, err := parseTarget(data)
	if err != nil {
		logger.L().Error("failed to parse target", zap.String("path", filePath), zap.Error(err))
		return nil, fmt.Errorf("failed to parse target file %s: %w", filePath, err)
	}
	t.Source = filePath

	if err := t.Validate(); err != nil {
		logger.L().Error("target validation failed", zap.String("target", t.Name), zap.Error(err))
		return nil, fmt.Errorf("target validation failed: %w", err)
	}

	if stem := strings.TrimSuffix(filepath.Base(filePath), FileExt); stem != t.Name {
		return nil, fmt.Errorf("target file %s declares name %q, expected %q", filePath, t.Name, stem)
	}

	logger.L().Debug("target loaded", zap.String("target", t.Name), zap.String("path", filePath))
	return t, nil
}

// LoadFromString reads a target from a TOML-formatted string.
func LoadFromString(data string) (*Target, error) {
	t, err := parseTarget([]byte(data))
	if err != nil {
		logger.L().Error("failed to parse target from string", zap.Error(err))
		return nil, err
	}

	if err := t.Validate(); err != nil {
		logger.L().Error("target validation failed", zap.String("target", t.Name), zap.Error(err))
		return nil, fmt.Errorf("target validation failed: %w", err)
	}

	return t, nil
}

// Marshal encodes t in the same TOML layout Load reads.
func Marshal(t *Target) ([]byte, error) {
	return toml.Marshal(t)
}

// parseTarget converts raw TOML bytes into a Target.
func parseTarget(data []byte) (*Target, error) {
	var t Target
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal TOML: %w", err)
	}

	if t.Name == "" {
		return nil, fmt.Errorf("target name is required")
	}

	return &t, nil
}

// Names returns the names of all target files in dir, sorted.
func Names(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("no targets directory configured: %w", fs.ErrNotExist)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), FileExt))
	}
	sort.Strings(names)
	return names, nil
}

// LoadAll loads every target file in dir. Files that fail to load are
// reported in the returned map, keyed by file name without extension.
func LoadAll(dir string) ([]*Target, map[string]error, error) {
	names, err := Names(dir)
	if err != nil {
		return nil, nil, err
	}

	var targets []*Target
	failures := make(map[string]error)
	for _, name := range names {
		t, err := LoadFile(filepath.Join(dir, name+FileExt))
		if err != nil {
			failures[name] = err
			continue
		}
		targets = append(targets, t)
	}

	return targets, failures, nil
}
