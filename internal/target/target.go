// Package target describes downstream entry points the launcher can hand off to.
package target

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/joho/godotenv"
)

// NuZotMainClass is the JVM entry point of the NuZot solver.
const NuZotMainClass = "it.polimi.nuzot.NuZot"

// Target is a downstream program the launcher can hand arguments to.
type Target struct {
	Name        string            `json:"name" yaml:"name" toml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Command     []string          `json:"command" yaml:"command" toml:"command"`
	Dir         string            `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	Mode        string            `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	EnvFile     string            `json:"env_file,omitempty" yaml:"env_file,omitempty" toml:"env_file,omitempty"`

	// Source is the file the target was read from, empty for builtin targets.
	Source string `json:"-" yaml:"-" toml:"-"`
}

// Builtin returns the default NuZot target, which runs the solver's main
// class from the configured jar.
func Builtin() *Target {
	return &Target{
		Name:        config.DefaultTarget,
		Description: "NuZot solver on the JVM",
		Command:     []string{"java", "-cp", config.C.Paths.Jar, NuZotMainClass},
	}
}

// ComputeHash generates a SHA-256 hash representing the current state of the target.
func (t *Target) ComputeHash() (string, error) {
	type envPair struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	type targetSnapshot struct {
		Name    string    `json:"name"`
		Command []string  `json:"command"`
		Dir     string    `json:"dir"`
		Mode    string    `json:"mode"`
		Env     []envPair `json:"env"`
		EnvFile string    `json:"env_file"`
	}

	// Sorted env for consistent hashing
	env := make([]envPair, 0, len(t.Env))
	for k, v := range t.Env {
		env = append(env, envPair{Key: k, Value: v})
	}
	sort.Slice(env, func(i, j int) bool {
		return env[i].Key < env[j].Key
	})

	data, err := json.Marshal(targetSnapshot{
		Name:    t.Name,
		Command: t.Command,
		Dir:     t.Dir,
		Mode:    t.Mode,
		Env:     env,
		EnvFile: t.EnvFile,
	})
	if err != nil {
		return "", err
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

// envFilePath resolves EnvFile relative to the file the target came from.
func (t *Target) envFilePath() string {
	if t.EnvFile == "" || filepath.IsAbs(t.EnvFile) || t.Source == "" {
		return t.EnvFile
	}
	return filepath.Join(filepath.Dir(t.Source), t.EnvFile)
}

// Environ returns base overlaid with the env file and then the inline env.
// Inline values override the env file, which overrides base. Each key
// appears once in the result.
func (t *Target) Environ(base []string) ([]string, error) {
	env := make([]string, 0, len(base)+len(t.Env))
	env = append(env, base...)

	if path := t.envFilePath(); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open env file %s: %w", path, err)
		}
		defer f.Close()

		fileEnv, err := godotenv.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
		}
		env = appendSorted(env, fileEnv)
	}

	return dedupEnv(appendSorted(env, t.Env)), nil
}

// dedupEnv keeps the last value of every key, at the position of its first
// occurrence. execve, unlike os/exec, passes duplicates through.
func dedupEnv(env []string) []string {
	index := make(map[string]int, len(env))
	out := make([]string, 0, len(env))
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if i, ok := index[key]; ok {
			out[i] = kv
			continue
		}
		index[key] = len(out)
		out = append(out, kv)
	}
	return out
}

func appendSorted(env []string, vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env
}
