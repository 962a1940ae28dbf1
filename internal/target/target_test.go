package target

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuzzleDev/NuZot/internal/config"
	"github.com/PuzzleDev/NuZot/internal/logger"
)

func init() {
	logger.Init(logger.Config{
		Level:  "info",
		Format: "console",
	})
}

const nuzotTarget = `
name = "nuzot"
description = "NuZot solver"
command = ["java", "-cp", "/opt/nuzot/nuzot.jar", "it.polimi.nuzot.NuZot"]
mode = "spawn"

[env]
JAVA_TOOL_OPTIONS = "-Xss16m"
`

// writeTarget writes a target file into dir and returns its path.
func writeTarget(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+FileExt)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write target: %v", err)
	}
	return path
}

// TestLoadFromString tests parsing a complete target definition.
func TestLoadFromString(t *testing.T) {
	tg, err := LoadFromString(nuzotTarget)
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	if tg.Name != "nuzot" {
		t.Errorf("expected name nuzot, got %s", tg.Name)
	}
	if len(tg.Command) != 4 || tg.Command[3] != NuZotMainClass {
		t.Errorf("unexpected command %v", tg.Command)
	}
	if tg.Mode != config.ModeSpawn {
		t.Errorf("expected mode spawn, got %s", tg.Mode)
	}
	if tg.Env["JAVA_TOOL_OPTIONS"] != "-Xss16m" {
		t.Errorf("expected env to be parsed, got %v", tg.Env)
	}
}

// TestLoadFromStringMissingName tests that a name is required.
func TestLoadFromStringMissingName(t *testing.T) {
	if _, err := LoadFromString(`command = ["true"]`); err == nil {
		t.Error("expected error for missing name")
	}
}

// TestValidate tests the validation rules for targets.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr string
	}{
		{"valid", Target{Name: "ok_1-x", Command: []string{"true"}}, ""},
		{"bad name", Target{Name: "bad name", Command: []string{"true"}}, "invalid target name"},
		{"no command", Target{Name: "x"}, "no command"},
		{"blank program", Target{Name: "x", Command: []string{"  "}}, "empty program"},
		{"bad mode", Target{Name: "x", Command: []string{"true"}, Mode: "fork"}, "invalid mode"},
		{"bad env key", Target{Name: "x", Command: []string{"true"}, Env: map[string]string{"A=B": "c"}}, "invalid env key"},
		{"empty env key", Target{Name: "x", Command: []string{"true"}, Env: map[string]string{"": "c"}}, "invalid env key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestLoad tests loading a target from the configured directory.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	config.C.Paths.Targets = dir
	writeTarget(t, dir, "nuzot", nuzotTarget)

	tg, err := Load("nuzot")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tg.Source != filepath.Join(dir, "nuzot.toml") {
		t.Errorf("unexpected source %s", tg.Source)
	}

	// The extension is optional
	if _, err := Load("nuzot.toml"); err != nil {
		t.Errorf("Load with extension failed: %v", err)
	}
}

// TestLoadNameMismatch tests that a file must declare its own name.
func TestLoadNameMismatch(t *testing.T) {
	dir := t.TempDir()
	config.C.Paths.Targets = dir
	writeTarget(t, dir, "other", nuzotTarget)

	if _, err := Load("other"); err == nil {
		t.Error("expected error for name mismatch")
	}
}

// TestLoadAll tests loading a directory with valid and invalid targets.
func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeTarget(t, dir, "nuzot", nuzotTarget)
	writeTarget(t, dir, "broken", `name = "broken"`)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	targets, failures, err := LoadAll(dir)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(targets) != 1 || targets[0].Name != "nuzot" {
		t.Errorf("expected only nuzot to load, got %v", targets)
	}
	if _, ok := failures["broken"]; !ok || len(failures) != 1 {
		t.Errorf("expected broken to fail, got %v", failures)
	}
}

// TestValidateAll tests concurrent validation of a targets directory.
func TestValidateAll(t *testing.T) {
	dir := t.TempDir()
	writeTarget(t, dir, "nuzot", nuzotTarget)
	writeTarget(t, dir, "missing", `
name = "missing"
command = ["nuzot-program-that-does-not-exist"]
`)
	writeTarget(t, dir, "empty", `name = "empty"`)

	report, err := ValidateAll(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("ValidateAll failed: %v", err)
	}
	if len(report) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report))
	}
	if report["nuzot"] != nil || report["missing"] != nil {
		t.Errorf("expected definitions to be valid, got %v", report)
	}
	if report["empty"] == nil {
		t.Error("expected target without command to be invalid")
	}

	report, err = ValidateAll(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("ValidateAll failed: %v", err)
	}
	if report["missing"] == nil {
		t.Error("expected unresolvable program to be reported")
	}
}

// TestComputeHash tests that the hash is stable and reflects changes.
func TestComputeHash(t *testing.T) {
	a := &Target{Name: "x", Command: []string{"java"}, Env: map[string]string{"A": "1", "B": "2"}}
	b := &Target{Name: "x", Command: []string{"java"}, Env: map[string]string{"B": "2", "A": "1"}}

	ha, err := a.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash failed: %v", err)
	}
	hb, _ := b.ComputeHash()
	if ha != hb {
		t.Errorf("expected equal hashes, got %s and %s", ha, hb)
	}

	b.Command = []string{"java", "-jar"}
	hb, _ = b.ComputeHash()
	if ha == hb {
		t.Error("expected hash to change with the command")
	}
}

// TestEnviron tests env layering: base, then env file, then inline env.
func TestEnviron(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nuzot.env"), []byte("FROM_FILE=1\nSHARED=file\n# comment\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tg := &Target{
		Name:    "nuzot",
		Command: []string{"java"},
		EnvFile: "nuzot.env",
		Env:     map[string]string{"SHARED": "inline", "INLINE": "2"},
		Source:  filepath.Join(dir, "nuzot.toml"),
	}

	env, err := tg.Environ([]string{"BASE=0", "SHARED=base"})
	if err != nil {
		t.Fatalf("Environ failed: %v", err)
	}

	got := map[string]string{}
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		if _, dup := got[k]; dup {
			t.Errorf("duplicate key %s in %v", k, env)
		}
		got[k] = v
	}

	want := map[string]string{"BASE": "0", "SHARED": "inline", "FROM_FILE": "1", "INLINE": "2"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %s=%s, got %q", k, v, got[k])
		}
	}
}

// TestEnvironMissingFile tests that an unreadable env file is an error.
func TestEnvironMissingFile(t *testing.T) {
	tg := &Target{Name: "x", Command: []string{"true"}, EnvFile: filepath.Join(t.TempDir(), "absent.env")}
	if _, err := tg.Environ(nil); err == nil {
		t.Error("expected error for missing env file")
	}
}

// TestBuiltin tests that the builtin target runs the NuZot main class from the configured jar.
func TestBuiltin(t *testing.T) {
	config.C.Paths.Jar = "/opt/nuzot.jar"
	b := Builtin()

	if b.Name != config.DefaultTarget {
		t.Errorf("expected name %s, got %s", config.DefaultTarget, b.Name)
	}
	want := []string{"java", "-cp", "/opt/nuzot.jar", NuZotMainClass}
	if strings.Join(b.Command, " ") != strings.Join(want, " ") {
		t.Errorf("expected command %v, got %v", want, b.Command)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("builtin target invalid: %v", err)
	}
}

// TestMarshalRoundTrip tests that a marshalled target loads back.
func TestMarshalRoundTrip(t *testing.T) {
	tg, err := LoadFromString(nuzotTarget)
	if err != nil {
		t.Fatal(err)
	}

	data, err := Marshal(tg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	back, err := LoadFromString(string(data))
	if err != nil {
		t.Fatalf("reloading marshalled target failed: %v\n%s", err, data)
	}
	if back.Env["JAVA_TOOL_OPTIONS"] != "-Xss16m" || len(back.Command) != 4 {
		t.Errorf("round trip lost data: %+v", back)
	}
}
