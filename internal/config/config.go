// Package config handles the loading and management of launcher configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Launch modes understood by the launcher.
const (
	ModeReplace = "replace"
	ModeSpawn   = "spawn"
)

// DefaultTarget is the target launched when none is configured.
const DefaultTarget = "nuzot"

// Paths locates the files the launcher reads and writes.
type Paths struct {
	Targets  string `mapstructure:"targets"`
	Database string `mapstructure:"database"`
	LogsFile string `mapstructure:"logs_file"`
	Jar      string `mapstructure:"jar"`
}

// Config is the launcher configuration after defaults, file and environment are merged.
type Config struct {
	Target   string `mapstructure:"target"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
	Journal  bool   `mapstructure:"journal"`
	Paths    Paths  `mapstructure:"paths"`
}

// C holds the configuration loaded by Load.
var C Config

// ErrNoConfigDir is returned when the user configuration directory cannot be determined.
var ErrNoConfigDir = errors.New("unable to determine user config dir")

// getDefaultConfigDir returns the default configuration directory for the application.
func getDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoConfigDir, err)
	}
	return filepath.Join(dir, "nuzot"), nil
}

// getDefaultDataDir returns the default data directory for the application,
// falling back to the system temp dir when there is no user cache dir.
func getDefaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nuzot")
}

// defaultTargetsDir is empty when there is no user config dir; target files
// are then only found through an explicit paths.targets.
func defaultTargetsDir() string {
	dir, err := getDefaultConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "targets")
}

// DefaultConfig returns the default configuration file content as a string.
func DefaultConfig() string {
	return fmt.Sprintf(`# nuzot launcher configuration file
# Values can be overridden by NUZOT_* environment variables (e.g. NUZOT_TARGET, NUZOT_PATHS_JAR).
# Command-line arguments given to nuzot are never read here; they go to the target untouched.

target: %s
mode: %s
journal: false
log_level: warn

paths:
  targets: %q
  database: %q
  jar: %q
  # logs_file is empty by default so the launcher writes nothing of its own.
  logs_file: ""
`, DefaultTarget,
		ModeReplace,
		defaultTargetsDir(),
		filepath.Join(getDefaultDataDir(), "nuzot.db"),
		filepath.Join(getDefaultDataDir(), "nuzot.jar"))
}

// ConfigFile returns the path of the default config file.
func ConfigFile() (string, error) {
	dir, err := getDefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration from file and environment variables into the Config struct.
// Without a user config dir only an explicit file and the environment are read.
func Load(configFilePath ...string) error {
	v := viper.New()

	// Defaults
	v.SetDefault("target", DefaultTarget)
	v.SetDefault("mode", ModeReplace)
	v.SetDefault("log_level", "warn")
	v.SetDefault("journal", false)
	v.SetDefault("paths.targets", defaultTargetsDir())
	v.SetDefault("paths.database", filepath.Join(getDefaultDataDir(), "nuzot.db"))
	v.SetDefault("paths.logs_file", "")
	v.SetDefault("paths.jar", filepath.Join(getDefaultDataDir(), "nuzot.jar"))

	// Environment variables
	v.SetEnvPrefix("NUZOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := len(configFilePath) > 0 && configFilePath[0] != ""
	cfgDir, dirErr := getDefaultConfigDir()
	if !explicit && dirErr != nil {
		return unmarshal(v)
	}

	// Config file
	v.SetConfigType("yaml")
	if explicit {
		v.SetConfigFile(configFilePath[0])
	} else {
		v.AddConfigPath(cfgDir)
		v.SetConfigName("config")
	}

	// A missing default config file is fine; an explicit one must exist and parse.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) error {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if c.Mode != ModeReplace && c.Mode != ModeSpawn {
		return fmt.Errorf("invalid mode %q (allowed: %s, %s)", c.Mode, ModeReplace, ModeSpawn)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	C = c
	return nil
}
