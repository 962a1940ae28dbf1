package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output destinations besides a file path.
const (
	OutputNone   = "none"
	OutputStderr = "stderr"
)

var (
	l    *zap.Logger
	once sync.Once
	logW io.WriteCloser
)

// Define logger behavior
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	OutputFile string // file path, "stderr", or ""/"none" to discard
}

// Init builds the process logger once. An unknown level is an error and
// leaves L a no-op logger.
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		var lvl zapcore.Level
		if err = lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			err = fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
			return
		}

		if cfg.OutputFile == "" || cfg.OutputFile == OutputNone {
			l = zap.NewNop()
			return
		}

		var enc zapcore.Encoder
		if cfg.Format == "json" {
			enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		} else {
			encCfg := zap.NewDevelopmentEncoderConfig()
			if cfg.OutputFile == OutputStderr {
				encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			}
			enc = zapcore.NewConsoleEncoder(encCfg)
		}

		var ws zapcore.WriteSyncer

		if cfg.OutputFile == OutputStderr {
			ws = zapcore.Lock(zapcore.AddSync(os.Stderr))
		} else {
			dir := filepath.Dir(cfg.OutputFile)
			if dir != "." {
				if err = os.MkdirAll(dir, 0755); err != nil {
					return
				}
			}
			logW, err = os.OpenFile(cfg.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return
			}
			ws = zapcore.AddSync(logW)
		}

		core := zapcore.NewCore(enc, ws, lvl)
		l = zap.New(core).With(zap.Int("pid", os.Getpid()))
	})

	return err
}

// L returns the process logger. Before Init it is a no-op logger.
func L() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Flush writes buffered entries without closing the output.
func Flush() {
	if l != nil {
		_ = l.Sync()
	}
}

// Sync flushes buffers and closes the log file.
func Sync() {
	if l != nil {
		_ = l.Sync()
	}
	if logW != nil {
		_ = logW.Close()
		logW = nil
	}
}
