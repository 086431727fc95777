// Package logging provides the leveled, optionally colored console logger
// used by every command. It is a thin printf-style facade over a zap core tee:
// INFO/SUCCESS/WARN/DEBUG go to stdout, ERROR to stderr, and everything is
// mirrored uncolored to the optional log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backmassage/ogimage/internal/config"
	"github.com/backmassage/ogimage/internal/term"
)

// SuccessLevel is a custom zap level for completed work. It sorts below
// DebugLevel, so enablers admit it explicitly.
const SuccessLevel = zapcore.DebugLevel - 1

const timeLayout = "2006-01-02 15:04:05"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	mu   sync.Mutex
	z    *zap.Logger
	file *os.File
}

// NewLogger configures terminal colors from cfg and builds the console and
// file cores. Call Close() when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	color := term.Configure(cfg.ColorMode)
	enabled := levelFilter(cfg.Verbose)

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(color), zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return enabled(lvl) && lvl < zapcore.ErrorLevel
			})),
		zapcore.NewCore(newEncoder(color), zapcore.Lock(os.Stderr),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			})),
	}

	l := &Logger{}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		l.file = f
		cores = append(cores, zapcore.NewCore(newEncoder(false), zapcore.AddSync(f), zap.LevelEnablerFunc(enabled)))
	}

	l.z = zap.New(zapcore.NewTee(cores...))
	return l, nil
}

// New returns an uncolored logger writing every level to w. Used by tests
// and by callers that capture output.
func New(w io.Writer, verbose bool) *Logger {
	core := zapcore.NewCore(newEncoder(false), zapcore.Lock(zapcore.AddSync(w)), zap.LevelEnablerFunc(levelFilter(verbose)))
	return &Logger{z: zap.New(core)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// levelFilter admits SUCCESS, INFO and above, plus DEBUG when verbose.
func levelFilter(verbose bool) func(zapcore.Level) bool {
	floor := zapcore.InfoLevel
	if verbose {
		floor = zapcore.DebugLevel
	}
	return func(lvl zapcore.Level) bool {
		return lvl == SuccessLevel || lvl >= floor
	}
}

func newEncoder(color bool) zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      levelEncoder(color),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
}

// levelEncoder renders "[LEVEL]", colored per level when color is set.
func levelEncoder(color bool) zapcore.LevelEncoder {
	return func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label, c := levelLabel(lvl)
		if color && c != "" {
			enc.AppendString(c + "[" + label + "]" + term.NC)
			return
		}
		enc.AppendString("[" + label + "]")
	}
}

func levelLabel(lvl zapcore.Level) (string, string) {
	switch lvl {
	case SuccessLevel:
		return "SUCCESS", term.Green
	case zapcore.DebugLevel:
		return "DEBUG", term.Cyan
	case zapcore.InfoLevel:
		return "INFO", term.Blue
	case zapcore.WarnLevel:
		return "WARN", term.Yellow
	default:
		return "ERROR", term.Red
	}
}

// Close flushes the cores and closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.z.Sync() // stdout/stderr Sync fails on some platforms; ignore.
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Zap exposes the underlying structured logger for components that log with fields.
func (l *Logger) Zap() *zap.Logger { return l.z }

func (l *Logger) log(lvl zapcore.Level, format string, args []interface{}) {
	if ce := l.z.Check(lvl, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(zapcore.InfoLevel, format, args)
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.log(SuccessLevel, format, args)
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(zapcore.WarnLevel, format, args)
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, format, args)
}

// Debug logs at DEBUG level (cyan) only when the logger is verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(zapcore.DebugLevel, format, args)
}
