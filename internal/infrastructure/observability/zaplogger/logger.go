package zaplogger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// SystemTraceID marks log lines emitted outside any request or trace.
	SystemTraceID = "system"
	SystemSpanID  = "system"
)

type Config struct {
	Service string
	Env     string
	// Level is a zap level name such as "debug" or "info". Empty means info.
	Level string
	// File, when set, duplicates every entry to that path.
	File string
}

// Logger adapts a *zap.Logger to observability.Logger.
type Logger struct{ l *zap.Logger }

// New builds a JSON production logger writing to stdout.
func New(cfg Config) (*Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stdout"}
	zcfg.ErrorOutputPaths = []string{"stdout"}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("zaplogger: level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}

	if cfg.File != "" {
		if err := ensureLogFile(cfg.File); err != nil {
			return nil, fmt.Errorf("zaplogger: prepare log file: %w", err)
		}
		zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.File)
		zcfg.ErrorOutputPaths = append(zcfg.ErrorOutputPaths, cfg.File)
	}

	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zcfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	zcfg.InitialFields = map[string]any{}
	if cfg.Service != "" {
		zcfg.InitialFields["service_name"] = cfg.Service
	}
	if cfg.Env != "" {
		zcfg.InitialFields["env"] = cfg.Env
	}

	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("zaplogger: build: %w", err)
	}
	return &Logger{l: l}, nil
}

// Wrap adapts an existing zap logger, e.g. one built by zaptest.
func Wrap(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{l: l}
}

// Zap exposes the underlying logger for libraries that want one.
func (z *Logger) Zap() *zap.Logger { return z.l }

// System returns a logger tagged with the system trace and span ids.
func (z *Logger) System() observability.Logger {
	return z.With(
		observability.F("trace_id", SystemTraceID),
		observability.F("span_id", SystemSpanID),
	)
}

func (z *Logger) With(fields ...observability.Field) observability.Logger {
	if len(fields) == 0 {
		return z
	}
	return &Logger{l: z.l.With(toZapFields(fields)...)}
}

func (z *Logger) Debug(msg string, fields ...observability.Field) {
	z.l.Debug(msg, toZapFields(fields)...)
}
func (z *Logger) Info(msg string, fields ...observability.Field) {
	z.l.Info(msg, toZapFields(fields)...)
}
func (z *Logger) Warn(msg string, fields ...observability.Field) {
	z.l.Warn(msg, toZapFields(fields)...)
}
func (z *Logger) Error(msg string, fields ...observability.Field) {
	z.l.Error(msg, toZapFields(fields)...)
}

// Sync flushes any buffered log entries. Safe to call on shutdown.
func (z *Logger) Sync() error {
	return z.l.Sync()
}

func toZapFields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func ensureLogFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		f, createErr := os.OpenFile(path, os.O_CREATE, 0o644)
		if createErr != nil {
			return createErr
		}
		_ = f.Close()
	}
	return nil
}
