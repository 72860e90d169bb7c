package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	baseOnce sync.Once
	base     *zap.Logger
)

// Logger writes one JSON line per call with the service and action that produced it.
type Logger struct {
	service string
	z       *zap.Logger
}

func New(service string) *Logger {
	return &Logger{service: service, z: root().With(zap.String("service", service))}
}

// NewWithZap is used by tests to capture output through an observer core.
func NewWithZap(service string, z *zap.Logger) *Logger {
	return &Logger{service: service, z: z.With(zap.String("service", service))}
}

// Nop discards everything.
func Nop() *Logger { return &Logger{service: "nop", z: zap.NewNop()} }

func (l *Logger) Service() string { return l.service }

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{service: l.service, z: l.z.With(toZap(fields)...)}
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.z.Info(action, append(toZap(fields), zap.String("action", action))...)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.z.Debug(action, append(toZap(fields), zap.String("action", action))...)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.z.Warn(action, append(toZap(fields), zap.String("action", action))...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	zf := append(toZap(fields), zap.String("action", action))
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.z.Error(action, zf...)
}

func (l *Logger) Sync() { _ = l.z.Sync() }

func toZap(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func root() *zap.Logger {
	baseOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		cfg.Level = zap.NewAtomicLevelAt(level(os.Getenv("LOG_LEVEL")))
		z, err := cfg.Build()
		if err != nil {
			z = zap.NewNop()
		}
		base = z.With(zap.String("hostname", hostname()))
	})
	return base
}

func level(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func hostname() string { h, _ := os.Hostname(); return h }
