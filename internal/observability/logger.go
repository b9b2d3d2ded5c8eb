package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jntagengwa/pathway/auth"
)

// Logger provides structured logging with context awareness.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// Field represents a structured log field.
type Field = zap.Field

// NewLogger builds a zap logger. format is "json" or "console".
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json", "":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// AuthFields returns the caller's ids as log fields, or nil when no auth
// context is installed.
func AuthFields(ctx context.Context) []Field {
	ac, ok := auth.FromContext(ctx)
	if !ok {
		return nil
	}
	return []Field{
		zap.String("user_id", ac.User.UserID),
		zap.String("org_id", ac.Org.OrgID),
		zap.String("tenant_id", ac.Tenant.TenantID),
	}
}

type contextLogger struct {
	base *zap.Logger
}

// NewContextLogger wraps base so every entry carries the caller's ids.
func NewContextLogger(base *zap.Logger) Logger {
	return &contextLogger{base: base}
}

func (l *contextLogger) with(ctx context.Context, fields []Field) []Field {
	return append(AuthFields(ctx), fields...)
}

func (l *contextLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.base.Debug(msg, l.with(ctx, fields)...)
}

func (l *contextLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.base.Info(msg, l.with(ctx, fields)...)
}

func (l *contextLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.base.Warn(msg, l.with(ctx, fields)...)
}

func (l *contextLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.base.Error(msg, l.with(ctx, fields)...)
}
