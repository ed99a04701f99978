package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Service tags every record written by New.
const Service = "compliance-platform"

// New returns the process logger: JSON on stdout, debug level in local/dev, every
// record tagged with service and env.
func New(appEnv string) *slog.Logger {
	return newLogger(os.Stdout, appEnv)
}

func newLogger(w io.Writer, appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: redact})
	return slog.New(h).With("service", Service, "env", appEnv)
}

// secretKeys never reach the log output.
var secretKeys = map[string]struct{}{
	"authorization": {},
	"access_token":  {},
	"refresh_token": {},
	"jwt_secret":    {},
	"password":      {},
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[a.Key]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithAttrs returns ctx carrying the context logger enriched with args,
// e.g. the caller's tenant once the token is verified.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return With(ctx, From(ctx).With(args...))
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
