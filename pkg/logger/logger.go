// Package logger is a thin zerolog wrapper whose fields travel on the
// request context, so a request_id or pickup_id attached in middleware shows
// up on every line logged further down the call chain.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FormatEnv selects the output encoding; "console" switches to the human-readable writer.
const FormatEnv = "VATAVARAN_LOG_FORMAT"

type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
	// Format overrides FormatEnv when set.
	Format string
}

type Logger struct {
	zl        zerolog.Logger
	warnStack bool
}

// field is a node in an immutable list; child contexts share their parent's tail.
type field struct {
	key    string
	value  any
	parent *field
}

type fieldsKey struct{}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = os.Getenv(FormatEnv)
	}
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &Logger{
		zl:        zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName).Logger(),
		warnStack: opts.WarnStack,
	}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, _ := ctx.Value(fieldsKey{}).(*field)
	return context.WithValue(ctx, fieldsKey{}, &field{key: key, value: value, parent: parent})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	for k, v := range fields {
		ctx = l.WithField(ctx, k, v)
	}
	return ctx
}

func (l *Logger) WithRequestID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "request_id", id)
}

func (l *Logger) WithUserID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "user_id", id)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) WithPickupID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "pickup_id", id)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.emit(ctx, l.zl.Debug(), false).Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.emit(ctx, l.zl.Info(), false).Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	l.emit(ctx, l.zl.Warn(), l.warnStack).Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.emit(ctx, l.zl.Error().Err(err), true).Msg(msg)
}

// emit copies context fields onto the event. The newest value wins when a key
// was attached more than once.
func (l *Logger) emit(ctx context.Context, e *zerolog.Event, withStack bool) *zerolog.Event {
	if e == nil {
		return nil
	}
	if ctx != nil {
		seen := map[string]struct{}{}
		for f, _ := ctx.Value(fieldsKey{}).(*field); f != nil; f = f.parent {
			if _, dup := seen[f.key]; dup {
				continue
			}
			seen[f.key] = struct{}{}
			e = e.Interface(f.key, f.value)
		}
	}
	if withStack {
		e = e.Str("stack", strings.TrimSpace(string(debug.Stack())))
	}
	return e
}
