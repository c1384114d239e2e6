package log

import (
	"context"
	"io"
	"log/slog"
)

// SetupLogger installs a slog JSON handler emitting Cloud Logging field names
// as the process-wide provider. Errors logged through it carry a stacktrace attribute.
func SetupLogger(w io.Writer, level Level) {
	lv := &slog.LevelVar{}
	lv.Set(slog.Level(level))
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     lv,
		// Replace attributes to convert to CloudLogging format.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			case slog.SourceKey:
				attr.Key = "logging.googleapis.com/sourceLocation"
			}
			return attr
		},
	}
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
	sl := slog.New(handler)
	slog.SetDefault(sl)
	SetProvider(&slogProvider{base: sl, level: lv})
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

type slogLogger struct {
	sl *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger to the Logger interface.
func NewSlogLogger(sl *slog.Logger) Logger {
	return &slogLogger{sl: sl}
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.log(slog.LevelDebug, msg, fields) }
func (l *slogLogger) Info(msg string, fields ...any)  { l.log(slog.LevelInfo, msg, fields) }
func (l *slogLogger) Warn(msg string, fields ...any)  { l.log(slog.LevelWarn, msg, fields) }
func (l *slogLogger) Error(msg string, fields ...any) { l.log(slog.LevelError, msg, fields) }

func (l *slogLogger) With(fields ...any) Logger {
	_, kv := splitLeadingError(fields)
	return &slogLogger{sl: l.sl.With(normalizeFields(kv)...)}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.sl.Enabled(ctx, slog.Level(level))
}

func (l *slogLogger) log(level slog.Level, msg string, fields []any) {
	err, kv := splitLeadingError(fields)
	args := normalizeFields(kv)
	if err != nil {
		args = append([]any{ErrAttr(err)}, args...)
	}
	l.sl.Log(context.Background(), level, msg, args...)
}

type slogProvider struct {
	base  *slog.Logger
	level *slog.LevelVar
}

func (p *slogProvider) GetLogger() Logger {
	return NewSlogLogger(p.base)
}

func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return NewSlogLogger(p.base.With(ComponentKey, name))
}

func (p *slogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}
