package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/sciguard/pkg/errors"
)

// zerologLogger adapts zerolog to the Logger interface.
// The level is shared with the provider so SetLevel affects loggers already handed out.
type zerologLogger struct {
	zl    zerolog.Logger
	level *atomic.Int64
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(zl zerolog.Logger, level Level) Logger {
	lv := &atomic.Int64{}
	lv.Store(int64(level))
	return &zerologLogger{zl: zl, level: lv}
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	if l.enabled(LevelDebug) {
		l.emit(l.zl.Debug(), msg, fields)
	}
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	if l.enabled(LevelInfo) {
		l.emit(l.zl.Info(), msg, fields)
	}
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	if l.enabled(LevelWarn) {
		l.emit(l.zl.Warn(), msg, fields)
	}
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	if l.enabled(LevelError) {
		l.emit(l.zl.Error(), msg, fields)
	}
}

func (l *zerologLogger) With(fields ...any) Logger {
	_, kv := splitLeadingError(fields)
	return &zerologLogger{
		zl:    l.zl.With().Fields(normalizeFields(kv)).Logger(),
		level: l.level,
	}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.enabled(level)
}

func (l *zerologLogger) enabled(level Level) bool {
	return int64(level) >= l.level.Load()
}

func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	err, kv := splitLeadingError(fields)
	if err != nil {
		e = e.Err(err)
		if st := extractStacktrace(err); st != "" {
			e = e.Str(StacktraceAttrKey, st)
		}
	}
	if len(kv) > 0 {
		e = e.Fields(normalizeFields(kv))
	}
	e.Msg(msg)
}

// splitLeadingError pulls an error passed as the first field out of the key/value list.
func splitLeadingError(fields []any) (error, []any) {
	if len(fields) == 0 {
		return nil, fields
	}
	if err, ok := fields[0].(error); ok && len(fields)%2 == 1 {
		return err, fields[1:]
	}
	return nil, fields
}

// normalizeFields makes every key a string. A dangling key gets a nil value.
func normalizeFields(fields []any) []any {
	out := make([]any, 0, len(fields)+1)
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		var val any
		if i+1 < len(fields) {
			val = fields[i+1]
		}
		out = append(out, key, val)
	}
	return out
}

// ZerologProvider hands out zerolog-backed loggers that share one writer and one level.
type ZerologProvider struct {
	base  zerolog.Logger
	level *atomic.Int64
}

// NewZerologProvider creates a provider writing JSON lines to w.
// When console is true output is formatted for humans instead.
func NewZerologProvider(w io.Writer, level Level, console bool) *ZerologProvider {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lv := &atomic.Int64{}
	lv.Store(int64(level))
	return &ZerologProvider{
		base:  zerolog.New(w).Level(zerolog.TraceLevel).With().Timestamp().Logger(),
		level: lv,
	}
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: p.base, level: p.level}
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger(), level: p.level}
}

// SetLevel implements LoggerProvider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int64(level))
}

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo, false)
)

func init() {
	scierrors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w))
	})
}

// SetProvider replaces the process-wide logger provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
}

// SetOutput installs a zerolog provider writing to w at the given level.
func SetOutput(w io.Writer, level Level, console bool) {
	SetProvider(NewZerologProvider(w, level, console))
}

// GetLogger returns the default logger of the process-wide provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider.GetLogger()
}

// GetLoggerWithName returns a component logger of the process-wide provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level of the process-wide provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	globalProvider.SetLevel(level)
}
