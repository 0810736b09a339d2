package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const LoggerKeyForContext contextKey = "logger"

// Severity ordering, low to high: debug < verbose < info < warn < error.
const (
	LevelDebug   = slog.LevelDebug
	LevelVerbose = slog.Level(-2)
	LevelInfo    = slog.LevelInfo
	LevelWarn    = slog.LevelWarn
	LevelError   = slog.LevelError
)

type Logger struct {
	*slog.Logger
}

type Options struct {
	// Level is the minimum severity; records below it are dropped before formatting.
	Level slog.Leveler
	// Output receives JSON records. Defaults to stdout.
	Output io.Writer
	// Fallback receives a raw line when a record cannot be written to Output. Defaults to stderr.
	Fallback io.Writer
}

func NewLogger(opts Options) *Logger {
	if opts.Level == nil {
		opts.Level = LevelInfo
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Fallback == nil {
		opts.Fallback = os.Stderr
	}

	inner := slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
		// Filtering happens in contextHandler.Enabled; the inner handler accepts everything.
		Level:       slog.Level(-1 << 10),
		ReplaceAttr: replaceAttr,
	})

	return &Logger{
		Logger: slog.New(newContextHandler(inner, opts.Level, opts.Fallback)),
	}
}

// NewLoggerWithJSONOutput builds the process logger on stdout, honouring LOG_LEVEL.
func NewLoggerWithJSONOutput() *Logger {
	level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return NewLogger(Options{Level: level})
}

// ParseLevel maps a configured level name to a severity. Unknown names yield info and false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "verbose":
		return LevelVerbose, true
	case "info", "log":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

func (l *Logger) Verbose(msg string, args ...any) {
	l.Logger.Log(context.Background(), LevelVerbose, msg, args...)
}

func (l *Logger) VerboseContext(ctx context.Context, msg string, args ...any) {
	l.Logger.Log(ctx, LevelVerbose, msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithRequestContext returns a logger bound to the request scope carried by ctx, so that
// records emitted without a context still carry the request's fields. Outside a scope the
// logger is returned unchanged.
func (l *Logger) WithRequestContext(ctx context.Context) *Logger {
	h, ok := l.Logger.Handler().(*contextHandler)
	if !ok {
		return l
	}

	bound := h.bind(ctx)
	if bound == h {
		return l
	}

	return &Logger{Logger: slog.New(bound)}
}

func GetLoggerInstanceFromContext(ctx context.Context, fallbackLogger *Logger) *Logger {
	if ctx != nil {
		if logger := ctx.Value(LoggerKeyForContext); logger != nil {
			if l, ok := logger.(*Logger); ok {
				return l
			}
		}

		if fallbackLogger != nil {
			return fallbackLogger.WithRequestContext(ctx)
		}
		return NewLoggerWithJSONOutput().WithRequestContext(ctx)
	}

	if fallbackLogger != nil {
		return fallbackLogger
	}

	return NewLoggerWithJSONOutput()
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}

	switch a.Key {
	case slog.TimeKey:
		return slog.String("timestamp", a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			return slog.String("level", levelName(lvl))
		}
	case slog.MessageKey:
		a.Key = "message"
	}

	return a
}

func levelName(lvl slog.Level) string {
	switch {
	case lvl < LevelVerbose:
		return "debug"
	case lvl < LevelInfo:
		return "verbose"
	case lvl < LevelWarn:
		return "info"
	case lvl < LevelError:
		return "warn"
	default:
		return "error"
	}
}
