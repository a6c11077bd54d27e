package logger

import (
	"context"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// global is the shared logger used when the context carries none.
	//nolint:gochecknoglobals // Logger is used all over the project, so it's okay.
	global atomic.Pointer[zap.SugaredLogger]
	// level is shared by every logger built here so SetLevel reaches all of them.
	//nolint:gochecknoglobals // Hot reload needs one atomic level.
	level = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() { //nolint:gochecknoinits // If the logging level is not set, the application will have no logs.
	global.Store(New(level))
}

// Format selects the encoder.
type Format string

const (
	// FormatConsole renders colored human-readable lines.
	FormatConsole Format = "console"
	// FormatJSON renders one JSON object per entry.
	FormatJSON Format = "json"
)

// New creates a console logger writing to stdout.
// A nil level means the shared level, so SetLevel keeps working.
func New(enabler zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	return NewWithFormat(FormatConsole, enabler, options...)
}

// NewWithFormat creates a stdout logger with the requested encoder.
func NewWithFormat(format Format, enabler zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	if enabler == nil {
		enabler = level
	}

	//nolint:exhaustruct // Default values are fine for the remaining keys.
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "message",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: ", ",
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	if format == FormatJSON {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), enabler), options...).Sugar()
}

// Configure replaces the global logger from textual settings.
// Unknown levels fall back to info and are reported with ok=false.
func Configure(levelName, format string) bool {
	lvl, ok := ParseLogLevel(levelName)

	level.SetLevel(lvl)
	global.Store(NewWithFormat(Format(strings.ToLower(strings.TrimSpace(format))), level))

	return ok
}

// ParseLogLevel converts debug, info, warn or error to a zap level.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Level returns the shared logging level.
func Level() zapcore.Level {
	return level.Level()
}

// SetLevel changes the shared level at runtime.
func SetLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}

// DebugKV writes a message with key-value pairs at debug level.
func DebugKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Debugw(message, kvs...)
}

// Info writes an info message.
func Info(ctx context.Context, args ...any) {
	FromContext(ctx).Info(args...)
}

// InfoKV writes a message with key-value pairs at info level.
func InfoKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Infow(message, kvs...)
}

// WarnKV writes a message with key-value pairs at warn level.
func WarnKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Warnw(message, kvs...)
}

// ErrorKV writes a message with key-value pairs at error level.
func ErrorKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Errorw(message, kvs...)
}
