package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the application's structured logger. The embedded zap.Logger
// provides Debug/Info/Warn/Error/Fatal.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// Config holds logger configuration
type Config struct {
	// Level is debug, info, warn or error; anything else means info
	Level string
	// Format is json or console
	Format string
	// Output is stdout, stderr or a file path opened for append
	Output string
}

// New creates a new logger instance
func New(cfg Config) (*Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level.SetLevel(parsed)
	}

	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	return &Logger{
		Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
		level:  level,
	}, nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if format == "console" || format == "text" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// With creates a child logger with additional fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), level: l.level}
}

// SetLevel changes the minimum level of this logger and all its children
func (l *Logger) SetLevel(level string) error {
	return l.level.UnmarshalText([]byte(level))
}

// Printf and Fatalf let the logger serve libraries that expect a
// printf-style logger, such as goose.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Infof(format, v...)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Fatalf(format, v...)
}

func String(key, value string) zap.Field                 { return zap.String(key, value) }
func Int(key string, value int) zap.Field                { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field            { return zap.Int64(key, value) }
func Err(err error) zap.Field                            { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field        { return zap.Any(key, value) }
func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }

// DeliveryID and UserID keep the id keys uniform across packages
func DeliveryID(id int64) zap.Field { return zap.Int64("delivery_id", id) }
func UserID(id int64) zap.Field     { return zap.Int64("user_id", id) }
