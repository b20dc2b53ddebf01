package wklog

import (
	"io"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the logging capability handed to components at construction.
type Log interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Logger writes info logs to stdout and info.log and errors additionally to error.log.
type Logger struct {
	logger      *zap.Logger
	errorLogger *zap.Logger
	atom        zap.AtomicLevel
	prefix      string
}

func New(opts *Options) *Logger {
	if opts == nil {
		opts = NewOptions()
	}
	atom := zap.NewAtomicLevelAt(opts.Level)

	loggerOpts := make([]zap.Option, 0)
	if opts.LineNum {
		loggerOpts = append(loggerOpts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	writers := make([]zapcore.WriteSyncer, 0)
	if !opts.NoStdout {
		var console io.Writer = os.Stdout
		if opts.Console != nil {
			console = opts.Console
		}
		writers = append(writers, zapcore.AddSync(console))
	}

	// ====================== info ==========================
	infoWriters := writers
	if opts.LogDir != "" {
		infoWriters = append(infoWriters, zapcore.AddSync(newRotateWriter(opts, "info.log")))
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		zapcore.NewMultiWriteSyncer(infoWriters...),
		atom,
	)
	logger := zap.New(core, loggerOpts...)

	// ====================== error ==========================
	errorLogger := logger
	if opts.LogDir != "" {
		core = zapcore.NewCore(
			zapcore.NewJSONEncoder(newEncoderConfig()),
			zapcore.NewMultiWriteSyncer(append(writers, zapcore.AddSync(newRotateWriter(opts, "error.log")))...),
			zap.ErrorLevel,
		)
		errorLogger = zap.New(core, loggerOpts...)
	}

	return &Logger{
		logger:      logger,
		errorLogger: errorLogger,
		atom:        atom,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		logger:      zap.NewNop(),
		errorLogger: zap.NewNop(),
		atom:        zap.NewAtomicLevel(),
	}
}

// FromZap wraps an existing zap logger, e.g. zaptest.NewLogger in tests.
func FromZap(l *zap.Logger) *Logger {
	return &Logger{
		logger:      l,
		errorLogger: l,
		atom:        zap.NewAtomicLevelAt(l.Level()),
	}
}

func newRotateWriter(opts *Options, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path.Join(opts.LogDir, name),
		MaxSize:    opts.MaxSize, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge, // days
	}
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "linenum",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.FullCallerEncoder,
		EncodeName:    zapcore.FullNameEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02T15:04:05.999999999-07:00"))
		},
		EncodeDuration: func(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendInt64(int64(d) / 1000000)
		},
	}
}

// Named returns a child logger whose messages are prefixed with 【prefix】.
func (l *Logger) Named(prefix string) *Logger {
	return &Logger{
		logger:      l.logger,
		errorLogger: l.errorLogger,
		atom:        l.atom,
		prefix:      prefix,
	}
}

func (l *Logger) Level() zapcore.Level {
	return l.atom.Level()
}

func (l *Logger) SetLevel(level zapcore.Level) {
	l.atom.SetLevel(level)
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.logger.Debug(l.format(msg), fields...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.logger.Info(l.format(msg), fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.logger.Warn(l.format(msg), fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.errorLogger.Error(l.format(msg), fields...)
}

func (l *Logger) Sync() error {
	if l.errorLogger != l.logger {
		_ = l.errorLogger.Sync()
	}
	return l.logger.Sync()
}

func (l *Logger) format(msg string) string {
	if l.prefix == "" {
		return msg
	}
	var b strings.Builder
	b.WriteString("【")
	b.WriteString(l.prefix)
	b.WriteString("】")
	b.WriteString(msg)
	return b.String()
}
