package wklog

import (
	"io"

	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level    zapcore.Level
	LogDir   string // 为空时不写文件
	LineNum  bool
	NoStdout bool
	Console  io.Writer // 控制台输出，为空时为 os.Stdout
	// MaxSize is the size in megabytes of a log file before it is rotated.
	MaxSize    int
	MaxBackups int
	MaxAge     int // days
}

func NewOptions() *Options {

	return &Options{
		Level:      zapcore.InfoLevel,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     28,
	}
}
