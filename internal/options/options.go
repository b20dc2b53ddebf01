package options

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Mode string

const (
	// DebugMode logs at debug level unless logger.level says otherwise.
	DebugMode Mode = "debug"
	// ReleaseMode logs at info level unless logger.level says otherwise.
	ReleaseMode Mode = "release"
)

type Options struct {
	vp          *viper.Viper
	Mode        Mode   // 模式 debug 测试 release 正式
	RootDir     string // 根目录
	Addr        string // 监听地址 例如：tcp://0.0.0.0:9000
	MetricsAddr string // prometheus 指标地址，为空则不开启 例如：0.0.0.0:9090
	GinMode     string // gin框架的模式
	PprofOn     bool   // 是否在指标地址上开启pprof
	Multicore   bool

	Framer struct {
		ChunkSize int // 每次写出的最大字节数，0 为不限制
	}

	Logger struct {
		Dir     string // 日志存储目录
		Level   zapcore.Level
		LineNum bool // 是否显示代码行数
	}

	StopTimeout time.Duration
}

func New(op ...Option) *Options {
	opts := &Options{
		Mode:        DebugMode,
		RootDir:     "wkfcgidata",
		Addr:        "tcp://0.0.0.0:9000",
		GinMode:     gin.ReleaseMode,
		StopTimeout: time.Second * 10,
	}
	opts.Logger.Dir = "logs"
	opts.Logger.Level = zapcore.InfoLevel
	for _, o := range op {
		o(opts)
	}
	return opts
}

func (o *Options) ConfigureWithViper(vp *viper.Viper) {
	o.vp = vp

	o.RootDir = o.getString("rootDir", o.RootDir)
	modeStr := o.getString("mode", string(o.Mode))
	if strings.TrimSpace(modeStr) == "" {
		o.Mode = DebugMode
	} else {
		o.Mode = Mode(modeStr)
	}

	o.Addr = o.getString("addr", o.Addr)
	o.MetricsAddr = o.getString("metricsAddr", o.MetricsAddr)
	o.GinMode = o.getString("ginMode", o.GinMode)
	o.PprofOn = o.getBool("pprofOn", o.PprofOn)
	o.Multicore = o.getBool("multicore", o.Multicore)
	o.StopTimeout = o.getDuration("stopTimeout", o.StopTimeout)

	o.Framer.ChunkSize = o.getInt("framer.chunkSize", o.Framer.ChunkSize)

	o.configureLog(vp)
}

func (o *Options) configureLog(vp *viper.Viper) {
	logLevel := vp.GetInt("logger.level")
	// level
	if logLevel == 0 { // 没有设置
		if o.Mode == DebugMode {
			logLevel = int(zapcore.DebugLevel)
		} else {
			logLevel = int(zapcore.InfoLevel)
		}
	} else {
		logLevel = logLevel - 2
	}
	o.Logger.Level = zapcore.Level(logLevel)
	o.Logger.Dir = o.getString("logger.dir", o.Logger.Dir)
	if strings.TrimSpace(o.Logger.Dir) == "" {
		o.Logger.Dir = "logs"
	}
	if !filepath.IsAbs(strings.TrimSpace(o.Logger.Dir)) {
		o.Logger.Dir = filepath.Join(o.RootDir, o.Logger.Dir)
	}
	o.Logger.LineNum = o.getBool("logger.lineNum", o.Logger.LineNum)
}

// MetricsOn 是否开启了 prometheus 指标
func (o *Options) MetricsOn() bool {
	return strings.TrimSpace(o.MetricsAddr) != ""
}

func (o *Options) getString(key string, defaultValue string) string {
	v := o.vp.GetString(key)
	if v == "" {
		return defaultValue
	}
	return v
}

func (o *Options) getInt(key string, defaultValue int) int {
	v := o.vp.GetInt(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

func (o *Options) getBool(key string, defaultValue bool) bool {
	objV := o.vp.Get(key)
	if objV == nil {
		return defaultValue
	}
	return cast.ToBool(objV)
}

func (o *Options) getDuration(key string, defaultValue time.Duration) time.Duration {
	v := o.vp.GetDuration(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

type Option func(opts *Options)

func WithAddr(addr string) Option {
	return func(opts *Options) {
		opts.Addr = addr
	}
}

func WithMetricsAddr(addr string) Option {
	return func(opts *Options) {
		opts.MetricsAddr = addr
	}
}

func WithPprofOn(on bool) Option {
	return func(opts *Options) {
		opts.PprofOn = on
	}
}

func WithLoggerDir(dir string) Option {
	return func(opts *Options) {
		opts.Logger.Dir = dir
	}
}

func WithLoggerLevel(level zapcore.Level) Option {
	return func(opts *Options) {
		opts.Logger.Level = level
	}
}
