package fcgistream

import "github.com/WuKongIM/wkfcgi/pkg/wklog"

type Options struct {
	// ReadBufferSize is the size of each read from the underlying reader.
	ReadBufferSize int
	Log            wklog.Log
}

func NewOptions() *Options {
	return &Options{
		ReadBufferSize: 1024 * 32,
		Log:            wklog.Nop(),
	}
}

type Option func(opts *Options)

func WithReadBufferSize(v int) Option {
	return func(opts *Options) {
		opts.ReadBufferSize = v
	}
}

func WithLog(v wklog.Log) Option {
	return func(opts *Options) {
		opts.Log = v
	}
}
