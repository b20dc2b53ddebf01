package framer

import (
	"io"

	"github.com/WuKongIM/wkfcgi/pkg/wklog"
)

type Options struct {
	// Log receives framer diagnostics. Defaults to a discarding logger.
	Log wklog.Log
	// Sink is where Flush writes outbound bytes.
	Sink io.Writer
	// ChunkSize caps each write to Sink. 0 writes everything queued at once.
	ChunkSize int
	// Paused starts the framer with the flow-control gate closed.
	Paused bool
}

func NewOptions() *Options {
	return &Options{
		Log: wklog.Nop(),
	}
}

type Option func(opts *Options)

func WithLog(v wklog.Log) Option {
	return func(opts *Options) {
		opts.Log = v
	}
}

func WithSink(v io.Writer) Option {
	return func(opts *Options) {
		opts.Sink = v
	}
}

// WithChunkSize sets the largest chunk handed to the sink per write.
func WithChunkSize(v int) Option {
	return func(opts *Options) {
		opts.ChunkSize = v
	}
}

func WithPaused(v bool) Option {
	return func(opts *Options) {
		opts.Paused = v
	}
}
