package fcgiserver

import (
	"time"

	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	// Addr is the listen addr  example: tcp://127.0.0.1:9000
	Addr string
	// Multicore runs one event loop per CPU.
	Multicore bool
	// NumEventLoop overrides the number of event loops when > 0.
	NumEventLoop int
	// ChunkSize caps each write of outbound records to a connection. 0 means unbounded.
	ChunkSize int
	// TCPKeepAlive sets up a duration for (SO_KEEPALIVE) socket option.
	TCPKeepAlive time.Duration
	// StartTimeout bounds how long Start waits for the listener to come up.
	StartTimeout time.Duration
	// Registry receives the server metrics. A private registry is used when nil.
	Registry *prometheus.Registry
	Log      *wklog.Logger
}

func NewOptions() *Options {
	return &Options{
		Addr:         "tcp://127.0.0.1:9000",
		StartTimeout: time.Second * 10,
		Log:          wklog.Nop(),
	}
}

type Option func(opts *Options)

// WithAddr set listen addr
func WithAddr(v string) Option {
	return func(opts *Options) {
		opts.Addr = v
	}
}

func WithMulticore(v bool) Option {
	return func(opts *Options) {
		opts.Multicore = v
	}
}

func WithNumEventLoop(v int) Option {
	return func(opts *Options) {
		opts.NumEventLoop = v
	}
}

func WithChunkSize(v int) Option {
	return func(opts *Options) {
		opts.ChunkSize = v
	}
}

// WithTCPKeepAlive sets up a duration for (SO_KEEPALIVE) socket option.
func WithTCPKeepAlive(v time.Duration) Option {
	return func(opts *Options) {
		opts.TCPKeepAlive = v
	}
}

func WithRegistry(v *prometheus.Registry) Option {
	return func(opts *Options) {
		opts.Registry = v
	}
}

func WithLog(v *wklog.Logger) Option {
	return func(opts *Options) {
		opts.Log = v
	}
}
