// Package fcgiserver accepts byte-stream connections on a gnet event loop and
// hands each connection's reassembled records to a Handler.
package fcgiserver

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/WuKongIM/wkfcgi/pkg/fcgiproto"
	"github.com/WuKongIM/wkfcgi/pkg/framer"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/panjf2000/gnet/v2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrStartTimeout = errors.New("fcgiserver: timed out waiting for the listener")

// Handler receives every record of a connection in wire order.
type Handler interface {
	OnRecord(ctx *Context, rec fcgiproto.Record)
}

type HandlerFunc func(ctx *Context, rec fcgiproto.Record)

func (h HandlerFunc) OnRecord(ctx *Context, rec fcgiproto.Record) {
	h(ctx, rec)
}

type Server struct {
	opts    *Options
	handler Handler
	metrics *metrics
	connID  atomic.Int64

	engine  gnet.Engine
	bootC   chan struct{}
	runErrC chan error
	wg      sync.WaitGroup

	log *wklog.Logger
	wklog.Log
}

func New(handler Handler, opt ...Option) *Server {
	opts := NewOptions()
	for _, o := range opt {
		o(opts)
	}
	if opts.Log == nil {
		opts.Log = wklog.Nop()
	}
	log := opts.Log.Named("FCGIServer")
	return &Server{
		opts:    opts,
		handler: handler,
		metrics: newMetrics(opts.Registry),
		bootC:   make(chan struct{}),
		runErrC: make(chan error, 1),
		log:     opts.Log,
		Log:     log,
	}
}

func (s *Server) Start() error {
	gnetOpts := []gnet.Option{
		gnet.WithMulticore(s.opts.Multicore),
		gnet.WithLogLevel(s.log.Level()),
	}
	if s.opts.NumEventLoop > 0 {
		gnetOpts = append(gnetOpts, gnet.WithNumEventLoop(s.opts.NumEventLoop))
	}
	if s.opts.TCPKeepAlive > 0 {
		gnetOpts = append(gnetOpts, gnet.WithTCPKeepAlive(s.opts.TCPKeepAlive))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := gnet.Run(&eventHandler{s: s}, s.opts.Addr, gnetOpts...); err != nil {
			s.Error("gnet run failed", zap.Error(err))
			s.runErrC <- err
		}
	}()

	select {
	case <-s.bootC:
		s.Info("listening", zap.String("addr", s.opts.Addr))
		return nil
	case err := <-s.runErrC:
		return err
	case <-time.After(s.opts.StartTimeout):
		return ErrStartTimeout
	}
}

func (s *Server) Stop(ctx context.Context) error {
	select {
	case <-s.bootC:
	default:
		return nil
	}
	err := s.engine.Stop(ctx)
	s.wg.Wait()
	return err
}

// MetricsHandler serves the server metrics in the Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.handler()
}

func (s *Server) newContext(c gnet.Conn) *Context {
	ctx := &Context{
		id:   s.connID.Inc(),
		conn: c,
		s:    s,
	}
	ctx.framer = framer.New(&connConsumer{ctx: ctx}, framer.WithLog(s.log.Named("Framer")), framer.WithSink(c), framer.WithChunkSize(s.opts.ChunkSize))
	if err := ctx.framer.Bind(&connSource{conn: c}); err != nil {
		s.Error("bind connection", zap.Error(err))
	}
	return ctx
}

// connConsumer delivers a connection's records to the server handler.
type connConsumer struct {
	ctx *Context
}

func (c *connConsumer) OnRecord(rec fcgiproto.Record) {
	c.ctx.s.metrics.records.WithLabelValues(directionIn).Inc()
	c.ctx.s.handler.OnRecord(c.ctx, rec)
}

func (c *connConsumer) OnEnd() {
	c.ctx.s.Debug("connection stream ended", zap.Int64("id", c.ctx.id))
}

func (c *connConsumer) OnError(err error) {
	c.ctx.s.metrics.errorOccurred(err)
	c.ctx.s.Warn("connection stream failed", zap.Int64("id", c.ctx.id), zap.Error(err))
}

type eventHandler struct {
	gnet.BuiltinEventEngine
	s *Server
}

func (e *eventHandler) OnBoot(eng gnet.Engine) gnet.Action {
	e.s.engine = eng
	close(e.s.bootC)
	return gnet.None
}

func (e *eventHandler) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	c.SetContext(e.s.newContext(c))
	e.s.metrics.connections.Inc()
	return nil, gnet.None
}

func (e *eventHandler) OnTraffic(c gnet.Conn) gnet.Action {
	ctx, ok := c.Context().(*Context)
	if !ok {
		return gnet.Close
	}
	buf, err := c.Next(-1)
	if err != nil {
		e.s.Warn("read inbound buffer", zap.Error(err))
		return gnet.Close
	}
	if len(buf) == 0 {
		return gnet.None
	}
	e.s.metrics.bytes.WithLabelValues(directionIn).Add(float64(len(buf)))

	// gnet reuses buf after this callback returns; the framer keeps chunks.
	chunk := make([]byte, len(buf))
	copy(chunk, buf)
	if _, err := ctx.framer.Write(chunk); err != nil {
		if ctx.framer.Dead() {
			return gnet.None
		}
		return gnet.Close
	}
	return gnet.None
}

func (e *eventHandler) OnClose(c gnet.Conn, err error) gnet.Action {
	e.s.metrics.connections.Dec()
	ctx, ok := c.Context().(*Context)
	if !ok || ctx.framer.Dead() {
		return gnet.None
	}
	if err != nil && !errors.Is(err, io.EOF) {
		ctx.framer.Abort(errors.Wrap(err, "fcgiserver: connection closed"))
	} else if ctx.framer.Writable() {
		_ = ctx.framer.End(nil)
	}
	return gnet.None
}
