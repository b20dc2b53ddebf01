package server

import (
	"context"
	"net/http"
	"time"

	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MetricsServer exposes /metrics, and pprof when enabled, over HTTP.
type MetricsServer struct {
	r    *gin.Engine
	srv  *http.Server
	addr string
	wklog.Log
}

func NewMetricsServer(s *Server) *MetricsServer {
	r := gin.New()
	r.Use(gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if s.opts.PprofOn {
		pprof.Register(r) // 注册pprof
	}

	ms := &MetricsServer{
		r:    r,
		addr: s.opts.MetricsAddr,
		Log:  s.logger.Named("MetricsServer"),
	}
	r.Use(ms.logRequest)
	r.GET("/metrics", gin.WrapH(s.fcgiServer.MetricsHandler()))

	ms.srv = &http.Server{
		Addr:              ms.addr,
		Handler:           r,
		ReadHeaderTimeout: time.Second * 5,
	}
	return ms
}

func (m *MetricsServer) logRequest(c *gin.Context) {
	start := time.Now()
	c.Next()
	m.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("cost", time.Since(start)),
	)
}

// Serve blocks until Shutdown.
func (m *MetricsServer) Serve() error {
	m.Info("MetricsServer started", zap.String("addr", m.addr))
	err := m.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.Error("metrics server stopped", zap.Error(err))
		return err
	}
	return nil
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// Handler returns the gin engine, mainly for tests.
func (m *MetricsServer) Handler() http.Handler {
	return m.r
}
