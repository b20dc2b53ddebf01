package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/WuKongIM/wkfcgi/internal/options"
	"github.com/WuKongIM/wkfcgi/pkg/fcgiserver"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/WuKongIM/wkfcgi/version"
	"github.com/gin-gonic/gin"
	"github.com/judwhite/go-svc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	opts          *options.Options
	logger        *wklog.Logger
	fcgiServer    *fcgiserver.Server
	tap           *recordTap
	metricsServer *MetricsServer
	eg            errgroup.Group
	start         time.Time // 服务开始时间
	wklog.Log
}

func New(opts *options.Options, logger *wklog.Logger) *Server {
	tap := newRecordTap(logger.Named("Records"))
	s := &Server{
		opts:   opts,
		logger: logger,
		tap:    tap,
		Log:    logger.Named("Server"),
	}
	s.fcgiServer = fcgiserver.New(tap,
		fcgiserver.WithAddr(opts.Addr),
		fcgiserver.WithMulticore(opts.Multicore),
		fcgiserver.WithChunkSize(opts.Framer.ChunkSize),
		fcgiserver.WithLog(logger),
	)
	if opts.MetricsOn() {
		gin.SetMode(opts.GinMode)
		s.metricsServer = NewMetricsServer(s)
	}
	return s
}

func (s *Server) Init(env svc.Environment) error {
	if env.IsWindowsService() {
		dir := filepath.Dir(os.Args[0])
		return os.Chdir(dir)
	}
	return nil
}

func (s *Server) Start() error {
	s.start = time.Now()
	s.Info("wkfcgi is Starting...")
	s.Info(fmt.Sprintf("  Mode:  %s", s.opts.Mode))
	s.Info(fmt.Sprintf("  Version:  %s", version.Version))
	s.Info(fmt.Sprintf("  Git:  %s", fmt.Sprintf("%s-%s", version.CommitDate, version.Commit)))
	s.Info(fmt.Sprintf("  Go build:  %s", runtime.Version()))
	s.Info(fmt.Sprintf("  Listen:  %s", s.opts.Addr))

	if err := s.fcgiServer.Start(); err != nil {
		return errors.Wrap(err, "start fcgi server")
	}
	if s.metricsServer != nil {
		s.Info(fmt.Sprintf("  Metrics:  %s", s.opts.MetricsAddr))
		s.eg.Go(s.metricsServer.Serve)
	}
	return nil
}

func (s *Server) Stop() error {
	s.Info("Server is Stoping...")
	defer s.Info("Server is exited", zap.Duration("uptime", time.Since(s.start)))

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StopTimeout)
	defer cancel()

	var errs []error
	if err := s.fcgiServer.Stop(ctx); err != nil {
		errs = append(errs, errors.Wrap(err, "stop fcgi server"))
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "stop metrics server"))
		}
	}
	if err := s.eg.Wait(); err != nil {
		errs = append(errs, err)
	}
	s.Info("records seen", zap.Int64("records", s.tap.records.Load()), zap.Int64("bytes", s.tap.bytes.Load()))
	_ = s.logger.Sync()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// FCGIServer exposes the record server, mainly for tests.
func (s *Server) FCGIServer() *fcgiserver.Server {
	return s.fcgiServer
}
