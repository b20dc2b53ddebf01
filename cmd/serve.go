package cmd

import (
	"github.com/WuKongIM/wkfcgi/internal/server"
	"github.com/judwhite/go-svc"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept FastCGI record streams over TCP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverOpts.Addr, "addr", serverOpts.Addr, "listen address, e.g. tcp://0.0.0.0:9000")
	serveCmd.Flags().StringVar(&serverOpts.MetricsAddr, "metrics-addr", serverOpts.MetricsAddr, "prometheus metrics address, empty to disable")
}

func runServe() error {
	s := server.New(serverOpts, newLogger())
	return svc.Run(s)
}
