package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/WuKongIM/wkfcgi/internal/options"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	serverOpts = options.New()
	mode       string
	rootCmd    = &cobra.Command{
		Use:   "wkfcgi",
		Short: "wkfcgi, a FastCGI record framer and record server.",
		Long:  `wkfcgi reassembles FastCGI records from arbitrarily chunked byte streams. It can serve them over TCP or dump them from a captured stream.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "debug", "mode")

	rootCmd.AddCommand(serveCmd, dumpCmd)
}

func initConfig() {
	vp := viper.New()
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", vp.ConfigFileUsed())
		}
	}

	vp.SetEnvPrefix("fcgi")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	_ = vp.BindPFlags(rootCmd.PersistentFlags())
	// 初始化服务配置
	serverOpts.ConfigureWithViper(vp)
}

func newLogger() *wklog.Logger {
	logOpts := wklog.NewOptions()
	logOpts.Level = serverOpts.Logger.Level
	logOpts.LogDir = serverOpts.Logger.Dir
	logOpts.LineNum = serverOpts.Logger.LineNum
	return wklog.New(logOpts)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
