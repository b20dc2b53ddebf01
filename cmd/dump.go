package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/WuKongIM/wkfcgi/pkg/fcgiproto"
	"github.com/WuKongIM/wkfcgi/pkg/fcgistream"
	"github.com/WuKongIM/wkfcgi/pkg/framer"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var (
	dumpReadSize int
	dumpVerbose  bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Print the records found in a captured FastCGI stream (stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		logger := newDumpLogger(cmd.ErrOrStderr(), dumpVerbose)
		defer logger.Sync()
		_, err := dumpRecords(ctx, r, cmd.OutOrStdout(), dumpReadSize, logger.Named("Dump"))
		return err
	},
}

func init() {
	dumpCmd.Flags().IntVar(&dumpReadSize, "read-size", 32*1024, "bytes per read from the input")
	dumpCmd.Flags().BoolVarP(&dumpVerbose, "verbose", "v", false, "log at debug level")
}

// newDumpLogger keeps logs off stdout, which carries the record listing, and
// out of the data directory.
func newDumpLogger(w io.Writer, verbose bool) *wklog.Logger {
	logOpts := wklog.NewOptions()
	logOpts.Level = serverOpts.Logger.Level
	logOpts.LineNum = serverOpts.Logger.LineNum
	logOpts.Console = w
	logger := wklog.New(logOpts)
	if verbose {
		logger.SetLevel(zapcore.DebugLevel)
	}
	return logger
}

// dumpRecords prints one line per record and returns how many were seen.
func dumpRecords(ctx context.Context, r io.Reader, w io.Writer, readSize int, log wklog.Log) (int, error) {
	var (
		count    int
		writeErr error
	)
	pump := fcgistream.New(r, fcgistream.WithReadBufferSize(readSize), fcgistream.WithLog(log))
	f := framer.New(framer.ConsumerFuncs{
		RecordFunc: func(rec fcgiproto.Record) {
			count++
			if writeErr != nil {
				return
			}
			_, writeErr = fmt.Fprintf(w, "%d\t%s\tpadding=%d\n", count, rec.Header().String(), len(rec.Padding()))
		},
	}, framer.WithLog(log))
	if err := pump.Attach(f); err != nil {
		return 0, err
	}
	if err := pump.Run(ctx); err != nil {
		return count, errors.Wrap(err, "dump")
	}
	if err := f.Err(); err != nil {
		return count, errors.Wrap(err, "dump")
	}
	return count, writeErr
}
