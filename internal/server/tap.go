package server

import (
	"github.com/WuKongIM/wkfcgi/pkg/fcgiproto"
	"github.com/WuKongIM/wkfcgi/pkg/fcgiserver"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// recordTap logs every assembled record. Record contents are handed on
// untouched; interpreting them is left to whatever sits behind the server.
type recordTap struct {
	records atomic.Int64
	bytes   atomic.Int64
	wklog.Log
}

func newRecordTap(log wklog.Log) *recordTap {
	return &recordTap{Log: log}
}

func (r *recordTap) OnRecord(ctx *fcgiserver.Context, rec fcgiproto.Record) {
	r.records.Inc()
	r.bytes.Add(int64(rec.Len()))
	h := rec.Header()
	r.Debug("record",
		zap.Int64("conn", ctx.ID()),
		zap.Uint8("version", h.Version),
		zap.String("type", h.Type.String()),
		zap.Uint16("requestID", h.RequestID),
		zap.Uint16("contentLength", h.ContentLength),
		zap.Uint8("paddingLength", h.PaddingLength),
	)
}
