package fcgiserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/WuKongIM/wkfcgi/pkg/fcgiproto"
	"github.com/WuKongIM/wkfcgi/pkg/fcgistream"
	"github.com/WuKongIM/wkfcgi/pkg/framer"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func startServer(t *testing.T, handler Handler, opt ...Option) (*Server, string) {
	t.Helper()
	addr := freeAddr(t)
	opts := append([]Option{
		WithAddr("tcp://" + addr),
		WithLog(wklog.FromZap(zaptest.NewLogger(t))),
	}, opt...)
	s := New(handler, opts...)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, addr
}

// echo replies to every Stdin record with a Stdout record carrying the same content.
func echo(ctx *Context, rec fcgiproto.Record) {
	h := rec.Header()
	reply, err := fcgiproto.NewAlignedRecord(fcgiproto.Header{
		Version:   h.Version,
		Type:      fcgiproto.Stdout,
		RequestID: h.RequestID,
	}, rec.Content())
	if err != nil {
		_ = ctx.Close()
		return
	}
	_ = ctx.Write(reply)
}

func TestServerEcho(t *testing.T) {
	s, addr := startServer(t, HandlerFunc(echo), WithChunkSize(7))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	const count = 20
	var stream []byte
	for i := 0; i < count; i++ {
		rec, err := fcgiproto.NewRecord(fcgiproto.Header{
			Version:       fcgiproto.Version1,
			Type:          fcgiproto.Stdin,
			RequestID:     uint16(i + 1),
			PaddingLength: uint8(i % 4),
		}, []byte(fmt.Sprintf("payload-%d", i)))
		require.NoError(t, err)
		stream = append(stream, rec.Bytes()...)
	}

	replies := make(chan fcgiproto.Record, count)
	client := framer.New(framer.ConsumerFuncs{
		RecordFunc: func(rec fcgiproto.Record) { replies <- rec },
	})
	pump := fcgistream.New(conn)
	require.NoError(t, pump.Attach(client))
	go func() { _ = pump.Run(context.Background()) }()

	// odd-sized writes so records and headers straddle segments
	for len(stream) > 0 {
		n := 13
		if n > len(stream) {
			n = len(stream)
		}
		_, err := conn.Write(stream[:n])
		require.NoError(t, err)
		stream = stream[n:]
	}

	for i := 0; i < count; i++ {
		select {
		case rec := <-replies:
			assert.Equal(t, fcgiproto.Stdout, rec.Header().Type)
			assert.Equal(t, uint16(i+1), rec.Header().RequestID)
			assert.Equal(t, fmt.Sprintf("payload-%d", i), string(rec.Content()))
			assert.Equal(t, 0, rec.Len()%8)
		case <-time.After(time.Second * 5):
			t.Fatalf("timeout waiting for reply %d", i)
		}
	}

	rr := httptest.NewRecorder()
	s.MetricsHandler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `fcgi_records_total{direction="in"} 20`)
	assert.Contains(t, body, `fcgi_records_total{direction="out"} 20`)
	assert.Contains(t, body, "fcgi_connections 1")
}

func TestServerLeftoverOnClose(t *testing.T) {
	s, addr := startServer(t, HandlerFunc(echo))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	rec, err := fcgiproto.NewRecord(fcgiproto.Header{Version: 1, Type: fcgiproto.Stdin, RequestID: 1}, []byte("abc"))
	require.NoError(t, err)
	_, err = conn.Write(rec.Bytes()[:5])
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		rr := httptest.NewRecorder()
		s.MetricsHandler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
		return strings.Contains(rr.Body.String(), `fcgi_framing_errors_total{kind="leftover_data"} 1`)
	}, time.Second*5, time.Millisecond*20)
}

func TestServerHandlerClose(t *testing.T) {
	_, addr := startServer(t, HandlerFunc(func(ctx *Context, rec fcgiproto.Record) {
		_ = ctx.Close()
	}))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	rec, err := fcgiproto.NewRecord(fcgiproto.Header{Version: 1, Type: fcgiproto.AbortRequest, RequestID: 1}, nil)
	require.NoError(t, err)
	_, err = conn.Write(rec.Bytes())
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*5)))
	_, err = conn.Read(make([]byte, 1))
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection was not closed by the server")
	}
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "leftover_data", errorKind(&framer.LeftoverDataError{Buffered: 1}))
	assert.Equal(t, "double_binding", errorKind(&framer.DoubleBindingError{}))
	assert.Equal(t, "unsupported_operation", errorKind(&framer.UnsupportedOperationError{Op: "SetEncoding"}))
	assert.Equal(t, "not_implemented", errorKind(&framer.NotImplementedError{Op: "DestroySoon"}))
	assert.Equal(t, "write_after_end", errorKind(framer.ErrWriteAfterEnd))
	assert.Equal(t, "transport", errorKind(io.ErrUnexpectedEOF))
}
