package fcgistream

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/WuKongIM/wkfcgi/pkg/fcgiproto"
	"github.com/WuKongIM/wkfcgi/pkg/framer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStream(t *testing.T, n int) ([]byte, [][]byte) {
	t.Helper()
	var (
		stream []byte
		recs   [][]byte
	)
	for i := 0; i < n; i++ {
		rec, err := fcgiproto.NewAlignedRecord(fcgiproto.Header{
			Version:   fcgiproto.Version1,
			Type:      fcgiproto.Stdin,
			RequestID: uint16(i + 1),
		}, bytes.Repeat([]byte{byte(i)}, i*3+1))
		require.NoError(t, err)
		recs = append(recs, rec.Bytes())
		stream = append(stream, rec.Bytes()...)
	}
	return stream, recs
}

// oneByteReader returns at most one byte per Read.
type oneByteReader struct {
	r io.Reader
}

func (o *oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestPumpRun(t *testing.T) {
	stream, want := buildStream(t, 5)

	var (
		got   [][]byte
		ended bool
	)
	f := framer.New(framer.ConsumerFuncs{
		RecordFunc: func(rec fcgiproto.Record) { got = append(got, rec.Bytes()) },
		EndFunc:    func() { ended = true },
	})
	p := New(&oneByteReader{r: bytes.NewReader(stream)}, WithReadBufferSize(16))
	require.NoError(t, p.Attach(f))

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, want, got)
	assert.True(t, ended)
}

func TestPumpLeftover(t *testing.T) {
	stream, _ := buildStream(t, 2)
	f := framer.New(nil)
	p := New(bytes.NewReader(stream[:len(stream)-3]))
	require.NoError(t, p.Attach(f))

	err := p.Run(context.Background())
	assert.ErrorAs(t, err, new(*framer.LeftoverDataError))
}

func TestPumpDoubleAttach(t *testing.T) {
	f := framer.New(nil)
	require.NoError(t, New(bytes.NewReader(nil)).Attach(f))
	err := New(bytes.NewReader(nil)).Attach(f)
	assert.ErrorAs(t, err, new(*framer.DoubleBindingError))
}

func TestPumpNotAttached(t *testing.T) {
	assert.ErrorIs(t, New(bytes.NewReader(nil)).Run(context.Background()), ErrNotAttached)
}

func TestPumpPauseResume(t *testing.T) {
	stream, want := buildStream(t, 4)
	pr, pw := io.Pipe()

	var (
		f       *framer.Framer
		got     = make(chan []byte, len(want))
		ended   = make(chan struct{})
		paused  = false
		p       = New(pr)
		runErrC = make(chan error, 1)
	)
	f = framer.New(framer.ConsumerFuncs{
		RecordFunc: func(rec fcgiproto.Record) {
			if !paused {
				paused = true
				f.Pause()
			}
			got <- rec.Bytes()
		},
		EndFunc: func() { close(ended) },
	})
	require.NoError(t, p.Attach(f))
	go func() { runErrC <- p.Run(context.Background()) }()

	go func() {
		_, _ = pw.Write(stream)
		_ = pw.Close()
	}()

	select {
	case rec := <-got:
		assert.Equal(t, want[0], rec)
	case <-time.After(time.Second * 5):
		t.Fatal("timeout waiting for first record")
	}
	assert.True(t, p.paused.Load())
	assert.Len(t, got, 0)

	require.NoError(t, p.Release())
	for i := 1; i < len(want); i++ {
		select {
		case rec := <-got:
			assert.Equal(t, want[i], rec)
		case <-time.After(time.Second * 5):
			t.Fatal("timeout waiting for records")
		}
	}
	select {
	case <-ended:
	case <-time.After(time.Second * 5):
		t.Fatal("timeout waiting for end")
	}
	assert.NoError(t, <-runErrC)
}

func TestPumpClose(t *testing.T) {
	pr, _ := io.Pipe()
	f := framer.New(framer.ConsumerFuncs{
		EndFunc:   func() { t.Error("unexpected end") },
		ErrorFunc: func(err error) { t.Errorf("unexpected error: %v", err) },
	})
	p := New(pr)
	require.NoError(t, p.Attach(f))

	runErrC := make(chan error, 1)
	go func() { runErrC <- p.Run(context.Background()) }()

	time.Sleep(time.Millisecond * 50)
	require.NoError(t, p.Close())
	select {
	case err := <-runErrC:
		assert.NoError(t, err)
	case <-time.After(time.Second * 5):
		t.Fatal("pump did not stop")
	}
	assert.True(t, f.Dead())
}

func TestPumpContextCancel(t *testing.T) {
	pr, _ := io.Pipe()
	f := framer.New(nil)
	p := New(pr)
	require.NoError(t, p.Attach(f))

	ctx, cancel := context.WithCancel(context.Background())
	runErrC := make(chan error, 1)
	go func() { runErrC <- p.Run(ctx) }()

	time.Sleep(time.Millisecond * 50)
	cancel()
	select {
	case err := <-runErrC:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second * 5):
		t.Fatal("pump did not stop")
	}
	assert.True(t, f.Dead())
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestPumpReadError(t *testing.T) {
	var gotErr error
	f := framer.New(framer.ConsumerFuncs{ErrorFunc: func(err error) { gotErr = err }})
	p := New(failingReader{})
	require.NoError(t, p.Attach(f))

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, gotErr, io.ErrUnexpectedEOF)
}
