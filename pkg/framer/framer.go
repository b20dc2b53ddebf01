// Package framer reassembles records from an arbitrarily chunked byte stream
// and releases them to a consumer under a pause/resume gate.
//
// A Framer is not safe for concurrent use. It is driven by exactly one
// source and delivers to exactly one consumer; every state change happens
// synchronously inside Write, End, Pause, Resume or Destroy.
package framer

import (
	"io"

	"github.com/WuKongIM/wkfcgi/pkg/bytequeue"
	"github.com/WuKongIM/wkfcgi/pkg/fcgiproto"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Framer struct {
	opts     *Options
	consumer Consumer

	source Source
	bound  bool

	pending  [][]byte // 尚未消费的输入分片，按到达顺序
	buffered int      // pending 中的字节总数
	queue    []fcgiproto.Record

	readable bool
	writable bool
	ending   bool
	sending  bool
	dead     bool
	ended    bool // OnEnd 已经发出
	draining bool
	err      error

	outbound *bytequeue.ByteQueue
	stats    *Stats

	wklog.Log
}

func New(consumer Consumer, opt ...Option) *Framer {
	opts := NewOptions()
	for _, o := range opt {
		o(opts)
	}
	if opts.Log == nil {
		opts.Log = wklog.Nop()
	}
	if consumer == nil {
		consumer = ConsumerFuncs{}
	}
	return &Framer{
		opts:     opts,
		consumer: consumer,
		readable: true,
		writable: true,
		sending:  !opts.Paused,
		outbound: bytequeue.New(),
		stats:    NewStats(),
		Log:      opts.Log,
	}
}

// Bind attaches the upstream source. Only one source may ever be bound; a
// second attempt fails the framer with a DoubleBindingError.
func (f *Framer) Bind(src Source) error {
	if f.dead {
		return ErrDestroyed
	}
	if src == nil {
		return ErrNilSource
	}
	if f.bound {
		err := &DoubleBindingError{Bound: f.source}
		f.fail(err)
		return err
	}
	f.source = src
	f.bound = true
	return nil
}

// Write appends chunk to the pending input, extracts every complete record and
// releases queued records if the gate is open. A nil or empty chunk just
// reprocesses what is pending. The framer keeps a reference to chunk, so the
// caller must not modify it afterwards.
//
// The returned hint is false once the source has signalled completion. After
// End an empty Write still drains the queue; new bytes are refused with
// ErrWriteAfterEnd without failing the stream.
func (f *Framer) Write(chunk []byte) (bool, error) {
	if err := f.checkUsable(); err != nil {
		return false, err
	}
	if !f.writable {
		if len(chunk) > 0 {
			return false, ErrWriteAfterEnd
		}
		// nothing new after End: keep draining what is queued
		f.drain()
		if f.dead {
			return false, ErrDestroyed
		}
		return false, f.err
	}
	if err := f.write(chunk); err != nil {
		return false, err
	}
	return !f.ending, nil
}

// End marks the source as complete and processes the optional trailing chunk.
// Remaining records are released before OnEnd; bytes that do not form a whole
// record fail the framer with a LeftoverDataError.
func (f *Framer) End(chunk []byte) error {
	if err := f.checkUsable(); err != nil {
		return err
	}
	if !f.writable {
		return ErrWriteAfterEnd
	}
	f.ending = true
	f.writable = false

	f.appendChunk(chunk)
	if err := f.extract(); err != nil {
		return err
	}
	if f.buffered > 0 {
		f.drain()
		if f.dead {
			return ErrDestroyed
		}
		err := &LeftoverDataError{Buffered: f.buffered}
		f.Warn("source ended with an incomplete record", zap.Int("buffered", f.buffered), zap.Int("queued", len(f.queue)))
		f.fail(err)
		return err
	}
	f.drain()
	if f.dead {
		return ErrDestroyed
	}
	return f.err
}

// Pause closes the flow-control gate and asks the source to pause. Input is
// still accepted and assembled while paused; nothing bounds the queue, so a
// source that ignores Pause grows memory until Resume.
func (f *Framer) Pause() {
	if f.dead || f.err != nil {
		return
	}
	f.sending = false
	if p, ok := f.source.(Pauser); ok {
		p.Pause()
	}
}

// Resume opens the gate, asks the source to resume and drains the queue.
func (f *Framer) Resume() error {
	if err := f.checkUsable(); err != nil {
		return err
	}
	f.sending = true
	if r, ok := f.source.(Resumer); ok {
		r.Resume()
	}
	f.drain()
	return f.err
}

// Destroy tears the framer down and destroys the source if it can be.
// Buffered input and queued records are dropped; no further signals reach the
// consumer. Calling Destroy again does nothing.
func (f *Framer) Destroy() error {
	if f.dead {
		return nil
	}
	f.dead = true
	f.ending = false
	f.sending = false
	f.readable = false
	f.writable = false
	f.pending = nil
	f.buffered = 0
	f.queue = nil
	f.outbound.Reset()

	if d, ok := f.source.(Destroyer); ok {
		if err := d.Destroy(); err != nil {
			return errors.Wrap(err, "framer: destroy source")
		}
	}
	return nil
}

// Abort fails the framer with a transport error reported by the source.
// The consumer receives err through OnError unless the stream already ended.
func (f *Framer) Abort(err error) {
	if f.dead || err == nil {
		return
	}
	f.fail(err)
}

// DestroySoon is not supported: a framer is either live or destroyed.
func (f *Framer) DestroySoon() error {
	if f.dead {
		return ErrDestroyed
	}
	err := &NotImplementedError{Op: "DestroySoon"}
	f.fail(err)
	return err
}

// SetEncoding accepts only the raw byte modes "" and "binary".
func (f *Framer) SetEncoding(encoding string) error {
	if err := f.checkUsable(); err != nil {
		return err
	}
	switch encoding {
	case "", "binary":
		return nil
	}
	err := &UnsupportedOperationError{Op: "SetEncoding", Detail: encoding}
	f.fail(err)
	return err
}

func (f *Framer) write(chunk []byte) error {
	f.appendChunk(chunk)
	if err := f.extract(); err != nil {
		return err
	}
	f.drain()
	if f.dead {
		return ErrDestroyed
	}
	return f.err
}

func (f *Framer) appendChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	f.pending = append(f.pending, chunk)
	f.buffered += len(chunk)
	f.stats.InBytes.Add(int64(len(chunk)))
}

// extract moves every complete record from pending into the queue.
func (f *Framer) extract() error {
	for {
		if len(f.pending) > 1 && len(f.pending[0]) < fcgiproto.HeaderLen {
			f.mergeHead()
		}
		if f.buffered < fcgiproto.HeaderLen {
			return nil
		}
		h, err := fcgiproto.DecodeHeader(f.pending[0])
		if err != nil {
			f.fail(err)
			return err
		}
		recordLen := h.RecordLen()
		if f.buffered < recordLen {
			return nil
		}
		data := make([]byte, recordLen)
		f.take(data)
		rec, err := fcgiproto.ParseRecord(data)
		if err != nil {
			f.fail(err)
			return err
		}
		f.queue = append(f.queue, rec)
		f.stats.InRecords.Inc()
	}
}

// mergeHead concatenates chunks at the front of pending until the first one
// holds a whole header or only one chunk is left.
func (f *Framer) mergeHead() {
	head := f.pending[0]
	head = head[:len(head):len(head)] // never append into the caller's array
	i := 1
	for len(head) < fcgiproto.HeaderLen && i < len(f.pending) {
		head = append(head, f.pending[i]...)
		f.pending[i] = nil
		i++
	}
	f.pending[i-1] = head
	f.pending = f.pending[i-1:]
}

// take fills data from the front of pending, splitting the last chunk used.
func (f *Framer) take(data []byte) {
	n := 0
	for n < len(data) {
		chunk := f.pending[0]
		c := copy(data[n:], chunk)
		n += c
		if c < len(chunk) {
			f.pending[0] = chunk[c:]
			continue
		}
		f.pending[0] = nil
		f.pending = f.pending[1:]
	}
	if len(f.pending) == 0 {
		f.pending = nil
	}
	f.buffered -= len(data)
}

// drain releases queued records while the gate is open, then signals the end
// of the stream once the source has completed and nothing is left.
func (f *Framer) drain() {
	if f.draining {
		return
	}
	f.draining = true
	defer func() { f.draining = false }()

	for f.sending && !f.dead && f.err == nil && len(f.queue) > 0 {
		rec := f.queue[0]
		f.queue[0] = fcgiproto.Record{}
		f.queue = f.queue[1:]
		if len(f.queue) == 0 {
			f.queue = nil
		}
		f.consumer.OnRecord(rec)
	}
	if f.sending && f.ending && !f.dead && f.err == nil && len(f.queue) == 0 && f.buffered == 0 {
		f.ending = false
		f.readable = false
		f.ended = true
		f.consumer.OnEnd()
	}
}

func (f *Framer) checkUsable() error {
	if f.dead {
		return ErrDestroyed
	}
	if f.err != nil {
		return errors.Wrap(f.err, "framer: stream failed")
	}
	return nil
}

// fail moves the framer into its terminal error state and reports err once.
func (f *Framer) fail(err error) {
	if f.err != nil {
		return
	}
	f.err = err
	f.readable = false
	f.writable = false
	f.ending = false
	f.sending = false
	f.outbound.Reset()
	f.Error("framer failed", zap.Error(err), zap.Int("buffered", f.buffered), zap.Int("queued", len(f.queue)))
	if !f.ended {
		f.consumer.OnError(err)
	}
}

// Push queues a complete outbound record. Call Flush to hand it to the sink.
// A zero Record is refused with ErrZeroRecord and leaves the stream usable.
func (f *Framer) Push(rec fcgiproto.Record) error {
	if err := f.checkUsable(); err != nil {
		return err
	}
	if rec.IsZero() {
		return ErrZeroRecord
	}
	if _, err := f.outbound.Write(rec.Bytes()); err != nil {
		return errors.Wrap(err, "framer: queue outbound record")
	}
	f.stats.OutRecords.Inc()
	return nil
}

// Flush writes queued outbound bytes to the sink in chunks of at most
// ChunkSize bytes.
func (f *Framer) Flush() error {
	if err := f.checkUsable(); err != nil {
		return err
	}
	if f.opts.Sink == nil {
		return ErrNoSink
	}
	for f.outbound.Len() > 0 {
		size := f.outbound.Len()
		if f.opts.ChunkSize > 0 && size > f.opts.ChunkSize {
			size = f.opts.ChunkSize
		}
		chunk := f.outbound.Peek(size)
		n, err := f.opts.Sink.Write(chunk)
		if n > 0 {
			f.outbound.Discard(n)
			f.stats.OutBytes.Add(int64(n))
		}
		if err == nil && n < len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			err = errors.Wrap(err, "framer: write to sink")
			f.fail(err)
			return err
		}
	}
	return nil
}

func (f *Framer) Stats() *Stats {
	return f.stats
}

func (f *Framer) Readable() bool {
	return f.readable
}

func (f *Framer) Writable() bool {
	return f.writable
}

func (f *Framer) Ending() bool {
	return f.ending
}

func (f *Framer) Sending() bool {
	return f.sending
}

func (f *Framer) Dead() bool {
	return f.dead
}

// Err returns the error that failed the framer, if any.
func (f *Framer) Err() error {
	return f.err
}

// Buffered returns the number of input bytes not yet part of a record.
func (f *Framer) Buffered() int {
	return f.buffered
}

// Queued returns the number of assembled records waiting for the gate.
func (f *Framer) Queued() int {
	return len(f.queue)
}

// OutboundBuffered returns the number of bytes waiting for Flush.
func (f *Framer) OutboundBuffered() int {
	return f.outbound.Len()
}
