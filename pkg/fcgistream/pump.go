// Package fcgistream feeds a Framer from a blocking io.Reader such as a
// net.Conn or a file.
package fcgistream

import (
	"context"
	"io"
	"sync"

	"github.com/WuKongIM/wkfcgi/pkg/framer"
	"github.com/WuKongIM/wkfcgi/pkg/wklog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrNotAttached = errors.New("fcgistream: pump is not attached to a framer")

// Pump reads chunks from r and writes them into the framer it is bound to.
//
// Consumer callbacks run on the Run goroutine with the pump lock held, so
// inside a callback use the Framer directly. From any other goroutine use
// Hold, Release and Close.
type Pump struct {
	r      io.Reader
	opts   *Options
	framer *framer.Framer
	mu     sync.Mutex

	paused    atomic.Bool
	destroyed atomic.Bool
	resumeC   chan struct{}
	closeOnce sync.Once

	wklog.Log
}

func New(r io.Reader, opt ...Option) *Pump {
	opts := NewOptions()
	for _, o := range opt {
		o(opts)
	}
	return &Pump{
		r:       r,
		opts:    opts,
		resumeC: make(chan struct{}, 1),
		Log:     opts.Log,
	}
}

// Attach binds the pump as the source of f.
func (p *Pump) Attach(f *framer.Framer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := f.Bind(p); err != nil {
		return err
	}
	p.framer = f
	return nil
}

// Run reads until EOF, a read error, Close or ctx cancellation. EOF ends the
// framer; the framer's verdict on the remaining bytes is returned.
func (p *Pump) Run(ctx context.Context) error {
	if p.framer == nil {
		return ErrNotAttached
	}
	stop := context.AfterFunc(ctx, func() { _ = p.closeReader() })
	defer stop()

	for {
		if err := p.waitResume(ctx); err != nil {
			p.destroyFramer()
			return err
		}
		buf := make([]byte, p.opts.ReadBufferSize)
		n, rerr := p.r.Read(buf)
		if n > 0 {
			p.mu.Lock()
			_, err := p.framer.Write(buf[:n])
			p.mu.Unlock()
			if err != nil {
				if p.destroyed.Load() {
					return nil
				}
				return err
			}
		}
		if rerr == nil {
			continue
		}
		if p.destroyed.Load() {
			return nil
		}
		if ctx.Err() != nil {
			p.destroyFramer()
			return ctx.Err()
		}
		if rerr == io.EOF {
			p.mu.Lock()
			err := p.framer.End(nil)
			p.mu.Unlock()
			return err
		}
		p.Warn("read failed", zap.Error(rerr))
		p.mu.Lock()
		p.framer.Abort(errors.Wrap(rerr, "fcgistream: read"))
		p.mu.Unlock()
		return errors.Wrap(rerr, "fcgistream: read")
	}
}

// Hold closes the framer's flow-control gate.
func (p *Pump) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.framer != nil {
		p.framer.Pause()
	}
}

// Release opens the framer's flow-control gate and drains queued records.
func (p *Pump) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.framer == nil {
		return ErrNotAttached
	}
	return p.framer.Resume()
}

// Close destroys the framer, which in turn stops the pump.
func (p *Pump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.framer == nil {
		return p.Destroy()
	}
	return p.framer.Destroy()
}

// Pause is called by the framer when its gate closes.
func (p *Pump) Pause() {
	p.paused.Store(true)
}

// Resume is called by the framer when its gate opens.
func (p *Pump) Resume() {
	p.paused.Store(false)
	select {
	case p.resumeC <- struct{}{}:
	default:
	}
}

// Destroy is called by the framer when it is destroyed.
func (p *Pump) Destroy() error {
	p.destroyed.Store(true)
	p.Resume()
	return p.closeReader()
}

func (p *Pump) waitResume(ctx context.Context) error {
	for p.paused.Load() && !p.destroyed.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.resumeC:
		}
	}
	return nil
}

func (p *Pump) destroyFramer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.framer.Destroy()
}

func (p *Pump) closeReader() error {
	var err error
	p.closeOnce.Do(func() {
		if c, ok := p.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
