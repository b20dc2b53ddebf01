package framer

import "github.com/WuKongIM/wkfcgi/pkg/fcgiproto"

// Source is the upstream producer feeding a Framer. Any value may be bound;
// the optional capabilities below are used when present.
type Source interface{}

type Pauser interface {
	Pause()
}

type Resumer interface {
	Resume()
}

type Destroyer interface {
	Destroy() error
}

// Consumer receives assembled records in wire order, then either exactly one
// OnEnd or exactly one OnError.
type Consumer interface {
	OnRecord(rec fcgiproto.Record)
	OnEnd()
	OnError(err error)
}

// ConsumerFuncs adapts plain functions to Consumer. Nil funcs are skipped.
type ConsumerFuncs struct {
	RecordFunc func(rec fcgiproto.Record)
	EndFunc    func()
	ErrorFunc  func(err error)
}

func (c ConsumerFuncs) OnRecord(rec fcgiproto.Record) {
	if c.RecordFunc != nil {
		c.RecordFunc(rec)
	}
}

func (c ConsumerFuncs) OnEnd() {
	if c.EndFunc != nil {
		c.EndFunc()
	}
}

func (c ConsumerFuncs) OnError(err error) {
	if c.ErrorFunc != nil {
		c.ErrorFunc(err)
	}
}
