package framer

import "go.uber.org/atomic"

// Stats may be read from any goroutine.
type Stats struct {
	InBytes    *atomic.Int64
	InRecords  *atomic.Int64
	OutBytes   *atomic.Int64
	OutRecords *atomic.Int64
}

func NewStats() *Stats {

	return &Stats{
		InBytes:    atomic.NewInt64(0),
		InRecords:  atomic.NewInt64(0),
		OutBytes:   atomic.NewInt64(0),
		OutRecords: atomic.NewInt64(0),
	}
}
