package bytequeue

import "github.com/valyala/bytebufferpool"

// ByteQueue is a FIFO of bytes backed by a pooled buffer.
type ByteQueue struct {
	buffer *bytebufferpool.ByteBuffer
}

func New() *ByteQueue {
	return &ByteQueue{
		buffer: bytebufferpool.Get(),
	}
}

// Write 写入字节
func (b *ByteQueue) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.buffer == nil {
		b.buffer = bytebufferpool.Get()
	}
	return b.buffer.Write(p)
}

// Len returns the number of queued bytes.
func (b *ByteQueue) Len() int {
	if b.buffer == nil {
		return 0
	}
	return len(b.buffer.B)
}

// Peek returns up to n bytes from the front without removing them.
// The slice is only valid until the next Write, Discard or Reset.
func (b *ByteQueue) Peek(n int) []byte {
	if b.Len() == 0 || n <= 0 {
		return nil
	}
	if n > len(b.buffer.B) {
		n = len(b.buffer.B)
	}
	return b.buffer.B[:n]
}

// Discard drops up to n bytes from the front and returns how many were dropped.
func (b *ByteQueue) Discard(n int) int {
	if n <= 0 || b.Len() == 0 {
		return 0
	}
	if n >= len(b.buffer.B) {
		n = len(b.buffer.B)
		b.buffer.B = b.buffer.B[:0]
	} else {
		b.buffer.B = b.buffer.B[n:]
	}
	return n
}

// Reset drops everything and returns the buffer to the pool.
func (b *ByteQueue) Reset() {
	if b.buffer != nil {
		b.buffer.Reset()
		bytebufferpool.Put(b.buffer)
		b.buffer = nil
	}
}
