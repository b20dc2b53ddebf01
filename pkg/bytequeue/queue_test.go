package bytequeue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteQueue(t *testing.T) {
	bq := New()
	defer bq.Reset()

	t.Run("Write", func(t *testing.T) {
		n, err := bq.Write([]byte("hello"))
		assert.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, 5, bq.Len())

		n, err = bq.Write(nil)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Peek", func(t *testing.T) {
		assert.Equal(t, []byte("hel"), bq.Peek(3))
		// 请求更多字节
		assert.Equal(t, []byte("hello"), bq.Peek(10))
		assert.Nil(t, bq.Peek(0))
		assert.Equal(t, 5, bq.Len())
	})

	t.Run("Discard", func(t *testing.T) {
		_, _ = bq.Write([]byte("world"))

		assert.Equal(t, 5, bq.Discard(5))
		assert.Equal(t, []byte("world"), bq.Peek(5))

		assert.Equal(t, 5, bq.Discard(100))
		assert.Equal(t, 0, bq.Len())
		assert.Equal(t, 0, bq.Discard(1))
	})

	t.Run("Reset", func(t *testing.T) {
		_, _ = bq.Write([]byte("reset"))
		bq.Reset()

		assert.Equal(t, 0, bq.Len())

		// usable after reset
		_, _ = bq.Write([]byte("again"))
		assert.Equal(t, []byte("again"), bq.Peek(5))
	})
}
