package cqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcuhal-go/errcode"
)

func TestNew_RejectsZeroCapacity(t *testing.T) {
	q, err := New[byte](nil, false)
	require.Error(t, err)
	assert.Nil(t, q)
	assert.True(t, errors.Is(err, errcode.ZeroCapacity))
	assert.Equal(t, errcode.ZeroCapacity, errcode.Of(err))

	assert.Panics(t, func() { MustNew[byte](make([]byte, 0), true) })
}

func TestQueue_FIFO(t *testing.T) {
	q := MustNew(make([]int, 5), false)
	for i := 1; i <= 5; i++ {
		require.True(t, q.Push(i))
	}
	for i := 1; i <= 5; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueue_FIFOAcrossWrap(t *testing.T) {
	q := MustNew(make([]byte, 3), false)
	var want []byte
	next := byte(0)
	// Interleave so head and tail wrap several times.
	for round := 0; round < 10; round++ {
		for q.Space() > 0 {
			q.Push(next)
			want = append(want, next)
			next++
		}
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want[0], v)
		want = want[1:]
	}
	for len(want) > 0 {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want[0], v)
		want = want[1:]
	}
	assert.True(t, q.IsEmpty())
}

func TestQueue_CapacityInvariant(t *testing.T) {
	for _, overwrite := range []bool{false, true} {
		q := MustNew(make([]byte, 4), overwrite)
		ops := "ppppppoppoooooppppppppoo"
		for i, op := range ops {
			if op == 'p' {
				q.Push(byte(i))
			} else {
				q.Pop()
			}
			assert.LessOrEqual(t, q.Len(), q.Cap())
			assert.GreaterOrEqual(t, q.Len(), 0)
			assert.Equal(t, q.Len() == q.Cap(), q.IsFull())
			assert.Equal(t, q.Len() == 0, q.IsEmpty())
			assert.True(t, q.head >= 0 && q.head < q.Cap())
			assert.True(t, q.tail >= 0 && q.tail < q.Cap())
		}
	}
}

func TestQueue_FullWithoutOverwriteDrops(t *testing.T) {
	q := MustNew(make([]byte, 3), false)
	q.Push('a')
	q.Push('b')
	q.Push('c')
	require.True(t, q.IsFull())

	assert.False(t, q.Push('d'))
	assert.Equal(t, 3, q.Len())

	var got []byte
	for !q.IsEmpty() {
		v, _ := q.Pop()
		got = append(got, v)
	}
	assert.Equal(t, []byte("abc"), got)
}

func TestQueue_OverwriteEvictsOldest(t *testing.T) {
	q := MustNew(make([]byte, 3), true)
	require.True(t, q.Overwrite())
	q.Push('a')
	q.Push('b')
	q.Push('c')

	assert.True(t, q.Push('d'))
	assert.Equal(t, 3, q.Len())
	assert.True(t, q.IsFull())

	v, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, byte('b'), v)

	q.Push('e')
	var got []byte
	for !q.IsEmpty() {
		v, _ := q.Pop()
		got = append(got, v)
	}
	assert.Equal(t, []byte("cde"), got)
}

func TestQueue_PeekDoesNotMutate(t *testing.T) {
	q := MustNew(make([]string, 2), false)
	_, ok := q.Peek()
	assert.False(t, ok)

	q.Push("x")
	for i := 0; i < 3; i++ {
		v, ok := q.Peek()
		require.True(t, ok)
		assert.Equal(t, "x", v)
		assert.Equal(t, 1, q.Len())
	}
}

func TestQueue_FlushKeepsStorage(t *testing.T) {
	buf := make([]byte, 4)
	q := MustNew(buf, false)
	q.Push(7)
	q.Push(8)
	q.Flush()

	assert.True(t, q.IsEmpty())
	assert.Equal(t, 4, q.Space())
	assert.Equal(t, byte(7), buf[0])
	assert.Equal(t, byte(8), buf[1])

	q.Push(9)
	v, _ := q.Pop()
	assert.Equal(t, byte(9), v)
}
