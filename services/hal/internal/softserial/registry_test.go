package softserial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/irq"
)

type fakeListener struct {
	take  bool
	calls *[]int
	id    int
}

func (f *fakeListener) OnPinChange() bool {
	*f.calls = append(*f.calls, f.id)
	return f.take
}

func TestRegistry_FullPort(t *testing.T) {
	r := NewRegistry()
	var calls []int
	for i := 0; i < MaxPerPort; i++ {
		require.NoError(t, r.Add(1, &fakeListener{calls: &calls, id: i}))
	}
	err := r.Add(1, &fakeListener{calls: &calls})
	assert.ErrorIs(t, err, errcode.RegistryFull)
	assert.Equal(t, MaxPerPort, r.Len(1))

	// Other ports are independent.
	require.NoError(t, r.Add(0, &fakeListener{calls: &calls}))
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	var calls []int
	l := &fakeListener{calls: &calls}
	require.NoError(t, r.Add(2, l))
	assert.ErrorIs(t, r.Add(2, l), errcode.Busy)
}

func TestRegistry_DispatchStopsAtFirstTaker(t *testing.T) {
	r := NewRegistry()
	var calls []int
	require.NoError(t, r.Add(2, &fakeListener{calls: &calls, id: 0}))
	require.NoError(t, r.Add(2, &fakeListener{calls: &calls, id: 1, take: true}))
	require.NoError(t, r.Add(2, &fakeListener{calls: &calls, id: 2, take: true}))

	assert.True(t, r.Dispatch(2))
	assert.Equal(t, []int{0, 1}, calls)
	assert.Equal(t, uint32(0), r.Spurious(2))
}

func TestRegistry_SpuriousAndRemove(t *testing.T) {
	r := NewRegistry()
	var calls []int
	a := &fakeListener{calls: &calls, id: 0}
	b := &fakeListener{calls: &calls, id: 1}
	require.NoError(t, r.Add(0, a))
	require.NoError(t, r.Add(0, b))

	assert.False(t, r.Dispatch(0))
	assert.Equal(t, uint32(1), r.Spurious(0))

	r.Remove(0, a)
	calls = nil
	r.Dispatch(0)
	assert.Equal(t, []int{1}, calls)
	assert.False(t, r.Dispatch(7))
}

func TestRegistry_InstallOncePerPort(t *testing.T) {
	ic := irq.New()
	ic.Enable()
	r := NewRegistry()
	var calls []int
	require.NoError(t, r.Add(1, &fakeListener{calls: &calls, id: 9, take: true}))

	require.NoError(t, r.Install(ic, 1, 4))
	require.NoError(t, r.Install(ic, 1, 4))

	ic.Raise(4)
	assert.Equal(t, []int{9}, calls)
}
