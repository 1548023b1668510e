package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
)

type testEvent struct {
	Value int
}

func TestBus_ImplementsInterface(t *testing.T) {
	var _ pkgif.EventBus = (*Bus)(nil)
}

func TestBus_RejectsNonPointer(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(testEvent{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	_, err = bus.Emitter(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)
}

func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(testEvent{Value: 42}))

	select {
	case evt := <-sub.Out():
		assert.Equal(t, testEvent{Value: 42}, evt)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent), BufSize(1))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, em.Emit(testEvent{Value: i}))
	}

	assert.Equal(t, testEvent{Value: 0}, <-sub.Out())
	assert.Equal(t, int64(2), bus.Dropped(new(testEvent)))
}

func TestBus_LosslessPreservesOrder(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent), BufSize(1), Lossless())
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = em.Emit(testEvent{Value: i})
		}
	}()

	for i := 0; i < n; i++ {
		evt := <-sub.Out()
		assert.Equal(t, testEvent{Value: i}, evt)
	}
	wg.Wait()
	assert.Zero(t, bus.Dropped(new(testEvent)))

	t.Log("✅ 无损订阅按序收到全部事件")
}

func TestBus_LosslessCloseUnblocksEmitter(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent), BufSize(0), Lossless())
	require.NoError(t, err)

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	emitted := make(chan struct{})
	go func() {
		_ = em.Emit(testEvent{Value: 1})
		close(emitted)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, sub.Close())

	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("emitter still blocked after subscription close")
	}
}

func TestBus_StatefulReplaysLast(t *testing.T) {
	bus := NewBus()

	em, err := bus.Emitter(new(testEvent), Stateful())
	require.NoError(t, err)
	defer em.Close()
	require.NoError(t, em.Emit(testEvent{Value: 7}))

	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, testEvent{Value: 7}, <-sub.Out())
}

func TestEmitter_ClosedRejectsEmit(t *testing.T) {
	bus := NewBus()

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	require.NoError(t, em.Close())
	require.NoError(t, em.Close())

	assert.ErrorIs(t, em.Emit(testEvent{}), ErrEmitterClosed)
}

func TestSubscription_CloseIdempotent(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok)
}
