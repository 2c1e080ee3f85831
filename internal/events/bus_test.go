package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pagelume/internal/types"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus[types.WatchEvent](4)
	a, unsubA := bus.Subscribe()
	b, unsubB := bus.Subscribe()
	defer unsubA()
	defer unsubB()

	ev := types.WatchEvent{ChangedPath: "components/hero/dark/index.html", Type: "hero", Variation: "dark"}
	assert.Equal(t, 2, bus.Publish(ev))

	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-b)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus[string](1)
	ch, unsub := bus.Subscribe()
	assert.Equal(t, 1, bus.Subscribers())

	unsub()
	unsub()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Subscribers())
	assert.Equal(t, 0, bus.Publish("x"))
}

func TestFullSubscriberDropsEvents(t *testing.T) {
	bus := NewBus[int](1)
	ch, unsub := bus.Subscribe()
	defer unsub()

	assert.Equal(t, 1, bus.Publish(1))
	assert.Equal(t, 0, bus.Publish(2))
	assert.Equal(t, int64(1), bus.Dropped())
	assert.Equal(t, 1, <-ch)
}

func TestClose(t *testing.T) {
	bus := NewBus[int](0)
	ch, unsub := bus.Subscribe()

	bus.Close()
	bus.Close()
	unsub()

	_, open := <-ch
	assert.False(t, open)

	late, _ := bus.Subscribe()
	_, open = <-late
	assert.False(t, open)
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	bus := NewBus[int](8)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		ch, unsub := bus.Subscribe()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(j)
			}
			unsub()
		}()
	}
	wg.Wait()
	require.Equal(t, 0, bus.Subscribers())
}
