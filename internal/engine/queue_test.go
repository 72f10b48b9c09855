package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_PushPop(t *testing.T) {
	q := newEventQueue()

	ok := q.push(event{kind: eventFrameDue, gen: 3, frame: 7})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.pop()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, eventFrameDue, got.kind)
	assert.Equal(t, uint64(3), got.gen)
	assert.Equal(t, 7, got.frame)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for i := 1; i <= 3; i++ {
		q.push(event{kind: eventFrameDue, frame: i})
	}

	for i := 1; i <= 3; i++ {
		e, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, i, e.frame)
	}
}

func TestEventQueue_PopEmpty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.pop()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_ReadySignals(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.push(event{kind: eventSourcesReady})
	}()

	select {
	case <-q.ready():
		e, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, eventSourcesReady, e.kind)
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
}

func TestEventQueue_Drain(t *testing.T) {
	q := newEventQueue()
	q.push(event{kind: eventReadoutTick})

	remaining := q.drain()
	assert.Len(t, remaining, 1, "close hands back queued events")
	assert.True(t, q.isClosed())
	assert.Nil(t, q.drain(), "second close is a no-op")

	ok := q.push(event{kind: eventReadoutTick})
	assert.False(t, ok, "enqueue after close should return false")

	select {
	case <-q.ready():
	default:
		t.Fatal("closed queue should wake waiters")
	}
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.len())
	q.push(event{kind: eventFrameDue})
	q.push(event{kind: eventFrameDue})
	assert.Equal(t, 2, q.len())

	q.pop()
	assert.Equal(t, 1, q.len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.push(event{kind: eventFrameDue, frame: producerID*1000 + i})
			}
		}(p)
	}
	wg.Wait()

	received := 0
	for {
		if _, ok := q.pop(); !ok {
			break
		}
		received++
	}
	assert.Equal(t, producers*eventsPerProducer, received)
}
