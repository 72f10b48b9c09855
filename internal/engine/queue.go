package engine

import "sync"

type eventKind int

const (
	eventCall         eventKind = iota + 1 // host call run on the loop
	eventFrameDue                          // current frame's timer elapsed
	eventReadoutTick                       // periodic position readout
	eventSourcesReady                      // every source signaled readiness
)

// event is one unit of work for the Run loop. Timer events carry the
// generation that armed them; the loop drops any whose generation is stale.
type event struct {
	kind  eventKind
	call  func() error
	done  chan error // size 1
	gen   uint64
	frame int // group start a frame-due event advances to
}

// eventQueue is the unbounded mailbox between producers (host calls, timer
// callbacks, the readiness waiter) and the Run loop. push never blocks, so a
// timer firing while the loop is busy cannot stall the clock goroutine.
//
// wake has capacity 1 and coalesces bursts; the loop drains with pop until
// empty after each wakeup. drain closes wake so a waiting loop exits.
type eventQueue struct {
	mu      sync.Mutex
	pending []event
	closed  bool
	wake    chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		pending: make([]event, 0, 16),
		wake:    make(chan struct{}, 1),
	}
}

// push appends e, reporting false once the queue has been drained.
func (q *eventQueue) push(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, e)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// pop removes the oldest event without blocking.
func (q *eventQueue) pop() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return event{}, false
	}
	e := q.pending[0]
	q.pending[0] = event{} // drop the closure reference
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		q.pending = q.pending[:0:0]
	}
	return e, true
}

// ready is selected on by the loop alongside ctx.Done.
func (q *eventQueue) ready() <-chan struct{} {
	return q.wake
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *eventQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// drain closes the queue and hands back whatever was still pending so
// blocked callers can be released. Later calls return nil.
func (q *eventQueue) drain() []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.wake)
	rest := q.pending
	q.pending = nil
	return rest
}
