package engine

import "sync/atomic"

// Sequence is a monotonic logical counter for ordering trace records.
//
// Dispatches and transitions are stamped with strictly increasing seq
// numbers so recordings replay in the order they happened, independent of
// wall-clock resolution.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
// The engine's single-writer loop is the only caller in practice.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence starting at a specific number, e.g. to
// continue numbering after the last stored record.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number and increments the counter.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
