package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_RecordsPlayback(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := NewRecorder(ctx, s, discardLogger())
	clk := testutil.NewFakeClock(testEpoch)
	sources := testutil.NewRecordingSources(2)
	e := engine.New([]engine.Source{sources[0], sources[1]},
		engine.WithClock(clk),
		engine.WithLogger(discardLogger()),
		engine.WithTracer(rec),
		engine.WithReadoutInterval(0),
		engine.WithSessionIDGenerator(engine.NewFixedGenerator("session-1")),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool {
		st, err := e.Status(ctx)
		return err == nil && st.Ready
	}, time.Second, time.Millisecond)

	resume := 0.0
	out, err := e.Start(ctx, engine.StartRequest{ResumeFromMs: &resume, Commands: testCommands()})
	require.NoError(t, err)
	require.True(t, out.Started)

	settle := func() {
		_, err := e.Status(ctx)
		require.NoError(t, err)
	}
	clk.AdvanceWith(clock.Milliseconds(6000), settle)
	require.NoError(t, rec.Err())

	transitions, err := s.ReadTransitions(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, transitions, 2)
	assert.Equal(t, "start", transitions[0].Reason)
	assert.Equal(t, "end", transitions[1].Reason)
	assert.Equal(t, 6000.0, transitions[1].PositionMs)

	dispatches, err := s.ReadDispatches(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, dispatches, 4)
	assert.Equal(t, []int{0, 1, 1, -1}, []int{
		dispatches[0].Visible, dispatches[1].Visible, dispatches[2].Visible, dispatches[3].Visible,
	})

	v, err := s.VerifySession(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, v.OK(), "mismatches: %v", v.Mismatches)
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(context.Background(), s, discardLogger())

	// No session row: the foreign key rejects both writes.
	rec.Dispatched(createTestDispatch(createTestSession("ghost"), 1, 0))
	first := rec.Err()
	require.Error(t, first)

	rec.Transitioned(createTestTransition("ghost", 2, engine.Stopped, engine.Playing, "start"))
	assert.Equal(t, first, rec.Err())
}

func TestRecorder_NilLoggerDefaults(t *testing.T) {
	rec := NewRecorder(context.Background(), createTestStore(t), nil)
	assert.NotNil(t, rec.logger)
}
