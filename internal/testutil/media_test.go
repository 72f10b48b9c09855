package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

func TestRecordingSource_RecordsCalls(t *testing.T) {
	s := NewRecordingSource(false)
	s.Seek(1.5)
	s.SetVolume(80)
	s.SetPlaybackRate(2)
	s.Play()
	s.SetVisible(true)
	s.Pause()

	assert.Equal(t, []string{"seek(1.5)", "volume(80)", "rate(2)", "play", "visible(true)", "pause"}, s.Calls())
	assert.False(t, s.Playing())
	assert.True(t, s.Visible())
	assert.Equal(t, 1.5, s.LastSeek())
	assert.Equal(t, 80, s.Volume())
	assert.Equal(t, 2.0, s.Rate())
	assert.Equal(t, 1, s.Count("play"))

	s.Reset()
	assert.Empty(t, s.Calls())
	assert.True(t, s.Visible(), "reset keeps transport state")
}

func TestRecordingSource_Ready(t *testing.T) {
	s := NewRecordingSource(false)
	select {
	case <-s.Ready():
		t.Fatal("source should not be ready yet")
	default:
	}

	s.MarkReady()
	s.MarkReady()
	<-s.Ready()

	for _, src := range NewRecordingSources(2) {
		<-src.Ready()
	}
}

func TestRecordingOverlay_ClonesUpdates(t *testing.T) {
	r := &RecordingOverlay{}
	o := &ir.Overlay{Text: &ir.TextOverlay{Content: "a"}}
	r.Update(o)
	r.Update(nil)
	o.Text.Content = "b"

	updates := r.Updates()
	assert.Len(t, updates, 2)
	assert.Equal(t, "a", updates[0].Text.Content)
	last, ok := r.Last()
	assert.True(t, ok)
	assert.Nil(t, last)
}

func TestRecordingBackdropSinkNotifier(t *testing.T) {
	b := &RecordingBackdrop{}
	assert.False(t, b.Visible())
	b.SetVisible(true)
	b.SetVisible(false)
	assert.Equal(t, []bool{true, false}, b.History())
	assert.False(t, b.Visible())

	s := &RecordingSink{}
	s.Position(100)
	assert.Equal(t, []float64{100}, s.Positions())

	n := &RecordingNotifier{}
	n.Notify("NOT_READY", "media is still loading")
	assert.Equal(t, []string{"NOT_READY: media is still loading"}, n.Messages())
}
