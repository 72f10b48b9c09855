package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	now := c.Now()
	assert.False(t, now.Before(before))
}

func TestRealClockAfterFunc(t *testing.T) {
	c := RealClock{}
	fired := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestRealClockStop(t *testing.T) {
	c := RealClock{}
	timer := c.AfterFunc(time.Hour, func() {})
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
}

func TestMilliseconds(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Milliseconds(1500))
	assert.Equal(t, 250*time.Microsecond, Milliseconds(0.25))
}

func TestSinceMs(t *testing.T) {
	start := time.Unix(0, 0)
	assert.Equal(t, 2000.5, SinceMs(start.Add(2000500*time.Microsecond), start))
}
