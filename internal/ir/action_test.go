package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// twoCommandPlan mirrors the compiled plan of A [0,4000) and B [2000,6000).
func twoCommandPlan() Plan {
	return Plan{Actions: []PlanAction{
		{Start: 0, End: 2000, CommandIndex: 0, PlayFromStart: true, ShowVideo: true},
		{Start: 2000, End: 4000, CommandIndex: 0},
		{Start: 2000, End: 4000, CommandIndex: 1, PlayFromStart: true, ShowVideo: true},
		{Start: 4000, End: 6000, CommandIndex: 1, ShowVideo: true},
		{Start: 6000, End: 6001, CommandIndex: NoCommand, ShowVideo: true},
	}}
}

func TestPlanEnd(t *testing.T) {
	assert.Equal(t, 6000.0, twoCommandPlan().End())
	assert.Equal(t, 0.0, Plan{}.End())
	assert.True(t, Plan{}.Empty())
}

func TestPlanGroups(t *testing.T) {
	p := twoCommandPlan()

	assert.Equal(t, []int{0, 1, 3, 4}, p.Frames())
	assert.Equal(t, 3, p.GroupEnd(1))
	assert.Len(t, p.Group(1), 2)
	assert.Len(t, p.Group(4), 1)
}

func TestPlanFrameAt(t *testing.T) {
	p := twoCommandPlan()

	tests := []struct {
		ms       float64
		expected int
	}{
		{0, 0},
		{1999.5, 0},
		{2000, 1}, // earliest action of the shared start
		{3000, 1},
		{4000, 3},
		{5999, 3},
		{6000, 4},
		{99999, 4},
		{-1, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, p.FrameAt(tt.ms), "FrameAt(%v)", tt.ms)
	}
	assert.Equal(t, -1, Plan{}.FrameAt(0))
}

func TestPlanVisible(t *testing.T) {
	p := twoCommandPlan()

	assert.Equal(t, 0, p.Visible(0))
	assert.Equal(t, 1, p.Visible(1))
	assert.Equal(t, 1, p.Visible(3))
	assert.Equal(t, NoCommand, p.Visible(4), "sentinel shows no source")
}

func TestPlanActionHelpers(t *testing.T) {
	a := PlanAction{Start: 2000, End: 4000, CommandIndex: NoCommand}
	assert.True(t, a.IsBlack())
	assert.Equal(t, 2000.0, a.DurationMs())
}
