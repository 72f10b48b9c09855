package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

func TestTruncateStraddlingAction(t *testing.T) {
	plan := Truncate(Compile(overlapCommands()), 3000)

	assert.Equal(t, []ir.PlanAction{
		{Start: 0, End: 2000, CommandIndex: 0, PlayFromStart: true, ShowVideo: true},
		{Start: 2000, End: 3000, CommandIndex: 0},
		{Start: 2000, End: 3000, CommandIndex: 1, PlayFromStart: true, ShowVideo: true},
		{Start: 3000, End: 3001, CommandIndex: ir.NoCommand, ShowVideo: true},
	}, plan.Actions)
	assert.Equal(t, 3000.0, plan.End())
}

func TestTruncateOnBoundary(t *testing.T) {
	plan := Truncate(Compile(overlapCommands()), 4000)

	require.Len(t, plan.Actions, 4)
	assert.Equal(t, 4000.0, plan.Actions[2].End)
	assert.Equal(t, 4000.0, plan.End())
}

func TestTruncateOutOfRangeUnchanged(t *testing.T) {
	full := Compile(overlapCommands())

	for _, end := range []float64{0, -5, 6000, 9000, math.NaN()} {
		assert.Equal(t, full, Truncate(full, end), "endMs %v", end)
	}
	assert.True(t, Truncate(ir.Plan{}, 100).Empty())
}

func TestTruncateDoesNotModifyInput(t *testing.T) {
	c := cmd(0, 0, 4000, 100)
	c.Overlay = &ir.Overlay{Text: &ir.TextOverlay{Content: "x"}}
	full := Compile([]ir.Command{c})

	cut := Truncate(full, 1000)
	cut.Actions[0].Overlay.Text.Content = "y"

	assert.Equal(t, 4000.0, full.Actions[0].End)
	assert.Equal(t, "x", full.Actions[0].Overlay.Text.Content)
}

func TestCompileRange(t *testing.T) {
	end := 2500.0
	assert.Equal(t, 2500.0, CompileRange(overlapCommands(), &end).End())
	assert.Equal(t, 6000.0, CompileRange(overlapCommands(), nil).End())
}
