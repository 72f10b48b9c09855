package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// =============================================================================
// Command Validation Tests
// =============================================================================

func TestValidateCommandsValid(t *testing.T) {
	c := cmd(0, 0, 4000, 100)
	c.ExtendAudioSec = 2
	c.Overlay = &ir.Overlay{
		FullScreen: &ir.Tint{Color: "#000", Opacity: 0.3},
		Border:     &ir.BorderTint{Tint: ir.Tint{Color: "#fff", Opacity: 1}, MarginPct: 5},
		Text:       &ir.TextOverlay{Content: "Intro", XPct: 50, YPct: 50, Align: ir.AlignCenter},
	}

	errs := ValidateCommands([]ir.Command{c, cmd(2000, 0, 4000, 100)})
	assert.Empty(t, errs, "valid commands should have no errors")
}

func TestValidateCommandsErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.Command)
		field  string
		code   string
	}{
		{"zero speed", func(c *ir.Command) { c.SpeedPct = 0 }, "speed_pct", ErrNonPositiveSpeed},
		{"negative speed", func(c *ir.Command) { c.SpeedPct = -100 }, "speed_pct", ErrNonPositiveSpeed},
		{"negative position", func(c *ir.Command) { c.PositionMs = -1 }, "position_ms", ErrNegativePosition},
		{"empty trim", func(c *ir.Command) { c.EndMs = c.StartMs }, "end_ms", ErrDegenerateTrim},
		{"inverted trim", func(c *ir.Command) { c.StartMs = 5000 }, "end_ms", ErrDegenerateTrim},
		{"volume high", func(c *ir.Command) { c.Volume = 101 }, "volume", ErrVolumeOutOfRange},
		{"volume low", func(c *ir.Command) { c.Volume = -1 }, "volume", ErrVolumeOutOfRange},
		{"negative tail", func(c *ir.Command) { c.ExtendAudioSec = -1 }, "extend_audio_sec", ErrNegativeAudioTail},
		{"NaN end", func(c *ir.Command) { c.EndMs = math.NaN() }, "end_ms", ErrNonFiniteValue},
		{"Inf position", func(c *ir.Command) { c.PositionMs = math.Inf(1) }, "position_ms", ErrNonFiniteValue},
		{"negative trim start", func(c *ir.Command) { c.StartMs = -10 }, "start_ms", ErrNegativeTrimStart},
		{"bad alignment", func(c *ir.Command) {
			c.Overlay = &ir.Overlay{Text: &ir.TextOverlay{Align: "middle", XPct: 50, YPct: 50}}
		}, "overlay.text.align", ErrInvalidAlignment},
		{"opacity", func(c *ir.Command) {
			c.Overlay = &ir.Overlay{FullScreen: &ir.Tint{Opacity: 1.5}}
		}, "overlay.full_screen.opacity", ErrOverlayOutOfBounds},
		{"margin", func(c *ir.Command) {
			c.Overlay = &ir.Overlay{Border: &ir.BorderTint{Tint: ir.Tint{Opacity: 1}, MarginPct: 120}}
		}, "overlay.border.margin_pct", ErrOverlayOutOfBounds},
		{"text position", func(c *ir.Command) {
			c.Overlay = &ir.Overlay{Text: &ir.TextOverlay{Align: ir.AlignTop, XPct: -5, YPct: 50}}
		}, "overlay.text.x_pct", ErrOverlayOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cmd(0, 0, 4000, 100)
			tt.mutate(&c)

			errs := ValidateCommands([]ir.Command{cmd(0, 0, 1000, 100), c})
			require.NotEmpty(t, errs)
			assert.Equal(t, 1, errs[0].Index)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestValidateCommandsCollectsAll(t *testing.T) {
	c := cmd(-1, 0, 4000, 100)
	c.Volume = 200

	errs := ValidateCommands([]ir.Command{c, {SpeedPct: 0, EndMs: 1, Volume: 50}})

	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{ErrNegativePosition, ErrVolumeOutOfRange, ErrNonPositiveSpeed}, codes)
}

func TestValidateNonFiniteStopsEarly(t *testing.T) {
	c := cmd(0, 0, math.NaN(), 100)
	c.Volume = 500

	errs := ValidateCommands([]ir.Command{c})
	require.Len(t, errs, 1, "range checks are skipped once a value is not finite")
	assert.Equal(t, ErrNonFiniteValue, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Index: 2, Field: "speed_pct", Message: "must be > 0, got 0", Code: ErrNonPositiveSpeed}
	assert.Equal(t, "[E201] commands[2].speed_pct: must be > 0, got 0", err.Error())
}

func TestValidateDegenerateAgreesWithCompile(t *testing.T) {
	commands := []ir.Command{cmd(0, 1000, 1000, 100), cmd(0, 0, 1000, 100)}

	errs := ValidateCommands(commands)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDegenerateTrim, errs[0].Code)
	assert.Equal(t, []int{errs[0].Index}, DegenerateIndices(commands))
}
