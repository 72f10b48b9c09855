package compiler

import (
	"fmt"
	"math"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNonPositiveSpeed   = "E201" // speed_pct must be > 0
	ErrNegativePosition   = "E202" // position_ms must be >= 0
	ErrDegenerateTrim     = "E203" // end_ms must be > start_ms
	ErrVolumeOutOfRange   = "E204" // volume must be within 0..100
	ErrNegativeAudioTail  = "E205" // extend_audio_sec must be >= 0
	ErrNonFiniteValue     = "E206" // NaN or Inf in a numeric field
	ErrInvalidAlignment   = "E207" // overlay text alignment unknown
	ErrNegativeTrimStart  = "E208" // start_ms must be >= 0
	ErrOverlayOutOfBounds = "E209" // overlay percentages/opacities out of range
)

// ValidationError describes one invalid field of one command.
type ValidationError struct {
	Index   int    `json:"index"` // Position in the command list
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] commands[%d].%s: %s", e.Code, e.Index, e.Field, e.Message)
}

// ValidateCommands checks the preconditions the compiler relies on.
// Returns all errors found (does not fail-fast).
//
// Compile itself tolerates invalid commands (degenerate ones are skipped), so
// validation belongs at the boundary where timelines enter the system.
func ValidateCommands(commands []ir.Command) []ValidationError {
	var errs []ValidationError
	for i, c := range commands {
		errs = append(errs, validateCommand(i, c)...)
	}
	return errs
}

func validateCommand(i int, c ir.Command) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Index:   i,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	numeric := map[string]float64{
		"position_ms":      c.PositionMs,
		"start_ms":         c.StartMs,
		"end_ms":           c.EndMs,
		"speed_pct":        c.SpeedPct,
		"extend_audio_sec": c.ExtendAudioSec,
	}
	for _, field := range []string{"position_ms", "start_ms", "end_ms", "speed_pct", "extend_audio_sec"} {
		if !finite(numeric[field]) {
			add(field, ErrNonFiniteValue, "must be a finite number, got %v", numeric[field])
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if c.SpeedPct <= 0 {
		add("speed_pct", ErrNonPositiveSpeed, "must be > 0, got %v", c.SpeedPct)
	}
	if c.PositionMs < 0 {
		add("position_ms", ErrNegativePosition, "must be >= 0, got %v", c.PositionMs)
	}
	if c.StartMs < 0 {
		add("start_ms", ErrNegativeTrimStart, "must be >= 0, got %v", c.StartMs)
	}
	if c.EndMs <= c.StartMs {
		add("end_ms", ErrDegenerateTrim, "must be > start_ms (%v), got %v", c.StartMs, c.EndMs)
	}
	if c.Volume < 0 || c.Volume > 100 {
		add("volume", ErrVolumeOutOfRange, "must be within 0..100, got %d", c.Volume)
	}
	if c.ExtendAudioSec < 0 {
		add("extend_audio_sec", ErrNegativeAudioTail, "must be >= 0, got %v", c.ExtendAudioSec)
	}
	errs = append(errs, validateOverlay(i, c.Overlay)...)
	return errs
}

func validateOverlay(i int, o *ir.Overlay) []ValidationError {
	if o == nil {
		return nil
	}
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Index:   i,
			Field:   "overlay." + field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}
	if o.FullScreen != nil && !unitRange(o.FullScreen.Opacity) {
		add("full_screen.opacity", ErrOverlayOutOfBounds, "must be within 0..1, got %v", o.FullScreen.Opacity)
	}
	if o.Border != nil {
		if !unitRange(o.Border.Opacity) {
			add("border.opacity", ErrOverlayOutOfBounds, "must be within 0..1, got %v", o.Border.Opacity)
		}
		if !percentRange(o.Border.MarginPct) {
			add("border.margin_pct", ErrOverlayOutOfBounds, "must be within 0..100, got %v", o.Border.MarginPct)
		}
	}
	if t := o.Text; t != nil {
		if !ir.ValidAlignments[t.Align] {
			add("text.align", ErrInvalidAlignment, "unknown alignment %q", t.Align)
		}
		if !percentRange(t.XPct) {
			add("text.x_pct", ErrOverlayOutOfBounds, "must be within 0..100, got %v", t.XPct)
		}
		if !percentRange(t.YPct) {
			add("text.y_pct", ErrOverlayOutOfBounds, "must be within 0..100, got %v", t.YPct)
		}
	}
	return errs
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func unitRange(f float64) bool {
	return finite(f) && f >= 0 && f <= 1
}

func percentRange(f float64) bool {
	return finite(f) && f >= 0 && f <= 100
}
