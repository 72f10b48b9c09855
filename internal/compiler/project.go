package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

//go:embed schema.cue
var projectSchema string

// ProjectSchema returns the #Project definition compiled in ctx.
func ProjectSchema(ctx *cue.Context) cue.Value {
	return ctx.CompileString(projectSchema, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Project"))
}

// CompileProject parses a CUE value into a Project.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is unified with the embedded #Project schema first, so defaults
// (enabled, speed_pct, volume, ...) are applied and unknown fields rejected
// with source positions. The value may come from a .cue file or from YAML or
// JSON encoded with cue.Context.Encode:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`commands: [{position_ms: 0, end_ms: 4000}]`)
//	project, err := CompileProject(v)
func CompileProject(v cue.Value) (*ir.Project, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := ProjectSchema(v.Context()).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	project := &ir.Project{}
	var err error
	if nameVal, ok := lookup(unified, "name"); ok {
		if project.Name, err = nameVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
		project.Name = norm.NFC.String(project.Name)
	}

	commandsVal, ok := lookup(unified, "commands")
	if !ok {
		return nil, &CompileError{
			Field:   "commands",
			Message: "commands is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := commandsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		cmd, err := parseCommand(iter.Value())
		if err != nil {
			return nil, err
		}
		if verrs := validateCommand(i, cmd); len(verrs) > 0 {
			return nil, &CompileError{
				Field:   fmt.Sprintf("commands[%d].%s", i, verrs[0].Field),
				Message: verrs[0].Message,
				Code:    verrs[0].Code,
				Pos:     iter.Value().Pos(),
			}
		}
		project.Commands = append(project.Commands, cmd)
	}

	return project, nil
}

// parseCommand extracts one command. The schema guarantees presence and
// types of every field it defaults.
func parseCommand(v cue.Value) (ir.Command, error) {
	var c ir.Command
	var err error

	if c.Asset, err = optionalString(v, "asset"); err != nil {
		return c, err
	}
	if c.Name, err = optionalString(v, "name"); err != nil {
		return c, err
	}
	c.Name = norm.NFC.String(c.Name)

	floats := []struct {
		path string
		dst  *float64
	}{
		{"position_ms", &c.PositionMs},
		{"start_ms", &c.StartMs},
		{"end_ms", &c.EndMs},
		{"speed_pct", &c.SpeedPct},
		{"extend_audio_sec", &c.ExtendAudioSec},
	}
	for _, f := range floats {
		if *f.dst, err = requiredFloat(v, f.path); err != nil {
			return c, err
		}
	}

	volVal, ok := lookup(v, "volume")
	if !ok {
		return c, &CompileError{Field: "volume", Message: "volume is required", Pos: v.Pos()}
	}
	vol, err := volVal.Int64()
	if err != nil {
		return c, formatCUEError(err)
	}
	c.Volume = int(vol)

	enabledVal, ok := lookup(v, "enabled")
	if !ok {
		return c, &CompileError{Field: "enabled", Message: "enabled is required", Pos: v.Pos()}
	}
	if c.Enabled, err = enabledVal.Bool(); err != nil {
		return c, formatCUEError(err)
	}

	if overlayVal, ok := lookup(v, "overlay"); ok {
		if c.Overlay, err = parseOverlay(overlayVal); err != nil {
			return c, err
		}
	}
	return c, nil
}

func parseOverlay(v cue.Value) (*ir.Overlay, error) {
	o := &ir.Overlay{}
	var err error

	if fsVal, ok := lookup(v, "full_screen"); ok {
		tint, err := parseTint(fsVal)
		if err != nil {
			return nil, err
		}
		o.FullScreen = &tint
	}

	if bVal, ok := lookup(v, "border"); ok {
		tint, err := parseTint(bVal)
		if err != nil {
			return nil, err
		}
		margin, err := requiredFloat(bVal, "margin_pct")
		if err != nil {
			return nil, err
		}
		o.Border = &ir.BorderTint{Tint: tint, MarginPct: margin}
	}

	if tVal, ok := lookup(v, "text"); ok {
		t := &ir.TextOverlay{}
		if t.Content, err = optionalString(tVal, "content"); err != nil {
			return nil, err
		}
		t.Content = norm.NFC.String(t.Content)
		if t.XPct, err = requiredFloat(tVal, "x_pct"); err != nil {
			return nil, err
		}
		if t.YPct, err = requiredFloat(tVal, "y_pct"); err != nil {
			return nil, err
		}
		align, err := optionalString(tVal, "align")
		if err != nil {
			return nil, err
		}
		t.Align = ir.Alignment(align)
		if t.Color, err = optionalString(tVal, "color"); err != nil {
			return nil, err
		}
		if sizeVal, ok := lookup(tVal, "size_px"); ok {
			size, err := sizeVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			t.SizePx = int(size)
		}
		o.Text = t
	}

	return o, nil
}

func parseTint(v cue.Value) (ir.Tint, error) {
	var t ir.Tint
	var err error
	if t.Color, err = optionalString(v, "color"); err != nil {
		return t, err
	}
	if t.Opacity, err = requiredFloat(v, "opacity"); err != nil {
		return t, err
	}
	return t, nil
}

// lookup resolves path and its default, reporting whether it exists.
func lookup(v cue.Value, path string) (cue.Value, bool) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return val, false
	}
	if def, ok := val.Default(); ok {
		return def, true
	}
	return val, true
}

func optionalString(v cue.Value, path string) (string, error) {
	val, ok := lookup(v, path)
	if !ok {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredFloat(v cue.Value, path string) (float64, error) {
	val, ok := lookup(v, path)
	if !ok {
		return 0, &CompileError{
			Field:   path,
			Message: path + " is required",
			Pos:     v.Pos(),
		}
	}
	f, err := val.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

// CompileError reports an invalid project with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Code    string // Validation code (E2xx) when a command fails validation
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Disjunction failures (a default that loses to an out-of-range value)
	// carry a path but no positions.
	firstErr := errs[0]
	ce := &CompileError{
		Field:   fieldFromPath(firstErr.Path()),
		Message: firstErr.Error(),
	}
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// fieldFromPath joins a CUE error path ("#Project", "commands", "0",
// "volume") into commands[0].volume. Leading definition selectors from the
// embedded schema are dropped. Returns "cue" when nothing is left.
func fieldFromPath(path []string) string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	if len(path) == 0 {
		return "cue"
	}
	var b strings.Builder
	for i, sel := range path {
		if isIndex(sel) {
			fmt.Fprintf(&b, "[%s]", sel)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(sel)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
