package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON.
// This is the serialization used for plan hashing, golden files and stored
// recordings.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Numbers use the shortest round-trip form; NaN and Inf are rejected
//  5. null is rejected (optional fields are omitted instead)
//
// Accepted inputs: string, bool, int, int64, float64, []any, map[string]any,
// Plan, PlanAction, Command and *Overlay.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		return writeCanonicalNumber(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		return writeCanonicalObject(buf, val)
	case Plan:
		return writeCanonical(buf, val.canonical())
	case PlanAction:
		return writeCanonical(buf, val.canonical())
	case Command:
		return writeCanonical(buf, val.canonical())
	case *Overlay:
		if val == nil {
			return fmt.Errorf("null is forbidden in canonical JSON")
		}
		return writeCanonical(buf, val.canonical())
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalNumber writes integral values without a fraction and
// everything else in the shortest form that round-trips.
func writeCanonicalNumber(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number in canonical JSON: %v", f)
	}
	if f == 0 {
		buf.WriteByte('0') // also folds -0
		return nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'e', -1, 64))
	return nil
}

// writeCanonicalString writes a JSON string with NFC normalization and without
// HTML escaping. U+2028/U+2029 are written literally.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes that
// encoding/json emits back into literal characters, leaving escaped
// backslashes (\\u2028) alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) {
			if data[i+1] == 'u' && i+5 < len(data) && string(data[i+2:i+5]) == "202" && (data[i+5] == '8' || data[i+5] == '9') {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
			// Any other escape: copy both bytes so the second is never
			// mistaken for the start of an escape.
			out = append(out, data[i], data[i+1])
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// compareUTF16 orders strings by UTF-16 code units (RFC 8785 section 3.2.3).
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

func (p Plan) canonical() map[string]any {
	actions := make([]any, len(p.Actions))
	for i, a := range p.Actions {
		actions[i] = a.canonical()
	}
	return map[string]any{
		"actions": actions,
		"end":     p.End(),
		"version": PlanVersion,
	}
}

func (a PlanAction) canonical() map[string]any {
	m := map[string]any{
		"start":           a.Start,
		"end":             a.End,
		"command_index":   a.CommandIndex,
		"play_from_start": a.PlayFromStart,
		"show_video":      a.ShowVideo,
		"pause_requested": a.PauseRequested,
	}
	if !a.Overlay.IsEmpty() {
		m["overlay"] = a.Overlay.canonical()
	}
	return m
}

func (c Command) canonical() map[string]any {
	m := map[string]any{
		"asset":            c.Asset,
		"name":             c.Name,
		"position_ms":      c.PositionMs,
		"start_ms":         c.StartMs,
		"end_ms":           c.EndMs,
		"speed_pct":        c.SpeedPct,
		"volume":           c.Volume,
		"extend_audio_sec": c.ExtendAudioSec,
		"enabled":          c.Enabled,
	}
	if !c.Overlay.IsEmpty() {
		m["overlay"] = c.Overlay.canonical()
	}
	return m
}

func (o *Overlay) canonical() map[string]any {
	m := map[string]any{}
	if o.FullScreen != nil {
		m["full_screen"] = o.FullScreen.canonical()
	}
	if o.Border != nil {
		b := o.Border.Tint.canonical()
		b["margin_pct"] = o.Border.MarginPct
		m["border"] = b
	}
	if o.Text != nil {
		t := map[string]any{
			"content": o.Text.Content,
			"x_pct":   o.Text.XPct,
			"y_pct":   o.Text.YPct,
			"align":   string(o.Text.Align),
		}
		if o.Text.Color != "" {
			t["color"] = o.Text.Color
		}
		if o.Text.SizePx != 0 {
			t["size_px"] = o.Text.SizePx
		}
		m["text"] = t
	}
	return m
}

func (t Tint) canonical() map[string]any {
	return map[string]any{
		"color":   t.Color,
		"opacity": t.Opacity,
	}
}
