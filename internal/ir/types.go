package ir

// Command is one trimmed, speed-adjusted media segment placed on the master
// timeline. It is a read-only snapshot of the timeline's record.
type Command struct {
	Asset          string   `json:"asset"`            // Source media identity (URL, file id)
	Name           string   `json:"name"`             // Display name
	PositionMs     float64  `json:"position_ms"`      // Placement on the master timeline
	StartMs        float64  `json:"start_ms"`         // Trim window start within the source
	EndMs          float64  `json:"end_ms"`           // Trim window end within the source
	SpeedPct       float64  `json:"speed_pct"`        // Playback rate in percent, > 0 upstream
	Volume         int      `json:"volume"`           // 0-100
	ExtendAudioSec float64  `json:"extend_audio_sec"` // Audio tail past the visual end, >= 0
	Overlay        *Overlay `json:"overlay,omitempty"`
	Enabled        bool     `json:"enabled"`
}

// Rate returns the playback-speed multiplier.
func (c Command) Rate() float64 {
	return c.SpeedPct / 100
}

// ActualDurationMs returns how long the trim window plays on the master
// timeline at the command's rate.
func (c Command) ActualDurationMs() float64 {
	return (c.EndMs - c.StartMs) / c.Rate()
}

// EndTimeMs returns the master-timeline time where the visual segment ends.
func (c Command) EndTimeMs() float64 {
	return c.PositionMs + c.ActualDurationMs()
}

// HasAudioTail reports whether audio keeps playing past EndTimeMs.
func (c Command) HasAudioTail() bool {
	return c.ExtendAudioSec > 0
}

// AudioEndTimeMs returns where the audio tail ends. Without a tail it equals
// EndTimeMs.
func (c Command) AudioEndTimeMs() float64 {
	if !c.HasAudioTail() {
		return c.EndTimeMs()
	}
	return c.EndTimeMs() + c.ExtendAudioSec*1000
}

// SourceOffsetMs returns the source-media position (ms) that corresponds to
// master-timeline time atMs, i.e. trimStart + elapsed*rate.
func (c Command) SourceOffsetMs(atMs float64) float64 {
	return c.StartMs + (atMs-c.PositionMs)*c.Rate()
}

// Clone returns a deep copy, so overlay edits on the timeline never alias a
// compiled plan.
func (c Command) Clone() Command {
	c.Overlay = c.Overlay.Clone()
	return c
}

// Project is a named, ordered list of commands. List order is precedence
// order: later commands draw over earlier ones.
type Project struct {
	Name     string    `json:"name"`
	Commands []Command `json:"commands"`
}

// EnabledCommands returns clones of the enabled commands in list order.
func (p *Project) EnabledCommands() []Command {
	out := make([]Command, 0, len(p.Commands))
	for _, c := range p.Commands {
		if c.Enabled {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Alignment anchors overlay text on the surface.
type Alignment string

const (
	AlignTopLeft     Alignment = "top_left"
	AlignTop         Alignment = "top"
	AlignTopRight    Alignment = "top_right"
	AlignLeft        Alignment = "left"
	AlignCenter      Alignment = "center"
	AlignRight       Alignment = "right"
	AlignBottomLeft  Alignment = "bottom_left"
	AlignBottom      Alignment = "bottom"
	AlignBottomRight Alignment = "bottom_right"
)

// ValidAlignments defines allowed alignment values.
var ValidAlignments = map[Alignment]bool{
	AlignTopLeft:     true,
	AlignTop:         true,
	AlignTopRight:    true,
	AlignLeft:        true,
	AlignCenter:      true,
	AlignRight:       true,
	AlignBottomLeft:  true,
	AlignBottom:      true,
	AlignBottomRight: true,
}

// Tint is a color wash with opacity 0-1.
type Tint struct {
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// BorderTint tints a margin of MarginPct percent around the surface edge.
type BorderTint struct {
	Tint
	MarginPct float64 `json:"margin_pct"`
}

// TextOverlay is positioned text. X and Y are percentages of the surface.
type TextOverlay struct {
	Content string    `json:"content"`
	XPct    float64   `json:"x_pct"`
	YPct    float64   `json:"y_pct"`
	Align   Alignment `json:"align"`
	Color   string    `json:"color,omitempty"`
	SizePx  int       `json:"size_px,omitempty"`
}

// Overlay is drawn over the visible command. Every part is optional.
type Overlay struct {
	FullScreen *Tint        `json:"full_screen,omitempty"`
	Border     *BorderTint  `json:"border,omitempty"`
	Text       *TextOverlay `json:"text,omitempty"`
}

// Clone returns a deep copy. Safe on nil.
func (o *Overlay) Clone() *Overlay {
	if o == nil {
		return nil
	}
	cp := &Overlay{}
	if o.FullScreen != nil {
		fs := *o.FullScreen
		cp.FullScreen = &fs
	}
	if o.Border != nil {
		b := *o.Border
		cp.Border = &b
	}
	if o.Text != nil {
		t := *o.Text
		cp.Text = &t
	}
	return cp
}

// IsEmpty reports whether the overlay draws nothing.
func (o *Overlay) IsEmpty() bool {
	return o == nil || (o.FullScreen == nil && o.Border == nil && o.Text == nil)
}
