package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a playback test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Project is a path to a project file (.cue, .yaml, .yml, .json).
	// Relative paths are resolved against the scenario's base path.
	// Exactly one of Project and Commands must be set.
	Project string `yaml:"project,omitempty"`

	// Commands is an inline command list with the project file schema.
	Commands []map[string]any `yaml:"commands,omitempty"`

	// Sources is the number of media sources. Defaults to the number of
	// enabled commands.
	Sources *int `yaml:"sources,omitempty"`

	// SourcesReady controls whether sources start ready. Default: true.
	SourcesReady *bool `yaml:"sources_ready,omitempty"`

	// ShowAllSources keeps every source visible.
	ShowAllSources bool `yaml:"show_all_sources,omitempty"`

	// ReadoutMs is the position readout period. Default 0 (disabled).
	ReadoutMs float64 `yaml:"readout_ms,omitempty"`

	// SessionID is the fixed session ID. Defaults to "test-session-default"
	// for deterministic golden file comparison.
	SessionID string `yaml:"session_id,omitempty"`

	// Steps are the host calls to execute, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one host call. Exactly one operation field must be set.
type Step struct {
	Start         *StartStep `yaml:"start,omitempty"`
	Pause         bool       `yaml:"pause,omitempty"`
	Stop          bool       `yaml:"stop,omitempty"`
	SeekMs        *float64   `yaml:"seek_ms,omitempty"`
	RewindMs      *float64   `yaml:"rewind_ms,omitempty"`
	FastForwardMs *float64   `yaml:"fast_forward_ms,omitempty"`
	AdvanceMs     *float64   `yaml:"advance_ms,omitempty"`
	Ready         bool       `yaml:"ready,omitempty"`

	// Expect is checked right after the step.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// StartStep carries the Start arguments. Commands always come from the
// scenario.
type StartStep struct {
	ResumeMs *float64 `yaml:"resume_ms,omitempty"`
	EndMs    *float64 `yaml:"end_ms,omitempty"`
}

// Step operation names.
const (
	OpStart       = "start"
	OpPause       = "pause"
	OpStop        = "stop"
	OpSeek        = "seek_ms"
	OpRewind      = "rewind_ms"
	OpFastForward = "fast_forward_ms"
	OpAdvance     = "advance_ms"
	OpReady       = "ready"
)

// Ops returns the operations set on the step.
func (s Step) Ops() []string {
	var ops []string
	if s.Start != nil {
		ops = append(ops, OpStart)
	}
	if s.Pause {
		ops = append(ops, OpPause)
	}
	if s.Stop {
		ops = append(ops, OpStop)
	}
	if s.SeekMs != nil {
		ops = append(ops, OpSeek)
	}
	if s.RewindMs != nil {
		ops = append(ops, OpRewind)
	}
	if s.FastForwardMs != nil {
		ops = append(ops, OpFastForward)
	}
	if s.AdvanceMs != nil {
		ops = append(ops, OpAdvance)
	}
	if s.Ready {
		ops = append(ops, OpReady)
	}
	return ops
}

// Op returns the step's single operation, or "" if the step is invalid.
func (s Step) Op() string {
	ops := s.Ops()
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// ExpectClause specifies the expected engine state after a step.
// Only the fields that are set are checked.
type ExpectClause struct {
	// Start outcome (start steps only).
	Started   *bool    `yaml:"started,omitempty"`
	Guard     string   `yaml:"guard,omitempty"`
	Restarted *bool    `yaml:"restarted,omitempty"`
	Warnings  []string `yaml:"warnings,omitempty"`

	// Engine status.
	State      string   `yaml:"state,omitempty"`
	PositionMs *float64 `yaml:"position_ms,omitempty"`
	FrameStart *float64 `yaml:"frame_start,omitempty"`
}

// Assertion validates the trace, source calls or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of dispatches (dispatch_count) or
	// calls (source_call, optional).
	Count *int `yaml:"count,omitempty"`

	// Visible is the expected visible index per dispatch (visible_order).
	Visible []int `yaml:"visible,omitempty"`

	// Source and Call identify a transport call (source_call), e.g.
	// source: 0, call: "seek(1.5)".
	Source *int   `yaml:"source,omitempty"`
	Call   string `yaml:"call,omitempty"`

	// Transitions are the expected "reason:state" pairs (transition_order).
	Transitions []string `yaml:"transitions,omitempty"`

	// State and PositionMs are the expected final values (final_state).
	State      string   `yaml:"state,omitempty"`
	PositionMs *float64 `yaml:"position_ms,omitempty"`
}

// Assertion type constants.
const (
	AssertDispatchCount   = "dispatch_count"
	AssertVisibleOrder    = "visible_order"
	AssertSourceCall      = "source_call"
	AssertTransitionOrder = "transition_order"
	AssertFinalState      = "final_state"
)

var validStates = map[string]bool{"stopped": true, "playing": true, "paused": true}

// LoadScenario reads and parses a scenario YAML file. A relative project
// path is resolved against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the project path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Project != "" && !filepath.IsAbs(scenario.Project) && basePath != "" {
		scenario.Project = filepath.Join(basePath, scenario.Project)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Project == "" && s.Commands == nil:
		return fmt.Errorf("one of project or commands is required")
	case s.Project != "" && s.Commands != nil:
		return fmt.Errorf("project and commands are mutually exclusive")
	case s.Project != "":
		if _, err := os.Stat(s.Project); os.IsNotExist(err) {
			return fmt.Errorf("project file not found: %s", s.Project)
		}
	}

	if s.Sources != nil && *s.Sources < 0 {
		return fmt.Errorf("sources must be non-negative")
	}
	if s.ReadoutMs < 0 {
		return fmt.Errorf("readout_ms must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(i int, step Step) error {
	ops := step.Ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: one operation is required", i)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: multiple operations %v", i, ops)
	}

	if step.AdvanceMs != nil && *step.AdvanceMs < 0 {
		return fmt.Errorf("steps[%d]: advance_ms must be non-negative", i)
	}

	if e := step.Expect; e != nil {
		if e.State != "" && !validStates[e.State] {
			return fmt.Errorf("steps[%d].expect: unknown state %q", i, e.State)
		}
		if ops[0] != OpStart && (e.Started != nil || e.Guard != "" || e.Restarted != nil || e.Warnings != nil) {
			return fmt.Errorf("steps[%d].expect: start outcome fields on a %s step", i, ops[0])
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDispatchCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for dispatch_count", index)
		}
	case AssertVisibleOrder:
		if a.Visible == nil {
			return fmt.Errorf("assertions[%d]: visible list is required for visible_order", index)
		}
	case AssertSourceCall:
		if a.Source == nil || *a.Source < 0 {
			return fmt.Errorf("assertions[%d]: source is required for source_call", index)
		}
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for source_call", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for source_call", index)
		}
	case AssertTransitionOrder:
		if a.Transitions == nil {
			return fmt.Errorf("assertions[%d]: transitions list is required for transition_order", index)
		}
	case AssertFinalState:
		if a.State == "" && a.PositionMs == nil {
			return fmt.Errorf("assertions[%d]: state or position_ms is required for final_state", index)
		}
		if a.State != "" && !validStates[a.State] {
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
