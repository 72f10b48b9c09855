package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// TraceSnapshot captures the observable output of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	SourceCalls  [][]string
	Final        FinalState
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"type": ev.Type,
			"seq":  ev.Seq,
			"step": ev.Step,
		}
		switch ev.Type {
		case "dispatch":
			m["frame_start"] = ev.FrameStart
			m["offset_ms"] = ev.OffsetMs
			if ev.Visible != nil {
				m["visible"] = *ev.Visible
			}
			m["terminal"] = ev.Terminal
		case "transition":
			m["from"] = ev.From
			m["to"] = ev.To
			m["reason"] = ev.Reason
			m["position_ms"] = ev.PositionMs
		}
		traceList[i] = m
	}

	calls := make([]any, len(s.SourceCalls))
	for i, src := range s.SourceCalls {
		list := make([]any, len(src))
		for j, c := range src {
			list[j] = c
		}
		calls[i] = list
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"source_calls":  calls,
		"final": map[string]any{
			"state":       s.Final.State,
			"position_ms": s.Final.PositionMs,
		},
	}
}

// Snapshot returns the canonical JSON form of a result, as stored in golden
// files.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		SourceCalls:  result.SourceCalls,
		Final:        result.Final,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
