package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func clip(position, end float64) map[string]any {
	return map[string]any{"position_ms": position, "end_ms": end}
}

func TestRun_Scenarios(t *testing.T) {
	files, err := FindScenarios(filepath.Join("testdata", "scenarios"), "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_OverlapTrace(t *testing.T) {
	result, err := Run(loadTestScenario(t, "overlap_playback"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 6)
	assert.Equal(t, "transition", result.Trace[0].Type)
	assert.Equal(t, int64(1), result.Trace[0].Seq)

	dispatches := result.Dispatches()
	require.Len(t, dispatches, 4)
	assert.Equal(t, 0, dispatches[0].Step)
	assert.Equal(t, 1, dispatches[1].Step)
	assert.Equal(t, 2000.0, dispatches[1].FrameStart)
	assert.True(t, dispatches[3].Terminal)

	assert.Equal(t, FinalState{State: "stopped", PositionMs: 6000}, result.Final)
	assert.Len(t, result.SourceCalls, 2)
}

func TestRun_GuardsRecorded(t *testing.T) {
	result, err := Run(loadTestScenario(t, "not_ready"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"steps[0]: NOT_READY"}, result.Guards)

	result, err = Run(loadTestScenario(t, "resume_at_end_restarts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"steps[0]: INVALID_RESUME_TARGET"}, result.Guards)
}

func TestRun_ExpectMismatch(t *testing.T) {
	wrong := 999.0
	scenario := &Scenario{
		Name:        "expect_mismatch",
		Description: "expect clause that cannot hold",
		Commands:    []map[string]any{clip(0, 1000)},
		Steps: []Step{
			{Start: &StartStep{}, Expect: &ExpectClause{State: "paused", PositionMs: &wrong}},
		},
		Assertions: []Assertion{{Type: AssertFinalState, State: "playing"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "steps[0]: expected state paused, got playing", result.Errors[0])
	assert.Contains(t, result.Errors[1], "expected position_ms 999")
}

func TestRun_FailedAssertion(t *testing.T) {
	count := 7
	scenario := &Scenario{
		Name:        "failed_assertion",
		Description: "dispatch count that cannot hold",
		Commands:    []map[string]any{clip(0, 1000)},
		Steps:       []Step{{Start: &StartStep{}}},
		Assertions:  []Assertion{{Type: AssertDispatchCount, Count: &count}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: 7 dispatches")
	assert.Contains(t, result.Errors[0], "Actual: 1 dispatches")
}

func TestRun_RewindAndFastForward(t *testing.T) {
	advance := func(v float64) Step { return Step{AdvanceMs: &v} }
	rewind, ff := 500.0, 2500.0
	pos := func(v float64) *float64 { return &v }

	scenario := &Scenario{
		Name:        "rewind_fast_forward",
		Description: "relative seeks from the live position",
		Commands:    []map[string]any{clip(0, 4000)},
		Steps: []Step{
			{Start: &StartStep{}},
			advance(1000),
			{RewindMs: &rewind, Expect: &ExpectClause{State: "playing", PositionMs: pos(500)}},
			{FastForwardMs: &ff, Expect: &ExpectClause{State: "playing", PositionMs: pos(3000)}},
			{Pause: true, Expect: &ExpectClause{State: "paused", PositionMs: pos(3000)}},
			{Stop: true, Expect: &ExpectClause{State: "stopped", PositionMs: pos(0)}},
		},
		Assertions: []Assertion{{
			Type: AssertTransitionOrder,
			Transitions: []string{
				"start:playing",
				"seek:paused", "start:playing",
				"seek:paused", "start:playing",
				"pause:paused",
				"stop:stopped",
			},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ShowAllSources(t *testing.T) {
	scenario := &Scenario{
		Name:           "show_all",
		Description:    "every source stays visible",
		Commands:       []map[string]any{clip(0, 4000), clip(2000, 4000)},
		ShowAllSources: true,
		Steps:          []Step{{Start: &StartStep{}}},
		Assertions: []Assertion{
			{Type: AssertSourceCall, Source: intPtr(1), Call: "visible(true)"},
			{Type: AssertVisibleOrder, Visible: []int{0}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidCommands(t *testing.T) {
	scenario := &Scenario{
		Name:        "invalid",
		Description: "schema violation",
		Commands:    []map[string]any{{"position_ms": 0, "end_ms": 1000, "volume": 500}},
		Steps:       []Step{{Start: &StartStep{}}},
		Assertions:  []Assertion{{Type: AssertFinalState, State: "stopped"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load commands")
}

func intPtr(v int) *int { return &v }
