package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	return executeCommand(t, NewSimulateCommand, format, args...)
}

func TestSimulate_Overlap(t *testing.T) {
	out, err := simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "0", "--session-id", "sess-1")
	require.NoError(t, err)

	var result SimulationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Started)
	assert.Equal(t, "sess-1", result.SessionID)
	assert.Equal(t, 6000.0, result.PlanEndMs)
	assert.Equal(t, "stopped", result.FinalState)
	assert.Equal(t, 6000.0, result.FinalPositionMs)

	require.Len(t, result.Events, 6)
	var types []string
	var visible []int
	for i, ev := range result.Events {
		assert.Equal(t, int64(i+1), ev.Seq)
		types = append(types, ev.Type)
		if ev.Type == "dispatch" && !ev.Terminal {
			require.NotNil(t, ev.Visible)
			visible = append(visible, *ev.Visible)
		}
	}
	assert.Equal(t, []string{"transition", "dispatch", "dispatch", "dispatch", "dispatch", "transition"}, types)
	assert.Equal(t, []int{0, 1, 1}, visible)
	assert.Equal(t, 2000.0, result.Events[2].AtMs)
	assert.True(t, result.Events[4].Terminal)
	assert.Equal(t, "end", result.Events[5].Reason)

	require.Len(t, result.SourceCalls, 2)
	assert.Equal(t, []string{"visible(false)", "seek(0)", "volume(100)", "rate(1)", "play", "visible(true)", "visible(true)", "pause", "visible(false)"},
		result.SourceCalls[1])
}

func TestSimulate_Resume(t *testing.T) {
	out, err := simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "0", "--resume-ms", "2500")
	require.NoError(t, err)

	var result SimulationResult
	decodeResponse(t, out, &result)
	assert.True(t, result.Started)
	assert.False(t, result.Restarted)
	assert.Equal(t, 2500.0, result.ResumedFromMs)

	first := result.Events[1]
	require.Equal(t, "dispatch", first.Type)
	assert.Equal(t, 2000.0, *first.FrameStart)
	assert.Equal(t, 2500.0, *first.OffsetMs)

	last := result.Events[len(result.Events)-1]
	assert.Equal(t, 3500.0, last.AtMs, "plays the remaining 3500ms")
	assert.Equal(t, "stopped", result.FinalState)
}

func TestSimulate_ResumeAtEndRestarts(t *testing.T) {
	out, err := simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "0", "--resume-ms", "6000")
	require.NoError(t, err)

	var result SimulationResult
	decodeResponse(t, out, &result)
	assert.True(t, result.Started)
	assert.True(t, result.Restarted)
	assert.Equal(t, 0.0, result.ResumedFromMs)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "INVALID_RESUME_TARGET")
}

func TestSimulate_EndMs(t *testing.T) {
	out, err := simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "0", "--end-ms", "3000")
	require.NoError(t, err)

	var result SimulationResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 3000.0, result.PlanEndMs)
	assert.Equal(t, 3000.0, result.FinalPositionMs)
}

func TestSimulate_Readouts(t *testing.T) {
	out, err := simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "0")
	require.NoError(t, err)
	var quiet SimulationResult
	decodeResponse(t, out, &quiet)

	out, err = simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "500")
	require.NoError(t, err)
	var chatty SimulationResult
	decodeResponse(t, out, &chatty)

	assert.Greater(t, chatty.Readouts, quiet.Readouts)
}

func TestSimulate_EmptyPlan(t *testing.T) {
	out, err := simulate(t, "json", projectPath("empty.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result SimulationResult
	decodeResponse(t, out, &result)
	assert.False(t, result.Started)
	assert.Equal(t, "EMPTY_PLAN", result.Guard)
	assert.Empty(t, result.Events)
}

func TestSimulate_Text(t *testing.T) {
	out, err := simulate(t, "text", projectPath("overlap.cue"), "--readout-ms", "0", "--session-id", "sess-1")
	require.NoError(t, err)

	assert.Contains(t, out, "=== Session sess-1 ===")
	assert.Contains(t, out, "stopped -> playing (start at 0ms)")
	assert.Contains(t, out, "frame 2000ms from 2000ms show #1")
	assert.Contains(t, out, "frame 6000ms end")
	assert.Contains(t, out, "✓ stopped at 6000ms after 6 event(s)")
}

func TestSimulate_InvalidProject(t *testing.T) {
	_, err := simulate(t, "text", projectPath("bad_trim.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulate_RecordsToDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rec.db")
	out, err := simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "0", "--session-id", "sess-1", "--db", db)
	require.NoError(t, err)

	var result SimulationResult
	decodeResponse(t, out, &result)
	assert.Equal(t, db, result.Database)

	// A second run continues the seq numbering of the first.
	out, err = simulate(t, "json", projectPath("overlap.cue"), "--readout-ms", "0", "--session-id", "sess-2", "--db", db)
	require.NoError(t, err)
	var second SimulationResult
	decodeResponse(t, out, &second)
	require.NotEmpty(t, second.Events)
	assert.Equal(t, int64(7), second.Events[0].Seq)
}
