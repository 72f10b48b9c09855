package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, err := executeCommand(t, NewValidateCommand, "text", projectPath("mixed.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "3 command(s), 2 enabled")
}

func TestValidate_JSON(t *testing.T) {
	out, err := executeCommand(t, NewValidateCommand, "json", projectPath("overlap.cue"))
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Enabled)
	assert.Empty(t, result.Skipped)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		project  string
		code     string
		contains string
	}{
		{"degenerate trim", "bad_trim.yaml", "E203", "end_ms"},
		{"schema violation", "bad_volume.cue", "E204", "volume"},
		{"unsupported", "notes.txt", ErrCodeUnsupported, ".txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, NewValidateCommand, "json", projectPath(tt.project))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Contains(t, out, tt.contains)
		})
	}
}
