package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
)

func projectPath(name string) string {
	return filepath.Join("testdata", "projects", name)
}

func TestLoadProject_Valid(t *testing.T) {
	project, err := LoadProject(projectPath("mixed.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "mixed", project.Name)
	require.Len(t, project.Commands, 3)
	assert.False(t, project.Commands[1].Enabled)
	assert.Len(t, project.EnabledCommands(), 2)
}

func TestLoadProject_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", projectPath("nope.cue"), ErrCodeNotFound},
		{"directory", filepath.Join("testdata", "projects"), ErrCodeNotFound},
		{"unsupported extension", projectPath("notes.txt"), ErrCodeUnsupported},
		{"degenerate trim", projectPath("bad_trim.yaml"), compiler.ErrDegenerateTrim},
		{"schema range", projectPath("bad_volume.cue"), compiler.ErrVolumeOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProject(tt.path)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadProject_CompileErrorKeepsField(t *testing.T) {
	_, err := LoadProject(projectPath("bad_trim.yaml"))
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "commands[0].end_ms", loadErr.Field)
	assert.Contains(t, loadErr.Message, "must be > start_ms")
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Message: "project file not found: x.cue"}
	assert.Equal(t, "E005: project file not found: x.cue", err.Error())
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		code  string
	}{
		{"commands[0].speed_pct", compiler.ErrNonPositiveSpeed},
		{"commands[2].position_ms", compiler.ErrNegativePosition},
		{"commands[0].end_ms", compiler.ErrDegenerateTrim},
		{"commands[0].volume", compiler.ErrVolumeOutOfRange},
		{"commands[0].extend_audio_sec", compiler.ErrNegativeAudioTail},
		{"commands[0].overlay.text.align", compiler.ErrInvalidAlignment},
		{"commands[0].start_ms", compiler.ErrNegativeTrimStart},
		{"commands[0].overlay.border.margin_pct", compiler.ErrOverlayOutOfBounds},
		{"commands[0].overlay.full_screen.opacity", compiler.ErrOverlayOutOfBounds},
		{"file", ErrCodeUnsupported},
		{"commands[0].colour", ErrCodeParseFailed},
		{"cue", ErrCodeParseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.code, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestLoadErrorOf(t *testing.T) {
	wrapped := &LoadError{Code: ErrCodeNotFound, Message: "gone"}
	assert.Same(t, wrapped, loadErrorOf(wrapped))

	generic := loadErrorOf(errors.New("boom"))
	assert.Equal(t, ErrCodeGeneric, generic.Code)
	assert.Equal(t, "boom", generic.Message)
}
