package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// LoadError represents an error that occurred while loading a project file.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
// Command validation codes (E2xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeUnsupported = "E003" // Unsupported project file extension
	ErrCodeParseFailed = "E004" // Syntax or schema error in the project file
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStore       = "E006" // Recording database error
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadProject loads a .cue, .yaml, .yml or .json project file.
func LoadProject(path string) (*ir.Project, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("project file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing project file: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}
	if !compiler.IsProjectFile(path) {
		return nil, &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported project file %s (want one of %s)", path, strings.Join(compiler.ProjectExtensions, ", ")),
		}
	}

	project, err := compiler.LoadProject(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return project, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := compileErr.Code
		if code == "" {
			code = MapFieldToErrorCode(compileErr.Field)
		}
		return &LoadError{
			Code:    code,
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
// Schema errors carry the offending path; range errors map to the matching
// validation code so CUE and Go validation report alike.
func MapFieldToErrorCode(field string) string {
	if field == "file" {
		return ErrCodeUnsupported
	}
	last := field
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		last = field[i+1:]
	}
	switch last {
	case "speed_pct":
		return compiler.ErrNonPositiveSpeed
	case "position_ms":
		return compiler.ErrNegativePosition
	case "end_ms":
		return compiler.ErrDegenerateTrim
	case "volume":
		return compiler.ErrVolumeOutOfRange
	case "extend_audio_sec":
		return compiler.ErrNegativeAudioTail
	case "align":
		return compiler.ErrInvalidAlignment
	case "start_ms":
		return compiler.ErrNegativeTrimStart
	case "opacity", "margin_pct", "x_pct", "y_pct":
		return compiler.ErrOverlayOutOfBounds
	default:
		return ErrCodeParseFailed
	}
}

// loadErrorOf returns err as a LoadError, wrapping unknown errors as E001.
func loadErrorOf(err error) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}
