package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// ProjectExtensions lists the file extensions ParseProject understands.
var ProjectExtensions = []string{".cue", ".yaml", ".yml", ".json"}

// IsProjectFile reports whether path has a project file extension.
func IsProjectFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ProjectExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseProject decodes a project file and compiles it with CompileProject.
// The format is chosen by the extension of filename, which is also used in
// error positions. YAML and JSON are extracted into CUE first so every
// format gets the same schema defaults and error positions.
func ParseProject(filename string, data []byte) (*ir.Project, error) {
	v, err := decodeProject(cuecontext.New(), filename, data)
	if err != nil {
		return nil, err
	}
	return CompileProject(v)
}

// LoadProject reads and parses the project file at path.
func LoadProject(path string) (*ir.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	return ParseProject(path, data)
}

func decodeProject(ctx *cue.Context, filename string, data []byte) (cue.Value, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue":
		return ctx.CompileBytes(data, cue.Filename(filename)), nil

	case ".yaml", ".yml":
		f, err := cueyaml.Extract(filename, data)
		if err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return ctx.BuildFile(f), nil

	case ".json":
		expr, err := cuejson.Extract(filename, data)
		if err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return ctx.BuildExpr(expr), nil

	default:
		return cue.Value{}, &CompileError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported project format %q (want one of %s)", filepath.Ext(filename), strings.Join(ProjectExtensions, ", ")),
		}
	}
}
