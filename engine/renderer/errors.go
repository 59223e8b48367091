package renderer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownMode is returned by SetMode and ParseRenderMode for modes without a strategy.
	ErrUnknownMode = errors.New("renderer: unknown render mode")

	// ErrNotInitialized is returned when a frame is rendered before Init.
	ErrNotInitialized = errors.New("renderer: not initialized")
)

// ShaderCompileError reports a shader stage that failed to compile or a program that failed to link.
type ShaderCompileError struct {
	// Program is the name of the program being built.
	Program string

	// Stage is the failing stage. Link failures report the last stage of the program.
	Stage ShaderStage

	// Link is true when compilation succeeded but linking failed.
	Link bool

	// Log is the driver or validator diagnostic output.
	Log string
}

// Error formats the program, stage and the first lines of the log.
func (e *ShaderCompileError) Error() string {
	what := "compile " + e.Stage.String() + " stage"
	if e.Link {
		what = "link"
	}
	msg := strings.TrimSpace(e.Log)
	if msg == "" {
		msg = "no diagnostic output"
	}
	return fmt.Sprintf("shader %q: failed to %s: %s", e.Program, what, msg)
}
