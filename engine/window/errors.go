package window

import "fmt"

// WindowInitError reports a failure of the windowing system itself, either initializing
// GLFW or creating the native window.
type WindowInitError struct {
	// Op is the failing step, e.g. "glfw init" or "create window".
	Op  string
	Err error
}

func (e *WindowInitError) Error() string {
	return fmt.Sprintf("window: %s: %v", e.Op, e.Err)
}

func (e *WindowInitError) Unwrap() error {
	return e.Err
}

// ContextCreationError reports a window that was created but whose OpenGL context could not
// be made usable.
type ContextCreationError struct {
	Err error
}

func (e *ContextCreationError) Error() string {
	return fmt.Sprintf("window: create OpenGL context: %v", e.Err)
}

func (e *ContextCreationError) Unwrap() error {
	return e.Err
}
