package renderer

import (
	"fmt"
	"strings"
)

// RenderMode selects the FrameStrategy the Renderer runs each frame.
type RenderMode int

const (
	// RenderModePathTracer traces the scene in a compute program and shows the result on a full-screen quad.
	RenderModePathTracer RenderMode = iota

	// RenderModeRasterizer draws every geometry batch with the depth test enabled.
	RenderModeRasterizer
)

// String returns the mode name used on the command line.
func (m RenderMode) String() string {
	switch m {
	case RenderModePathTracer:
		return "pathtracer"
	case RenderModeRasterizer:
		return "rasterizer"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Next returns the other mode, used to toggle at runtime.
func (m RenderMode) Next() RenderMode {
	if m == RenderModePathTracer {
		return RenderModeRasterizer
	}
	return RenderModePathTracer
}

// ParseRenderMode converts a case-insensitive mode name into a RenderMode.
//
// Parameters:
//   - name: pathtracer (or pt, raytracer) or rasterizer (or raster)
//
// Returns:
//   - RenderMode: the parsed mode
//   - error: ErrUnknownMode if the name is not recognised
func ParseRenderMode(name string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pathtracer", "path-tracer", "pt", "raytracer":
		return RenderModePathTracer, nil
	case "rasterizer", "raster":
		return RenderModeRasterizer, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}
