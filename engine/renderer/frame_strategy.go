package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform names shared by the built-in programs.
const (
	UniformMVP   = "mvp"
	UniformEye   = "eye"
	UniformRay00 = "ray00"
	UniformRay10 = "ray10"
	UniformRay01 = "ray01"
	UniformRay11 = "ray11"
)

// quadVertexCount is the vertex count of the full-screen triangle strip.
const quadVertexCount = 4

// GeometryBatch is one uploaded vertex buffer drawn with its own model transform.
type GeometryBatch struct {
	Name        string
	Geometry    GeometryHandle
	Transform   mgl32.Mat4
	VertexCount int32
}

// Programs holds the handles of the built-in programs.
type Programs struct {
	// Geometry is the raster program that draws batches.
	Geometry ProgramHandle

	// PathTracer is the compute program that writes the output image.
	PathTracer ProgramHandle

	// Screen is the program that draws the output image on a full-screen quad.
	Screen ProgramHandle
}

// FrameContext is everything a FrameStrategy may read for one frame. The camera values are
// recomputed before the strategy runs.
type FrameContext struct {
	Encoder CommandEncoder

	Projection mgl32.Mat4
	View       mgl32.Mat4
	Eye        mgl32.Vec3
	Rays       camera.CornerRays

	Batches  []GeometryBatch
	Programs Programs

	// Output is the image the path tracer writes, sized OutputWidth by OutputHeight.
	Output       ImageHandle
	OutputWidth  int
	OutputHeight int

	DeltaTime time.Duration
}

// FrameStrategy draws one frame into the encoder of the given context.
type FrameStrategy interface {
	Draw(ctx *FrameContext)
}

// FrameStrategyFunc adapts a function to FrameStrategy.
type FrameStrategyFunc func(ctx *FrameContext)

// Draw calls f(ctx).
func (f FrameStrategyFunc) Draw(ctx *FrameContext) {
	f(ctx)
}

// RasterStrategy issues one independent triangle-list draw per batch with mvp = P * V * M.
type RasterStrategy struct{}

var _ FrameStrategy = RasterStrategy{}

// Draw records the batches in collection order.
func (RasterStrategy) Draw(ctx *FrameContext) {
	viewProjection := ctx.Projection.Mul4(ctx.View)
	for _, batch := range ctx.Batches {
		ctx.Encoder.SetUniforms(ctx.Programs.Geometry, Mat4Uniform(UniformMVP, viewProjection.Mul4(batch.Transform)))
		ctx.Encoder.Draw(DrawCommand{
			Program:  ctx.Programs.Geometry,
			Geometry: batch.Geometry,
			Topology: TopologyTriangleList,
			First:    0,
			Count:    batch.VertexCount,
		})
	}
}

// PathTraceStrategy dispatches the compute tracer into the output image, waits for the image
// writes with a barrier and then samples the image on a full-screen quad.
type PathTraceStrategy struct{}

var _ FrameStrategy = PathTraceStrategy{}

// Draw records uniforms, dispatch, barrier, texture binding and the quad draw, in that order.
func (PathTraceStrategy) Draw(ctx *FrameContext) {
	ctx.Encoder.SetUniforms(ctx.Programs.PathTracer,
		Vec3Uniform(UniformEye, ctx.Eye),
		Vec3Uniform(UniformRay00, ctx.Rays.Ray00),
		Vec3Uniform(UniformRay10, ctx.Rays.Ray10),
		Vec3Uniform(UniformRay01, ctx.Rays.Ray01),
		Vec3Uniform(UniformRay11, ctx.Rays.Ray11),
	)
	ctx.Encoder.Dispatch(DispatchCommand{
		Program: ctx.Programs.PathTracer,
		Image:   ctx.Output,
		Groups:  [3]uint32{uint32(ctx.OutputWidth), uint32(ctx.OutputHeight), 1},
	})
	ctx.Encoder.MemoryBarrier(BarrierShaderImageAccess)
	ctx.Encoder.BindTexture(TextureBinding{Unit: 0, Image: ctx.Output})
	ctx.Encoder.Draw(DrawCommand{
		Program:  ctx.Programs.Screen,
		Geometry: NoGeometry,
		Topology: TopologyTriangleStrip,
		First:    0,
		Count:    quadVertexCount,
	})
}

// defaultStrategies returns the dispatch table used when no strategy overrides are configured.
func defaultStrategies() map[RenderMode]FrameStrategy {
	return map[RenderMode]FrameStrategy{
		RenderModePathTracer: PathTraceStrategy{},
		RenderModeRasterizer: RasterStrategy{},
	}
}
