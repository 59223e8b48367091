package renderer

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/go-gl/mathgl/mgl32"
)

type testSurface struct {
	w, h int
}

func (s testSurface) Width() int  { return s.w }
func (s testSurface) Height() int { return s.h }

// scriptedClock returns the given times in order and then repeats the last one.
func scriptedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) (Renderer, *CommandRecorder) {
	t.Helper()
	r, err := NewRenderer(BackendTypeRecorder, testSurface{w: 64, h: 48}, options...)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Init(); err != nil {
		t.Fatal(err)
	}
	rec := r.Backend().(*CommandRecorder)
	rec.Reset()
	return r, rec
}

func triangleMesh(name string, pos mgl32.Vec3) loader.Mesh {
	return loader.Mesh{
		Name:     name,
		Position: pos,
		Vertices: []float32{
			0, 0, 0, 0, 0, 1,
			1, 0, 0, 0, 0, 1,
			0, 1, 0, 0, 0, 1,
		},
	}
}

func TestInitBuildsProgramsAndOutputImage(t *testing.T) {
	r, err := NewRenderer(BackendTypeRecorder, testSurface{w: 64, h: 48})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Init(); err != nil {
		t.Fatal(err)
	}
	rec := r.Backend().(*CommandRecorder)

	want := []string{ProgramGeometry, ProgramPathTracer, ProgramScreen}
	if got := rec.ProgramNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("programs = %v, want %v", got, want)
	}

	rec.Reset()
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	dispatch := rec.Commands()[2].Dispatch
	cfg, ok := rec.Image(dispatch.Image)
	if !ok {
		t.Fatal("dispatch targets an unknown image")
	}
	if cfg.Width != 64 || cfg.Height != 48 || cfg.Format != FormatRGBA32F || cfg.Filter != FilterLinear || cfg.Wrap != WrapClampToEdge {
		t.Errorf("output image = %+v", cfg)
	}
	if dispatch.Groups != [3]uint32{64, 48, 1} {
		t.Errorf("dispatch groups = %v, want [64 48 1]", dispatch.Groups)
	}
}

func TestRenderFrameBeforeInit(t *testing.T) {
	r, err := NewRenderer(BackendTypeRecorder, testSurface{w: 8, h: 8})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.RenderFrame(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestInitReportsShaderCompileError(t *testing.T) {
	r, err := NewRenderer(BackendTypeRecorder, testSurface{w: 8, h: 8})
	if err != nil {
		t.Fatal(err)
	}
	r.Backend().(*CommandRecorder).FailProgram(ProgramPathTracer, "0:12: 'ray00' : undeclared identifier")

	err = r.Init()
	var compileErr *ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("err = %v, want *ShaderCompileError", err)
	}
	if compileErr.Program != ProgramPathTracer || compileErr.Stage != ShaderStageCompute {
		t.Errorf("error = %+v", compileErr)
	}
	if err := r.RenderFrame(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("frame after failed init: err = %v, want ErrNotInitialized", err)
	}
}

func TestPathTraceFrameOrder(t *testing.T) {
	r, rec := newTestRenderer(t)
	if err := r.LoadMeshes(triangleMesh("a", mgl32.Vec3{})); err != nil {
		t.Fatal(err)
	}
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}

	want := []CommandKind{
		CommandBeginFrame,
		CommandSetUniforms,
		CommandDispatch,
		CommandMemoryBarrier,
		CommandBindTexture,
		CommandDraw,
		CommandPresent,
	}
	if got := rec.Kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}

	cmds := rec.Commands()
	if cmds[0].Clear != defaultClearColor {
		t.Errorf("clear = %v, want %v", cmds[0].Clear, defaultClearColor)
	}
	if cmds[3].Barrier != BarrierShaderImageAccess {
		t.Errorf("barrier = %v", cmds[3].Barrier)
	}
	if cmds[4].Texture.Unit != 0 || cmds[4].Texture.Image != cmds[2].Dispatch.Image {
		t.Errorf("texture binding = %+v, want output image on unit 0", cmds[4].Texture)
	}
	draw := cmds[5].Draw
	if draw.Topology != TopologyTriangleStrip || draw.Count != 4 || draw.First != 0 || draw.Geometry != NoGeometry {
		t.Errorf("quad draw = %+v", draw)
	}

	names := make([]string, len(cmds[1].Uniforms))
	for i, u := range cmds[1].Uniforms {
		names[i] = u.Name
	}
	if want := []string{UniformEye, UniformRay00, UniformRay10, UniformRay01, UniformRay11}; !reflect.DeepEqual(names, want) {
		t.Errorf("uniforms = %v, want %v", names, want)
	}
}

func TestRasterFrameDrawsEveryBatch(t *testing.T) {
	r, rec := newTestRenderer(t, WithMode(RenderModeRasterizer))
	meshes := []loader.Mesh{
		triangleMesh("a", mgl32.Vec3{0, 0, 0}),
		triangleMesh("b", mgl32.Vec3{1, 2, 3}),
		triangleMesh("c", mgl32.Vec3{-4, 0, 1}),
	}
	if err := r.LoadMeshes(meshes...); err != nil {
		t.Fatal(err)
	}
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}

	cmds := rec.Commands()
	if len(cmds) != 2+2*len(meshes) {
		t.Fatalf("got %d commands: %v", len(cmds), rec.Kinds())
	}

	cam := r.Camera()
	vp := cam.ProjectionMatrix().Mul4(cam.ViewMatrix())
	for i, batch := range r.Batches() {
		set, draw := cmds[1+2*i], cmds[2+2*i]
		if set.Kind != CommandSetUniforms || draw.Kind != CommandDraw {
			t.Fatalf("batch %d: got %s, %s", i, set.Kind, draw.Kind)
		}
		want := vp.Mul4(mgl32.Translate3D(meshes[i].Position[0], meshes[i].Position[1], meshes[i].Position[2]))
		if got := set.Uniforms[0].Mat4; set.Uniforms[0].Name != UniformMVP || !got.ApproxEqualThreshold(want, 1e-5) {
			t.Errorf("batch %d mvp = %v, want %v", i, got, want)
		}
		if draw.Draw.Geometry != batch.Geometry || draw.Draw.Count != 3 || draw.Draw.Topology != TopologyTriangleList {
			t.Errorf("batch %d draw = %+v", i, draw.Draw)
		}
	}
	if cmds[len(cmds)-1].Kind != CommandPresent {
		t.Errorf("last command = %s, want Present", cmds[len(cmds)-1].Kind)
	}
}

func TestRasterResultIgnoresBatchOrder(t *testing.T) {
	meshes := []loader.Mesh{
		triangleMesh("a", mgl32.Vec3{0, 0, 0}),
		triangleMesh("b", mgl32.Vec3{1, 2, 3}),
		triangleMesh("c", mgl32.Vec3{-4, 0, 1}),
		triangleMesh("d", mgl32.Vec3{0, -1, 2}),
	}
	mvps := func(order []int) map[string]mgl32.Mat4 {
		r, rec := newTestRenderer(t, WithMode(RenderModeRasterizer))
		for _, i := range order {
			if err := r.LoadMeshes(meshes[i]); err != nil {
				t.Fatal(err)
			}
		}
		if err := r.RenderFrame(); err != nil {
			t.Fatal(err)
		}
		batches := r.Batches()
		out := make(map[string]mgl32.Mat4)
		n := 0
		for _, c := range rec.Commands() {
			if c.Kind == CommandSetUniforms {
				out[batches[n].Name] = c.Uniforms[0].Mat4
				n++
			}
		}
		return out
	}

	base := mvps([]int{0, 1, 2, 3})
	shuffled := mvps(rand.New(rand.NewSource(7)).Perm(len(meshes)))
	if !reflect.DeepEqual(base, shuffled) {
		t.Errorf("per-batch transforms depend on upload order:\n%v\n%v", base, shuffled)
	}
}

func TestModesAreExclusive(t *testing.T) {
	r, rec := newTestRenderer(t)
	if err := r.LoadMeshes(triangleMesh("a", mgl32.Vec3{})); err != nil {
		t.Fatal(err)
	}

	for _, mode := range []RenderMode{RenderModePathTracer, RenderModeRasterizer, RenderModePathTracer} {
		if err := r.SetMode(mode); err != nil {
			t.Fatal(err)
		}
		rec.Reset()
		if err := r.RenderFrame(); err != nil {
			t.Fatal(err)
		}

		var dispatches, quads, triangles int
		for _, c := range rec.Commands() {
			switch {
			case c.Kind == CommandDispatch:
				dispatches++
			case c.Kind == CommandDraw && c.Draw.Topology == TopologyTriangleStrip:
				quads++
			case c.Kind == CommandDraw && c.Draw.Topology == TopologyTriangleList:
				triangles++
			}
		}
		switch mode {
		case RenderModePathTracer:
			if dispatches != 1 || quads != 1 || triangles != 0 {
				t.Errorf("path tracer frame: %d dispatches, %d quads, %d batch draws", dispatches, quads, triangles)
			}
		case RenderModeRasterizer:
			if dispatches != 0 || quads != 0 || triangles != 1 {
				t.Errorf("raster frame: %d dispatches, %d quads, %d batch draws", dispatches, quads, triangles)
			}
		}
	}
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	r, _ := newTestRenderer(t, WithMode(RenderModeRasterizer))
	if err := r.SetMode(RenderMode(42)); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
	if r.Mode() != RenderModeRasterizer {
		t.Errorf("mode = %s after rejected SetMode, want rasterizer", r.Mode())
	}
}

func TestToggleMode(t *testing.T) {
	r, _ := newTestRenderer(t)
	if got := r.ToggleMode(); got != RenderModeRasterizer {
		t.Errorf("first toggle = %s", got)
	}
	if got := r.ToggleMode(); got != RenderModePathTracer {
		t.Errorf("second toggle = %s", got)
	}
}

func TestNewRendererRejectsModeWithoutStrategy(t *testing.T) {
	_, err := NewRenderer(BackendTypeRecorder, testSurface{w: 8, h: 8}, WithMode(RenderMode(9)))
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}

func TestCustomStrategy(t *testing.T) {
	var seen *FrameContext
	r, rec := newTestRenderer(t, WithStrategy(RenderModeRasterizer, FrameStrategyFunc(func(ctx *FrameContext) {
		seen = ctx
	})), WithMode(RenderModeRasterizer))

	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	if seen == nil || seen.OutputWidth != 64 || seen.OutputHeight != 48 {
		t.Fatalf("strategy context = %+v", seen)
	}
	if want := []CommandKind{CommandBeginFrame, CommandPresent}; !reflect.DeepEqual(rec.Kinds(), want) {
		t.Errorf("commands = %v, want %v", rec.Kinds(), want)
	}
}

func TestCornerRaysFollowCameraEachFrame(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithPosition(0, 0, 0), camera.WithYaw(0), camera.WithPitch(0))
	cam := camera.NewCamera(camera.WithController(ctrl), camera.WithAspect(64.0/48.0))
	r, rec := newTestRenderer(t, WithCamera(cam))

	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	ctrl.SetYaw(mgl32.DegToRad(90))
	ctrl.SetPosition(3, 0, 0)
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}

	frames := rec.Frames()
	if len(frames) != 2 {
		t.Fatalf("got %d frames", len(frames))
	}
	second := frames[1][1].Uniforms
	if eye := second[0].Vec3; !eye.ApproxEqual(mgl32.Vec3{3, 0, 0}) {
		t.Errorf("eye = %v, want (3,0,0)", eye)
	}
	rays := cam.CornerRays()
	for i, want := range []mgl32.Vec3{rays.Ray00, rays.Ray10, rays.Ray01, rays.Ray11} {
		if got := second[i+1].Vec3; !got.ApproxEqual(want) {
			t.Errorf("%s = %v, want %v", second[i+1].Name, got, want)
		}
	}
	if frames[0][1].Uniforms[1].Vec3.ApproxEqual(second[1].Vec3) {
		t.Error("corner rays did not change after the camera turned")
	}
}

func TestUpdateDeltaTime(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := scriptedClock(
		base,                           // Init
		base.Add(16*time.Millisecond),  // first update
		base.Add(40*time.Millisecond),  // second update
		base.Add(30*time.Millisecond),  // clock went backwards
		base.Add(50*time.Millisecond),  // recovers
	)
	r, _ := newTestRenderer(t, WithClock(clock))

	want := []time.Duration{16 * time.Millisecond, 24 * time.Millisecond, 0, 20 * time.Millisecond}
	for i, w := range want {
		if got := r.UpdateDeltaTime(); got != w {
			t.Errorf("update %d = %s, want %s", i, got, w)
		}
		if r.DeltaTime() != w {
			t.Errorf("DeltaTime after update %d = %s, want %s", i, r.DeltaTime(), w)
		}
	}
}

func TestDeltaTimeNeverNegative(t *testing.T) {
	r, _ := newTestRenderer(t)
	for i := 0; i < 100; i++ {
		if d := r.UpdateDeltaTime(); d < 0 {
			t.Fatalf("negative delta %s", d)
		}
	}
}

func TestResizeRecreatesOutputImage(t *testing.T) {
	r, rec := newTestRenderer(t)
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	old := rec.Commands()[2].Dispatch.Image

	if err := r.Resize(800, 600); err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.Image(old); ok {
		t.Error("old output image was not released")
	}
	if w, h := rec.Size(); w != 800 || h != 600 {
		t.Errorf("surface = %dx%d, want 800x600", w, h)
	}

	rec.Reset()
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	dispatch := rec.Commands()[2].Dispatch
	if dispatch.Groups != [3]uint32{800, 600, 1} {
		t.Errorf("groups = %v, want [800 600 1]", dispatch.Groups)
	}
	if cfg, _ := rec.Image(dispatch.Image); cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("image = %+v, want 800x600", cfg)
	}
}

func TestResizeKeepsOutputImageWhenRecreateFails(t *testing.T) {
	r, rec := newTestRenderer(t)
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	old := rec.Commands()[2].Dispatch.Image

	outOfMemory := errors.New("out of device memory")
	rec.FailImages(outOfMemory)
	if err := r.Resize(800, 600); !errors.Is(err, outOfMemory) {
		t.Fatalf("Resize error = %v, want %v", err, outOfMemory)
	}
	if _, ok := rec.Image(old); !ok {
		t.Fatal("old output image was released although no replacement exists")
	}

	rec.Reset()
	if err := r.RenderFrame(); err != nil {
		t.Fatalf("frame after failed resize: %v", err)
	}
	if got := rec.Commands()[2].Dispatch; got.Image != old || got.Groups != [3]uint32{64, 48, 1} {
		t.Errorf("dispatch = %+v, want the old 64x48 image %d", got, old)
	}
}

func TestResizeIgnoresMinimizedWindow(t *testing.T) {
	r, rec := newTestRenderer(t)
	if err := r.Resize(0, 0); err != nil {
		t.Fatal(err)
	}
	if w, h := rec.Size(); w != 64 || h != 48 {
		t.Errorf("surface = %dx%d, want unchanged 64x48", w, h)
	}
	if err := r.RenderFrame(); err != nil {
		t.Fatalf("frame after zero resize: %v", err)
	}
}

func TestLoadMeshesSkipsEmptyMeshes(t *testing.T) {
	r, _ := newTestRenderer(t)
	if err := r.LoadMeshes(loader.Mesh{Name: "empty"}, triangleMesh("tri", mgl32.Vec3{1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	batches := r.Batches()
	if len(batches) != 1 || batches[0].Name != "tri" || batches[0].VertexCount != 3 {
		t.Fatalf("batches = %+v", batches)
	}
	if got := batches[0].Transform.Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("batch translation = %v", got)
	}
}

func TestFrameErrorSurfacesFromPresent(t *testing.T) {
	r, rec := newTestRenderer(t, WithMode(RenderModeRasterizer), WithStrategy(RenderModeRasterizer, FrameStrategyFunc(func(ctx *FrameContext) {
		ctx.Encoder.Draw(DrawCommand{Program: ProgramHandle(999), Topology: TopologyTriangleList, Count: 3})
	})))
	if err := r.RenderFrame(); err == nil {
		t.Fatal("expected an error for an unknown program")
	}
	// The error is not sticky across frames.
	if err := r.SetMode(RenderModePathTracer); err != nil {
		t.Fatal(err)
	}
	rec.Reset()
	if err := r.RenderFrame(); err != nil {
		t.Fatalf("next frame: %v", err)
	}
}

func TestCloseReleasesBackend(t *testing.T) {
	r, rec := newTestRenderer(t)
	r.Close()
	if !rec.Released() {
		t.Error("backend not released")
	}
	if err := r.RenderFrame(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestSetPresentMode(t *testing.T) {
	r, rec := newTestRenderer(t)
	r.SetPresentMode(PresentModeUncapped)
	if rec.PresentMode() != PresentModeUncapped {
		t.Errorf("present mode = %v", rec.PresentMode())
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := NewRenderer(RendererBackendType(77), testSurface{w: 8, h: 8})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err = %v, want ErrUnknownBackend", err)
	}
}
