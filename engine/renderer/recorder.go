package renderer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// CommandKind identifies a recorded backend call.
type CommandKind int

const (
	CommandBeginFrame CommandKind = iota
	CommandSetUniforms
	CommandDispatch
	CommandMemoryBarrier
	CommandBindTexture
	CommandDraw
	CommandPresent
)

// String returns the command name.
func (k CommandKind) String() string {
	switch k {
	case CommandBeginFrame:
		return "BeginFrame"
	case CommandSetUniforms:
		return "SetUniforms"
	case CommandDispatch:
		return "Dispatch"
	case CommandMemoryBarrier:
		return "MemoryBarrier"
	case CommandBindTexture:
		return "BindTexture"
	case CommandDraw:
		return "Draw"
	case CommandPresent:
		return "Present"
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is one recorded call. Only the fields relevant to Kind are set.
type Command struct {
	Kind     CommandKind
	Program  ProgramHandle
	Uniforms []Uniform
	Dispatch DispatchCommand
	Barrier  Barrier
	Texture  TextureBinding
	Draw     DrawCommand
	Clear    mgl32.Vec4
}

// Detail formats the command arguments for diagnostics.
func (c Command) Detail() string {
	switch c.Kind {
	case CommandBeginFrame:
		return fmt.Sprintf("clear=(%.2f, %.2f, %.2f, %.2f)", c.Clear[0], c.Clear[1], c.Clear[2], c.Clear[3])
	case CommandSetUniforms:
		parts := make([]string, len(c.Uniforms))
		for i, u := range c.Uniforms {
			parts[i] = u.String()
		}
		return fmt.Sprintf("program=%d %s", c.Program, strings.Join(parts, " "))
	case CommandDispatch:
		return fmt.Sprintf("program=%d image=%d groups=%dx%dx%d",
			c.Dispatch.Program, c.Dispatch.Image, c.Dispatch.Groups[0], c.Dispatch.Groups[1], c.Dispatch.Groups[2])
	case CommandMemoryBarrier:
		return c.Barrier.String()
	case CommandBindTexture:
		return fmt.Sprintf("unit=%d image=%d", c.Texture.Unit, c.Texture.Image)
	case CommandDraw:
		return fmt.Sprintf("program=%d geometry=%d %s first=%d count=%d",
			c.Draw.Program, c.Draw.Geometry, c.Draw.Topology, c.Draw.First, c.Draw.Count)
	}
	return ""
}

// CommandRecorder is a RendererBackend that records every call instead of touching a GPU.
// It validates handles so a strategy that references an unknown program, image or geometry
// fails the frame the same way a real backend would.
type CommandRecorder struct {
	mu *sync.Mutex

	width  int
	height int

	commands []Command

	programs   map[ProgramHandle]ProgramDesc
	geometries map[GeometryHandle]int
	images     map[ImageHandle]ImageConfig
	next       uint32

	failPrograms map[string]string
	failImages   error
	presentMode  PresentMode
	frameErr     error
	released     bool
}

var _ RendererBackend = &CommandRecorder{}

// NewCommandRecorder creates a recorder for a surface of the given size.
//
// Parameters:
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - *CommandRecorder: the new recorder
func NewCommandRecorder(width, height int) *CommandRecorder {
	return &CommandRecorder{
		mu:           &sync.Mutex{},
		width:        width,
		height:       height,
		programs:     make(map[ProgramHandle]ProgramDesc),
		geometries:   make(map[GeometryHandle]int),
		images:       make(map[ImageHandle]ImageConfig),
		failPrograms: make(map[string]string),
	}
}

// FailProgram makes CreateProgram fail for the named program with the given diagnostic log.
//
// Parameters:
//   - name: the program name to reject
//   - log: the diagnostic reported in the ShaderCompileError
func (r *CommandRecorder) FailProgram(name, log string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failPrograms[name] = log
}

// FailImages makes every following CreateImage call return err. Pass nil to stop failing.
func (r *CommandRecorder) FailImages(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failImages = err
}

// Commands returns a copy of everything recorded so far.
func (r *CommandRecorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Kinds returns the kinds of everything recorded so far.
func (r *CommandRecorder) Kinds() []CommandKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CommandKind, len(r.commands))
	for i, c := range r.commands {
		out[i] = c.Kind
	}
	return out
}

// Frames splits the recorded commands into frames, each starting at a BeginFrame.
// Commands recorded before the first BeginFrame are dropped.
func (r *CommandRecorder) Frames() [][]Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var frames [][]Command
	for _, c := range r.commands {
		if c.Kind == CommandBeginFrame {
			frames = append(frames, nil)
		}
		if len(frames) == 0 {
			continue
		}
		frames[len(frames)-1] = append(frames[len(frames)-1], c)
	}
	return frames
}

// Reset forgets the recorded commands but keeps created resources.
func (r *CommandRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

// Program returns the description a program handle was created from.
func (r *CommandRecorder) Program(handle ProgramHandle) (ProgramDesc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	desc, ok := r.programs[handle]
	return desc, ok
}

// ProgramNames returns the names of every created program, sorted.
func (r *CommandRecorder) ProgramNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.programs))
	for _, desc := range r.programs {
		names = append(names, desc.Name)
	}
	sort.Strings(names)
	return names
}

// Image returns the configuration of a live image.
func (r *CommandRecorder) Image(handle ImageHandle) (ImageConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.images[handle]
	return cfg, ok
}

// Size returns the current surface size.
func (r *CommandRecorder) Size() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// PresentMode returns the last present mode set.
func (r *CommandRecorder) PresentMode() PresentMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presentMode
}

// Released reports whether Release was called.
func (r *CommandRecorder) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

func (r *CommandRecorder) ShaderLanguage() ShaderLanguage {
	return ShaderLanguageGLSL
}

func (r *CommandRecorder) CreateProgram(desc ProgramDesc) (ProgramHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log, ok := r.failPrograms[desc.Name]; ok {
		stage := ShaderStageVertex
		if desc.IsCompute() {
			stage = ShaderStageCompute
		}
		return 0, &ShaderCompileError{Program: desc.Name, Stage: stage, Log: log}
	}
	if len(desc.Stages) == 0 {
		return 0, &ShaderCompileError{Program: desc.Name, Link: true, Log: "program has no stages"}
	}
	r.next++
	handle := ProgramHandle(r.next)
	r.programs[handle] = desc
	return handle, nil
}

func (r *CommandRecorder) CreateGeometry(vertices []float32, layout VertexLayout) (GeometryHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if layout.Stride <= 0 || len(vertices)%layout.Stride != 0 {
		return 0, fmt.Errorf("recorder: %d floats do not divide into vertices of stride %d", len(vertices), layout.Stride)
	}
	r.next++
	handle := GeometryHandle(r.next)
	r.geometries[handle] = len(vertices) / layout.Stride
	return handle, nil
}

func (r *CommandRecorder) CreateImage(cfg ImageConfig) (ImageHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("recorder: invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	if r.failImages != nil {
		return 0, r.failImages
	}
	r.next++
	handle := ImageHandle(r.next)
	r.images[handle] = cfg
	return handle, nil
}

func (r *CommandRecorder) ReleaseImage(image ImageHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, image)
}

func (r *CommandRecorder) BeginFrame(clear mgl32.Vec4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameErr = nil
	r.commands = append(r.commands, Command{Kind: CommandBeginFrame, Clear: clear})
}

func (r *CommandRecorder) SetUniforms(program ProgramHandle, uniforms ...Uniform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkProgram(program)
	copied := make([]Uniform, len(uniforms))
	copy(copied, uniforms)
	r.commands = append(r.commands, Command{Kind: CommandSetUniforms, Program: program, Uniforms: copied})
}

func (r *CommandRecorder) Dispatch(cmd DispatchCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkProgram(cmd.Program)
	r.checkImage(cmd.Image)
	r.commands = append(r.commands, Command{Kind: CommandDispatch, Program: cmd.Program, Dispatch: cmd})
}

func (r *CommandRecorder) MemoryBarrier(barrier Barrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, Command{Kind: CommandMemoryBarrier, Barrier: barrier})
}

func (r *CommandRecorder) BindTexture(binding TextureBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkImage(binding.Image)
	r.commands = append(r.commands, Command{Kind: CommandBindTexture, Texture: binding})
}

func (r *CommandRecorder) Draw(cmd DrawCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkProgram(cmd.Program)
	if cmd.Geometry != NoGeometry {
		if count, ok := r.geometries[cmd.Geometry]; !ok {
			r.fail(fmt.Errorf("recorder: draw with unknown geometry %d", cmd.Geometry))
		} else if int(cmd.First+cmd.Count) > count {
			r.fail(fmt.Errorf("recorder: draw of %d vertices from %d overruns geometry %d with %d vertices",
				cmd.Count, cmd.First, cmd.Geometry, count))
		}
	}
	r.commands = append(r.commands, Command{Kind: CommandDraw, Program: cmd.Program, Draw: cmd})
}

func (r *CommandRecorder) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, Command{Kind: CommandPresent})
	err := r.frameErr
	r.frameErr = nil
	return err
}

func (r *CommandRecorder) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("recorder: invalid surface size %dx%d", width, height)
	}
	r.width, r.height = width, height
	return nil
}

func (r *CommandRecorder) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presentMode = mode
}

func (r *CommandRecorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs = make(map[ProgramHandle]ProgramDesc)
	r.geometries = make(map[GeometryHandle]int)
	r.images = make(map[ImageHandle]ImageConfig)
	r.released = true
}

// checkProgram records a frame error for an unknown program. Caller must hold the mutex.
func (r *CommandRecorder) checkProgram(program ProgramHandle) {
	if _, ok := r.programs[program]; !ok {
		r.fail(fmt.Errorf("recorder: unknown program %d", program))
	}
}

// checkImage records a frame error for an unknown image. Caller must hold the mutex.
func (r *CommandRecorder) checkImage(image ImageHandle) {
	if _, ok := r.images[image]; !ok {
		r.fail(fmt.Errorf("recorder: unknown image %d", image))
	}
}

// fail keeps the first error of the frame. Caller must hold the mutex.
func (r *CommandRecorder) fail(err error) {
	if r.frameErr == nil {
		r.frameErr = err
	}
}
