package opengl

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// SetUniforms writes uniform values with glProgramUniform*, so the program does not have to
// be current. Uniforms the linker optimised away are skipped.
func (b *openglRendererBackendImpl) SetUniforms(handle renderer.ProgramHandle, uniforms ...renderer.Uniform) {
	prog := b.program(handle)
	if prog == nil {
		return
	}
	for _, u := range uniforms {
		loc := b.uniformLocation(prog, u.Name)
		if loc < 0 {
			continue
		}
		switch u.Kind {
		case renderer.UniformVec3:
			gl.ProgramUniform3fv(prog.id, loc, 1, &u.Vec3[0])
		case renderer.UniformMat4:
			gl.ProgramUniformMatrix4fv(prog.id, loc, 1, false, &u.Mat4[0])
		default:
			b.fail(fmt.Errorf("opengl: uniform %q has unknown kind %d", u.Name, u.Kind))
			return
		}
	}
}

// Dispatch binds the image to image unit 0 for writing and launches the compute program.
func (b *openglRendererBackendImpl) Dispatch(cmd renderer.DispatchCommand) {
	prog := b.program(cmd.Program)
	if prog == nil {
		return
	}
	if !prog.compute {
		b.fail(fmt.Errorf("opengl: dispatch of render program %q", prog.name))
		return
	}
	img, ok := b.images[cmd.Image]
	if !ok {
		b.fail(fmt.Errorf("opengl: dispatch into unknown image %d", cmd.Image))
		return
	}

	gl.UseProgram(prog.id)
	gl.BindImageTexture(0, img.texture, 0, false, 0, gl.WRITE_ONLY, gl.RGBA32F)
	gl.DispatchCompute(cmd.Groups[0], cmd.Groups[1], cmd.Groups[2])
}

func (b *openglRendererBackendImpl) MemoryBarrier(barrier renderer.Barrier) {
	bits, err := barrierBits(barrier)
	if err != nil {
		b.fail(err)
		return
	}
	gl.MemoryBarrier(bits)
}

func (b *openglRendererBackendImpl) BindTexture(binding renderer.TextureBinding) {
	img, ok := b.images[binding.Image]
	if !ok {
		b.fail(fmt.Errorf("opengl: bind of unknown image %d", binding.Image))
		return
	}
	gl.ActiveTexture(gl.TEXTURE0 + binding.Unit)
	gl.BindTexture(gl.TEXTURE_2D, img.texture)
	b.textures[binding.Unit] = binding.Image
}

// Draw issues glDrawArrays. Draws with geometry run with the depth test on; draws without
// geometry are screen-space passes and run with it off.
func (b *openglRendererBackendImpl) Draw(cmd renderer.DrawCommand) {
	prog := b.program(cmd.Program)
	if prog == nil {
		return
	}
	if prog.compute {
		b.fail(fmt.Errorf("opengl: draw with compute program %q", prog.name))
		return
	}

	vao := b.emptyVAO
	if cmd.Geometry != renderer.NoGeometry {
		g, ok := b.geometries[cmd.Geometry]
		if !ok {
			b.fail(fmt.Errorf("opengl: draw with unknown geometry %d", cmd.Geometry))
			return
		}
		if cmd.First < 0 || cmd.First+cmd.Count > g.count {
			b.fail(fmt.Errorf("opengl: draw of %d vertices from %d overruns geometry %d with %d vertices", cmd.Count, cmd.First, cmd.Geometry, g.count))
			return
		}
		vao = g.vao
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	gl.UseProgram(prog.id)
	gl.BindVertexArray(vao)
	gl.DrawArrays(glTopology(cmd.Topology), cmd.First, cmd.Count)
	gl.BindVertexArray(0)
}

// program looks up a program and records an error for unknown handles.
func (b *openglRendererBackendImpl) program(handle renderer.ProgramHandle) *program {
	prog, ok := b.programs[handle]
	if !ok {
		b.fail(fmt.Errorf("opengl: unknown program %d", handle))
		return nil
	}
	return prog
}

// uniformLocation returns the cached location of a uniform, querying the driver on first use.
func (b *openglRendererBackendImpl) uniformLocation(prog *program, name string) int32 {
	if loc, ok := prog.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(prog.id, gl.Str(name+"\x00"))
	if loc < 0 {
		logger.Debugf("program %q has no active uniform %q", prog.name, name)
	}
	prog.locations[name] = loc
	return loc
}

func barrierBits(barrier renderer.Barrier) (uint32, error) {
	if barrier == renderer.BarrierShaderImageAccess {
		return gl.SHADER_IMAGE_ACCESS_BARRIER_BIT, nil
	}
	return 0, fmt.Errorf("opengl: unsupported barrier %s", barrier)
}
