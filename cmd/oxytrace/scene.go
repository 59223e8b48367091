package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

// meshArg is one mesh command line argument: a file and an optional placement.
type meshArg struct {
	path     string
	offset   mgl32.Vec3
	hasPlace bool
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("invalid component %q in %q", p, s)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// parseMeshArg splits "path@x,y,z". The last @ separates the placement so paths may contain @.
func parseMeshArg(arg string) (meshArg, error) {
	idx := strings.LastIndex(arg, "@")
	if idx < 0 {
		return meshArg{path: arg}, nil
	}
	offset, err := parseVec3(arg[idx+1:])
	if err != nil {
		return meshArg{}, fmt.Errorf("mesh %q: %w", arg, err)
	}
	if idx == 0 {
		return meshArg{}, fmt.Errorf("mesh %q has no path", arg)
	}
	return meshArg{path: arg[:idx], offset: offset, hasPlace: true}, nil
}

// loadMeshes loads every mesh argument in parallel and applies the placements.
func loadMeshes(args []string) ([]loader.Mesh, error) {
	if len(args) == 0 {
		return nil, nil
	}

	parsed := make([]meshArg, len(args))
	paths := make([]string, len(args))
	for i, arg := range args {
		m, err := parseMeshArg(arg)
		if err != nil {
			return nil, err
		}
		parsed[i] = m
		paths[i] = m.path
	}

	l := loader.NewLoader(loader.WithCache(true))
	if _, err := l.LoadAll(paths...); err != nil {
		return nil, err
	}

	var meshes []loader.Mesh
	for _, m := range parsed {
		for _, mesh := range l.Get(m.path) {
			if m.hasPlace {
				mesh.Position = mesh.Position.Add(m.offset)
			}
			meshes = append(meshes, mesh)
		}
	}
	logger.Infof("loaded %d mesh(es) from %d file(s)", len(meshes), len(args))
	return meshes, nil
}

// rendererOptions builds the camera and renderer options shared by run and trace.
func rendererOptions(ctx *cli.Context) ([]renderer.RendererBuilderOption, error) {
	mode, err := renderer.ParseRenderMode(ctx.String("mode"))
	if err != nil {
		return nil, err
	}
	eye, err := parseVec3(ctx.String("eye"))
	if err != nil {
		return nil, fmt.Errorf("--eye: %w", err)
	}
	width, height := ctx.Int("width"), ctx.Int("height")
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	cam := camera.NewCamera(
		camera.WithFovDegrees(float32(ctx.Float64("fov"))),
		camera.WithAspect(float32(width)/float32(height)),
		camera.WithController(camera.NewCameraController(
			camera.WithPosition(eye[0], eye[1], eye[2]),
			camera.WithTarget(0, 0, 0),
		)),
	)

	options := []renderer.RendererBuilderOption{
		renderer.WithMode(mode),
		renderer.WithCamera(cam),
	}
	if dir := ctx.String("shader-dir"); dir != "" {
		options = append(options, renderer.WithShaderDir(dir))
	}
	return options, nil
}
