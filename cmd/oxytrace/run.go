package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"

	"github.com/urfave/cli"
)

// runViewer opens a window and runs the interactive frame loop.
func runViewer(ctx *cli.Context) error {
	setupLogging(ctx)
	return exitError(runViewerE(ctx))
}

func runViewerE(ctx *cli.Context) error {
	backendType, err := renderer.ParseBackendType(ctx.String("backend"))
	if err != nil {
		return err
	}
	options, err := rendererOptions(ctx)
	if err != nil {
		return err
	}
	meshes, err := loadMeshes(ctx.Args())
	if err != nil {
		return err
	}

	api := window.APIOpenGL
	if backendType == renderer.BackendTypeWGPU {
		api = window.APINone
	}
	w, err := window.NewWindow(
		window.WithTitle(ctx.String("title")),
		window.WithWidth(ctx.Int("width")),
		window.WithHeight(ctx.Int("height")),
		window.WithGraphicsAPI(api),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	presentMode := renderer.PresentModeVSync
	if !ctx.BoolT("vsync") {
		presentMode = renderer.PresentModeUncapped
	}
	options = append(options, renderer.WithPresentMode(presentMode))

	r, err := renderer.NewRenderer(backendType, w, options...)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Init(); err != nil {
		return err
	}
	if err := r.LoadMeshes(meshes...); err != nil {
		return err
	}

	eng, err := engine.NewEngine(
		engine.WithWindow(w),
		engine.WithRenderer(r),
		engine.WithProfiling(ctx.Bool("profile")),
	)
	if err != nil {
		return err
	}
	if err := eng.Run(); err != nil {
		return fmt.Errorf("viewer stopped: %w", err)
	}
	return nil
}
