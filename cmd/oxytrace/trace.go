package main

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// frameSurface is a fixed-size surface for rendering without a window.
type frameSurface struct {
	width  int
	height int
}

func (s frameSurface) Width() int  { return s.width }
func (s frameSurface) Height() int { return s.height }

// traceFrames renders frames on the command recorder and prints every recorded command.
func traceFrames(ctx *cli.Context) error {
	setupLogging(ctx)

	options, err := rendererOptions(ctx)
	if err != nil {
		return exitError(err)
	}
	meshes, err := loadMeshes(ctx.Args())
	if err != nil {
		return exitError(err)
	}

	cfg := traceConfig{
		width:   ctx.Int("width"),
		height:  ctx.Int("height"),
		frames:  ctx.Int("frames"),
		toggle:  ctx.Bool("toggle"),
		options: options,
	}
	return exitError(traceCommands(ctx.App.Writer, cfg, meshes))
}

type traceConfig struct {
	width   int
	height  int
	frames  int
	toggle  bool
	options []renderer.RendererBuilderOption
}

// traceCommands renders cfg.frames frames and writes the recorded commands as a table.
func traceCommands(out io.Writer, cfg traceConfig, meshes []loader.Mesh) error {
	if cfg.frames < 1 {
		return fmt.Errorf("--frames must be at least 1, got %d", cfg.frames)
	}

	r, err := renderer.NewRenderer(renderer.BackendTypeRecorder, frameSurface{cfg.width, cfg.height}, cfg.options...)
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

	rec := r.Backend().(*renderer.CommandRecorder)
	modes := make([]renderer.RenderMode, 0, cfg.frames)
	for i := 0; i < cfg.frames; i++ {
		r.UpdateDeltaTime()
		modes = append(modes, r.Mode())
		if err := r.RenderFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if cfg.toggle {
			r.ToggleMode()
		}
	}

	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frame", "Mode", "#", "Command", "Arguments"})
	total := 0
	for f, frame := range rec.Frames() {
		for i, c := range frame {
			table.Append([]string{
				fmt.Sprintf("%d", f),
				modes[f].String(),
				fmt.Sprintf("%d", i),
				c.Kind.String(),
				c.Detail(),
			})
			total++
		}
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%d commands", total)})
	table.Render()
	return nil
}
