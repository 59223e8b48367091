package main

import (
	"fmt"
	"os"

	// Backends register themselves with the renderer.
	_ "github.com/Carmen-Shannon/oxy-trace/engine/renderer/opengl"
	_ "github.com/Carmen-Shannon/oxy-trace/engine/renderer/webgpu"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxytrace"
	app.Usage = "real-time rasterizer and compute shader path tracer"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "open a window and render interactively",
			Description: `
Open a window and render the given meshes. Each mesh argument is a path to an
.obj, .gltf or .glb file, optionally followed by @x,y,z to place it.

Controls: WASD move, Q/E down and up, mouse looks around, Tab or M switches
between the path tracer and the rasterizer, Esc quits.`,
			ArgsUsage: "[mesh[@x,y,z] ...]",
			Flags:     append(rendererFlags(), viewerFlags()...),
			Action:    runViewer,
		},
		{
			Name:  "trace",
			Usage: "render frames on the command recorder and print the command stream",
			Description: `
Render frames without a window or GPU. Every backend call is recorded and
printed as a table, which shows the exact command order of each frame.`,
			ArgsUsage: "[mesh[@x,y,z] ...]",
			Flags: append(rendererFlags(),
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "number of frames to record",
				},
				cli.BoolFlag{
					Name:  "toggle",
					Usage: "switch render mode after every frame",
				},
			),
			Action: traceFrames,
		},
		{
			Name:  "shaders",
			Usage: "validate the WGSL shaders and print their reflected bindings",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "shader-dir",
					Usage: "read shaders from this directory instead of the embedded set",
				},
			},
			Action: listShaders,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rendererFlags are shared by the commands that build a renderer.
func rendererFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "mode",
			Value:  "pathtracer",
			Usage:  "initial render mode: pathtracer or rasterizer",
			EnvVar: "OXYTRACE_MODE",
		},
		cli.IntFlag{
			Name:  "width",
			Value: 1024,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 768,
			Usage: "frame height",
		},
		cli.Float64Flag{
			Name:  "fov",
			Value: 45,
			Usage: "vertical field of view in degrees",
		},
		cli.StringFlag{
			Name:  "eye",
			Value: "0,1,5",
			Usage: "initial camera position as x,y,z; the camera faces the origin",
		},
		cli.StringFlag{
			Name:  "shader-dir",
			Usage: "read shaders from <dir>/<glsl|wgsl>/ instead of the embedded set",
		},
	}
}

// viewerFlags only apply to the interactive viewer.
func viewerFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "backend",
			Value:  "opengl",
			Usage:  "rendering backend: opengl or webgpu",
			EnvVar: "OXYTRACE_BACKEND",
		},
		cli.StringFlag{
			Name:  "title",
			Value: "oxy-trace",
			Usage: "window title",
		},
		cli.BoolTFlag{
			Name:  "vsync",
			Usage: "wait for vertical blank when presenting (--vsync=false to uncap)",
		},
		cli.BoolFlag{
			Name:  "profile",
			Usage: "log frame rate and memory statistics",
		},
	}
}
