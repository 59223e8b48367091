package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// listShaders validates the WGSL programs and prints their reflected layouts.
func listShaders(ctx *cli.Context) error {
	setupLogging(ctx)
	return exitError(describeShaders(ctx.App.Writer, ctx.String("shader-dir")))
}

// describeShaders validates every stage of the built-in WGSL programs and writes one row per
// binding. Stages without bindings still get a row for the entry point.
func describeShaders(out io.Writer, dir string) error {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Program", "Stage", "Entry", "Workgroup", "Group", "Binding", "Name", "Kind"})

	stages := 0
	for _, name := range renderer.BuiltinPrograms() {
		desc, err := renderer.LoadProgramDesc(renderer.ShaderLanguageWGSL, name, dir)
		if err != nil {
			return err
		}
		for _, stage := range sortedStages(desc) {
			s, err := shader.NewShader(name+"."+stage.String(), stage, desc.Stages[stage])
			if err != nil {
				return err
			}
			stages++
			for _, row := range shaderRows(name, s) {
				table.Append(row)
			}
		}
	}

	table.SetFooter([]string{"", "", "", "", "", "", "TOTAL", fmt.Sprintf("%d stages", stages)})
	table.Render()
	return nil
}

func sortedStages(desc renderer.ProgramDesc) []renderer.ShaderStage {
	stages := make([]renderer.ShaderStage, 0, len(desc.Stages))
	for stage := range desc.Stages {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	return stages
}

// shaderRows flattens the bind group layouts of a stage into table rows.
func shaderRows(program string, s shader.Shader) [][]string {
	workgroup := "-"
	if s.Stage() == renderer.ShaderStageCompute {
		wg := s.WorkgroupSize()
		workgroup = fmt.Sprintf("%dx%dx%d", wg[0], wg[1], wg[2])
	}
	prefix := []string{program, s.Stage().String(), s.EntryPoint(), workgroup}

	var rows [][]string
	for _, group := range shader.Groups(s) {
		entries := append([]wgpu.BindGroupLayoutEntry{}, s.BindGroupLayoutDescriptor(group).Entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		for _, e := range entries {
			rows = append(rows, append(append([]string{}, prefix...),
				fmt.Sprintf("%d", group),
				fmt.Sprintf("%d", e.Binding),
				s.BindGroupVarName(group, int(e.Binding)),
				bindingKind(e),
			))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, append(prefix, "-", "-", "-", "-"))
	}
	return rows
}

func bindingKind(e wgpu.BindGroupLayoutEntry) string {
	switch e.Buffer.Type {
	case wgpu.BufferBindingTypeUniform:
		return "uniform buffer"
	case wgpu.BufferBindingTypeStorage:
		return "storage buffer"
	case wgpu.BufferBindingTypeReadOnlyStorage:
		return "read-only storage buffer"
	}

	switch e.Sampler.Type {
	case wgpu.SamplerBindingTypeFiltering:
		return "sampler"
	case wgpu.SamplerBindingTypeComparison:
		return "comparison sampler"
	}

	switch e.Texture.SampleType {
	case wgpu.TextureSampleTypeFloat:
		return "texture (float)"
	case wgpu.TextureSampleTypeUnfilterableFloat:
		return "texture (unfilterable float)"
	case wgpu.TextureSampleTypeDepth:
		return "texture (depth)"
	case wgpu.TextureSampleTypeSint:
		return "texture (sint)"
	case wgpu.TextureSampleTypeUint:
		return "texture (uint)"
	}

	switch e.StorageTexture.Format {
	case wgpu.TextureFormatRGBA32Float:
		return "storage texture (rgba32float)"
	case wgpu.TextureFormatRGBA16Float:
		return "storage texture (rgba16float)"
	case wgpu.TextureFormatRGBA8Unorm:
		return "storage texture (rgba8unorm)"
	case wgpu.TextureFormatR32Float:
		return "storage texture (r32float)"
	case wgpu.TextureFormatRG32Float:
		return "storage texture (rg32float)"
	}
	return "unknown"
}
