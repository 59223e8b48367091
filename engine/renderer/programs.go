package renderer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-trace/engine/assets"
)

// Names of the built-in programs.
const (
	ProgramGeometry   = "geometry"
	ProgramPathTracer = "pathtracer"
	ProgramScreen     = "screen"
)

// programFile maps a built-in program to the base name of its source files.
var programFile = map[string]string{
	ProgramGeometry:   "geometry",
	ProgramPathTracer: "pathtracer",
	ProgramScreen:     "screentexture",
}

// programStages lists the stages each built-in program is built from.
var programStages = map[string][]ShaderStage{
	ProgramGeometry:   {ShaderStageVertex, ShaderStageFragment},
	ProgramPathTracer: {ShaderStageCompute},
	ProgramScreen:     {ShaderStageVertex, ShaderStageFragment},
}

// stageExtension is the file extension of a stage source.
var stageExtension = map[ShaderStage]string{
	ShaderStageVertex:   "vert",
	ShaderStageFragment: "frag",
	ShaderStageCompute:  "comp",
}

// ShaderFileName returns the file name of a built-in program stage, e.g. "pathtracer.comp" for
// GLSL or "pathtracer.comp.wgsl" for WGSL.
//
// Parameters:
//   - lang: the shading language
//   - program: one of the built-in program names
//   - stage: the stage to look up
//
// Returns:
//   - string: the file name relative to the language directory
func ShaderFileName(lang ShaderLanguage, program string, stage ShaderStage) string {
	name := programFile[program] + "." + stageExtension[stage]
	if lang == ShaderLanguageWGSL {
		name += ".wgsl"
	}
	return name
}

// BuiltinPrograms returns the names of the built-in programs in the order Init builds them.
func BuiltinPrograms() []string {
	return []string{ProgramGeometry, ProgramPathTracer, ProgramScreen}
}

// LoadProgramDesc reads the sources of a built-in program. When dir is empty the embedded
// sources are used, otherwise <dir>/<lang>/<file>.
func LoadProgramDesc(lang ShaderLanguage, program, dir string) (ProgramDesc, error) {
	stages, ok := programStages[program]
	if !ok {
		return ProgramDesc{}, fmt.Errorf("renderer: unknown program %q", program)
	}

	desc := ProgramDesc{Name: program, Stages: make(map[ShaderStage]string, len(stages))}
	for _, stage := range stages {
		file := ShaderFileName(lang, program, stage)
		var (
			src string
			err error
		)
		if dir == "" {
			src, err = assets.Shader(lang.String(), file)
		} else {
			var data []byte
			data, err = os.ReadFile(filepath.Join(dir, lang.String(), file))
			src = string(data)
		}
		if err != nil {
			return ProgramDesc{}, fmt.Errorf("renderer: load %s %s source: %w", program, stage, err)
		}
		desc.Stages[stage] = src
	}
	return desc, nil
}
