package shader

import (
	"encoding/binary"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/gogpu/naga"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// validatorGaps are fragments of naga errors for WGSL features the translator has not
// implemented yet. Such sources are still handed to the driver compiler.
var validatorGaps = []string{
	"not yet implemented",
	"not supported",
	"unsupported",
	"lowering error",
}

// Validate translates WGSL to SPIR-V with naga to catch source errors before pipeline creation.
//
// Parameters:
//   - key: the shader name reported in errors
//   - stage: the stage reported in errors
//   - source: the WGSL source
//
// Returns:
//   - []byte: the SPIR-V module, or nil when naga lacks a feature the source uses
//   - error: a *renderer.ShaderCompileError for invalid sources
func Validate(key string, stage renderer.ShaderStage, source string) ([]byte, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		if IsValidatorGap(err) {
			logger.Warningf("shader %q: skipping validation: %v", key, err)
			return nil, nil
		}
		return nil, &renderer.ShaderCompileError{Program: key, Stage: stage, Log: err.Error()}
	}
	if len(spirv) < 4 || binary.LittleEndian.Uint32(spirv) != SPIRVMagic {
		return nil, &renderer.ShaderCompileError{Program: key, Stage: stage, Log: "validator produced an invalid SPIR-V module"}
	}
	return spirv, nil
}

// IsValidatorGap reports whether err is naga declining a feature rather than rejecting the source.
func IsValidatorGap(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, gap := range validatorGaps {
		if strings.Contains(msg, gap) {
			return true
		}
	}
	return false
}
