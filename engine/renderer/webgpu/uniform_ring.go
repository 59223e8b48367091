package webgpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

const (
	// uniformAlignment is the WebGPU default minUniformBufferOffsetAlignment.
	uniformAlignment = 256

	// uniformRingSize is the initial ring size. The ring grows as geometry is created.
	uniformRingSize = 1 << 20

	// uniformReserve counts the uploads a frame makes besides one per raster draw.
	uniformReserve = 16
)

// ErrUniformRingFull is recorded when a frame stages more uniform data than the ring holds.
var ErrUniformRingFull = errors.New("webgpu: uniform ring exhausted")

// uniformRing hands out aligned, non-overlapping ranges of one uniform buffer. Every
// uniform upload of a frame gets its own range, which is then bound with a dynamic offset,
// so commands recorded earlier keep seeing their values after later SetUniforms calls.
type uniformRing struct {
	size uint64
	next uint64
}

// ringSizeFor returns the ring size holding one upload of blockSize bytes per draw plus the
// reserve. The result is a power of two and never below uniformRingSize.
func ringSizeFor(draws int, blockSize uint64) uint64 {
	slot := common.AlignUp(max(blockSize, 1), uniformAlignment)
	need := uint64(draws+uniformReserve) * slot
	size := uint64(uniformRingSize)
	for size < need {
		size <<= 1
	}
	return size
}

func newUniformRing(size uint64) *uniformRing {
	return &uniformRing{size: size}
}

// alloc reserves n bytes and returns their offset.
func (r *uniformRing) alloc(n uint64) (uint32, error) {
	offset := common.AlignUp(r.next, uniformAlignment)
	if offset+n > r.size {
		return 0, fmt.Errorf("%w: %d bytes requested at offset %d of %d", ErrUniformRingFull, n, offset, r.size)
	}
	r.next = offset + n
	return uint32(offset), nil
}

// reset makes the whole ring available again. Called at the start of each frame.
func (r *uniformRing) reset() {
	r.next = 0
}
