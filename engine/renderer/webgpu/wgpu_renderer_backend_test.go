package webgpu

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestUniformRingAlignsAllocations(t *testing.T) {
	ring := newUniformRing(1024)
	tests := []struct {
		size uint64
		want uint32
	}{
		{80, 0},
		{64, 256},
		{12, 512},
		{256, 768},
	}
	for _, tt := range tests {
		got, err := ring.alloc(tt.size)
		if err != nil {
			t.Fatalf("alloc(%d): %v", tt.size, err)
		}
		if got != tt.want {
			t.Errorf("alloc(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
	if _, err := ring.alloc(1); !errors.Is(err, ErrUniformRingFull) {
		t.Errorf("err = %v, want ErrUniformRingFull", err)
	}

	ring.reset()
	if got, err := ring.alloc(80); err != nil || got != 0 {
		t.Errorf("after reset alloc = %d, %v", got, err)
	}
}

func TestRingSizeGrowsWithDraws(t *testing.T) {
	tests := []struct {
		name      string
		draws     int
		blockSize uint64
		want      uint64
	}{
		{"empty scene", 0, 64, uniformRingSize},
		{"fits initial ring", 4000, 64, uniformRingSize},
		{"past 4096 draws", 5000, 64, 2 << 20},
		{"large blocks", 5000, 300, 4 << 20},
		{"no uniform blocks", 100, 0, uniformRingSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ringSizeFor(tt.draws, tt.blockSize)
			if got != tt.want {
				t.Errorf("ringSizeFor(%d, %d) = %d, want %d", tt.draws, tt.blockSize, got, tt.want)
			}
		})
	}
}

func TestGrownRingHoldsEveryDraw(t *testing.T) {
	const draws = 10000
	ring := newUniformRing(ringSizeFor(draws, 64))
	for i := 0; i < draws+uniformReserve; i++ {
		if _, err := ring.alloc(64); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}
}

func TestPresentModeMapping(t *testing.T) {
	if wgpuPresentMode(renderer.PresentModeVSync) != wgpu.PresentModeFifo {
		t.Error("vsync should map to fifo")
	}
	if wgpuPresentMode(renderer.PresentModeUncapped) != wgpu.PresentModeImmediate {
		t.Error("uncapped should map to immediate")
	}
}

type plainSurface struct{}

func (plainSurface) Width() int  { return 640 }
func (plainSurface) Height() int { return 480 }

func TestFactoryNeedsNativeSurface(t *testing.T) {
	if _, err := newWGPURendererBackend(plainSurface{}, renderer.BackendConfig{}); err == nil {
		t.Fatal("expected an error for a surface without a descriptor")
	}
}
