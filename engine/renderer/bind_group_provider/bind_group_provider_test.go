package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

func TestReleaseImageDropsReferencingGroups(t *testing.T) {
	p := NewBindGroupProvider("pathtracer")
	p.SetBindGroup(BindGroupKey{Group: 1, Images: [MaxImagesPerGroup]renderer.ImageHandle{1}}, nil)
	p.SetBindGroup(BindGroupKey{Group: 1, Images: [MaxImagesPerGroup]renderer.ImageHandle{2}}, nil)
	p.SetBindGroup(BindGroupKey{Group: 2, Images: [MaxImagesPerGroup]renderer.ImageHandle{3, 1}}, nil)

	if got := p.ReleaseImage(1); got != 2 {
		t.Fatalf("dropped %d bind groups, want 2", got)
	}
	if p.Len() != 1 {
		t.Errorf("len = %d, want 1", p.Len())
	}
	if _, ok := p.BindGroup(BindGroupKey{Group: 1, Images: [MaxImagesPerGroup]renderer.ImageHandle{2}}); !ok {
		t.Error("unrelated bind group was dropped")
	}
	if got := p.ReleaseImage(1); got != 0 {
		t.Errorf("second release dropped %d", got)
	}
}

func TestBindGroupLayoutsDense(t *testing.T) {
	p := NewBindGroupProvider("screen", WithBindGroupLayout(2, nil))
	layouts := p.BindGroupLayouts(2)
	if len(layouts) != 3 {
		t.Fatalf("len = %d, want 3", len(layouts))
	}
	if p.BindGroupLayouts(-1) != nil {
		t.Error("expected no layouts for a program without groups")
	}
}

func TestReleaseEmptiesProvider(t *testing.T) {
	p := NewBindGroupProvider("geometry")
	p.SetBindGroup(BindGroupKey{Group: 0}, nil)
	p.SetStaticBindGroup(0, nil)
	p.Release()
	if p.Len() != 0 || p.StaticBindGroup(0) != nil {
		t.Error("provider still holds bind groups after Release")
	}
}
