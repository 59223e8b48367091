package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaxImagesPerGroup is the number of images a bind group key can name.
const MaxImagesPerGroup = 4

// BindGroupKey identifies a bind group built for one group index and the images bound
// into it, in unit order. Unused slots are zero.
type BindGroupKey struct {
	Group  int
	Images [MaxImagesPerGroup]renderer.ImageHandle
}

// references reports whether the key binds image.
func (k BindGroupKey) references(image renderer.ImageHandle) bool {
	for _, h := range k.Images {
		if h == image {
			return true
		}
	}
	return false
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroupLayouts are the GPU layouts of each declared group, keyed by group index.
	bindGroupLayouts map[int]*wgpu.BindGroupLayout
	// bindGroups caches the bind groups built so far.
	bindGroups map[BindGroupKey]*wgpu.BindGroup
	// static holds bind groups that do not depend on images, such as the uniform ring group.
	static map[int]*wgpu.BindGroup
}

// BindGroupProvider owns the bind group layouts of one program and caches the bind groups
// built against them. Bind groups that reference images are keyed by the images they bind
// so a frame that binds the same image again reuses the existing group.
//
// Usage pattern:
//  1. The backend creates the layouts for each group of a program and stores them here
//  2. Commands look up a bind group by BindGroupKey and build it on a miss
//  3. Releasing an image drops every bind group that referenced it
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	Label() string

	// BindGroupLayout returns the layout of a group, or nil if the group is not declared.
	//
	// Parameters:
	//   - group: the group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetBindGroupLayout stores the layout of a group.
	//
	// Parameters:
	//   - group: the group index
	//   - layout: the layout
	SetBindGroupLayout(group int, layout *wgpu.BindGroupLayout)

	// BindGroupLayouts returns the layouts as a dense slice indexed by group, suitable for a
	// pipeline layout descriptor.
	//
	// Parameters:
	//   - maxGroup: the highest group index to include
	//
	// Returns:
	//   - []*wgpu.BindGroupLayout: maxGroup+1 layouts
	BindGroupLayouts(maxGroup int) []*wgpu.BindGroupLayout

	// BindGroup returns a cached bind group.
	//
	// Parameters:
	//   - key: the group and images
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group
	//   - bool: false on a cache miss
	BindGroup(key BindGroupKey) (*wgpu.BindGroup, bool)

	// SetBindGroup caches a bind group.
	//
	// Parameters:
	//   - key: the group and images
	//   - bg: the bind group
	SetBindGroup(key BindGroupKey, bg *wgpu.BindGroup)

	// StaticBindGroup returns the image-independent bind group of a group, or nil.
	StaticBindGroup(group int) *wgpu.BindGroup

	// SetStaticBindGroup stores the image-independent bind group of a group.
	SetStaticBindGroup(group int, bg *wgpu.BindGroup)

	// ReleaseImage releases every cached bind group that references image.
	//
	// Parameters:
	//   - image: the image being released
	//
	// Returns:
	//   - int: the number of bind groups dropped
	ReleaseImage(image renderer.ImageHandle) int

	// Len returns the number of cached image bind groups.
	Len() int

	// Release releases the layouts and every bind group held by this provider.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: the debug label
//   - options: functional options
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:            label,
		bindGroupLayouts: make(map[int]*wgpu.BindGroupLayout),
		bindGroups:       make(map[BindGroupKey]*wgpu.BindGroup),
		static:           make(map[int]*wgpu.BindGroup),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	return p.bindGroupLayouts[group]
}

func (p *bindGroupProvider) SetBindGroupLayout(group int, layout *wgpu.BindGroupLayout) {
	p.bindGroupLayouts[group] = layout
}

func (p *bindGroupProvider) BindGroupLayouts(maxGroup int) []*wgpu.BindGroupLayout {
	if maxGroup < 0 {
		return nil
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, layout := range p.bindGroupLayouts {
		if g <= maxGroup {
			layouts[g] = layout
		}
	}
	return layouts
}

func (p *bindGroupProvider) BindGroup(key BindGroupKey) (*wgpu.BindGroup, bool) {
	bg, ok := p.bindGroups[key]
	return bg, ok
}

func (p *bindGroupProvider) SetBindGroup(key BindGroupKey, bg *wgpu.BindGroup) {
	if old, ok := p.bindGroups[key]; ok && old != nil && old != bg {
		old.Release()
	}
	p.bindGroups[key] = bg
}

func (p *bindGroupProvider) StaticBindGroup(group int) *wgpu.BindGroup {
	return p.static[group]
}

func (p *bindGroupProvider) SetStaticBindGroup(group int, bg *wgpu.BindGroup) {
	if old := p.static[group]; old != nil && old != bg {
		old.Release()
	}
	p.static[group] = bg
}

func (p *bindGroupProvider) ReleaseImage(image renderer.ImageHandle) int {
	dropped := 0
	for key, bg := range p.bindGroups {
		if !key.references(image) {
			continue
		}
		if bg != nil {
			bg.Release()
		}
		delete(p.bindGroups, key)
		dropped++
	}
	return dropped
}

func (p *bindGroupProvider) Len() int {
	return len(p.bindGroups)
}

func (p *bindGroupProvider) Release() {
	for key, bg := range p.bindGroups {
		if bg != nil {
			bg.Release()
		}
		delete(p.bindGroups, key)
	}
	for g, bg := range p.static {
		if bg != nil {
			bg.Release()
		}
		delete(p.static, g)
	}
	for g, layout := range p.bindGroupLayouts {
		if layout != nil {
			layout.Release()
		}
		delete(p.bindGroupLayouts, g)
	}
}
