package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout sets the layout of a group.
//
// Parameters:
//   - group: the group index
//   - bgl: the bind group layout to use for the group
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group layout for the group
func WithBindGroupLayout(group int, bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayouts[group] = bgl
	}
}

// WithBindGroupLayouts sets the layouts of several groups.
func WithBindGroupLayouts(layouts map[int]*wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for g, l := range layouts {
			p.bindGroupLayouts[g] = l
		}
	}
}
