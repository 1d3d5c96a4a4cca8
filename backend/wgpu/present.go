package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// presentWGSL samples a composer target and writes it to the surface with
// a single fullscreen triangle. No vertex buffers: the corners come from
// the vertex index.
const presentWGSL = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    let uv = vec2<f32>(f32((idx << 1u) & 2u), f32(idx & 2u));
    out.position = vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
    out.uv = vec2<f32>(uv.x, 1.0 - uv.y);
    return out;
}

@group(0) @binding(0) var src: texture_2d<f32>;
@group(0) @binding(1) var smp: sampler;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(src, smp, in.uv);
}
`

// PresentPipeline samples a Target onto a host render pass, typically the
// surface pass that puts the composer's screen target on the window.
//
// The host owns the render pass: it picks the surface view and load op,
// then calls RecordDraw inside the pass. Bind groups are created per
// target and must be destroyed by the caller when the target goes away.
type PresentPipeline struct {
	ctx *Context

	module   hal.ShaderModule
	bglayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	sampler  hal.Sampler
	pipeline hal.RenderPipeline
}

// NewPresentPipeline compiles the present shader and builds the pipeline
// for the given surface format.
func NewPresentPipeline(ctx *Context, surfaceFormat gputypes.TextureFormat) (*PresentPipeline, error) {
	if ctx == nil {
		return nil, ErrNilDevice
	}
	device := ctx.device

	spirv, err := naga.Compile(presentWGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile present shader: %w", err)
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "postfx_present_shader",
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create present shader module: %w", err)
	}

	p := &PresentPipeline{ctx: ctx, module: module}

	p.bglayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "postfx_present_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler: &gputypes.SamplerBindingLayout{
					Type: gputypes.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("wgpu: create present bind group layout: %w", err)
	}

	p.layout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "postfx_present_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bglayout},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("wgpu: create present pipeline layout: %w", err)
	}

	p.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "postfx_present_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("wgpu: create present sampler: %w", err)
	}

	p.pipeline, err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "postfx_present_pipeline",
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    surfaceFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("wgpu: create present pipeline: %w", err)
	}
	return p, nil
}

// CreateBindGroup binds a target's view and the shared sampler for
// RecordDraw. The caller owns the returned bind group and destroys it
// with Device.DestroyBindGroup when the target is resized or released.
func (p *PresentPipeline) CreateBindGroup(t *Target) (hal.BindGroup, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil", ErrNotGPUTarget)
	}
	bg, err := p.ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "postfx_present_bg",
		Layout: p.bglayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create present bind group: %w", err)
	}
	return bg, nil
}

// RecordDraw records the fullscreen draw into an open render pass.
func (p *PresentPipeline) RecordDraw(rp hal.RenderPassEncoder, bg hal.BindGroup) {
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.Draw(3, 1, 0, 0)
}

// Destroy releases the pipeline's resources in reverse creation order.
func (p *PresentPipeline) Destroy() {
	device := p.ctx.device
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.layout != nil {
		device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.bglayout != nil {
		device.DestroyBindGroupLayout(p.bglayout)
		p.bglayout = nil
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
		p.module = nil
	}
}
