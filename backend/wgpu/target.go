package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// targetUsage covers everything a composer buffer needs on the GPU:
// scene render passes draw into it, staged blits copy out of and into it,
// and the present pipeline samples it.
const targetUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageTextureBinding

// Target is a GPU color target backed by a hal texture and its default
// view. Targets are created through Context.CreateTarget and owned by the
// composer; hosts reach the underlying handles through View and Texture
// when recording their own passes.
type Target struct {
	ctx   *Context
	label string

	tex  hal.Texture
	view hal.TextureView

	width  int
	height int
	format gputypes.TextureFormat
}

// Width implements postfx.Target.
func (t *Target) Width() int { return t.width }

// Height implements postfx.Target.
func (t *Target) Height() int { return t.height }

// Format implements postfx.Target.
func (t *Target) Format() gputypes.TextureFormat { return t.format }

// View returns the texture view for host render passes and bind groups.
func (t *Target) View() hal.TextureView { return t.view }

// Texture returns the underlying hal texture.
func (t *Target) Texture() hal.Texture { return t.tex }

// Resize implements postfx.Target by recreating the texture and view at
// the new dimensions. Contents are discarded.
func (t *Target) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wgpu: invalid target size %dx%d", width, height)
	}
	if t.width == width && t.height == height {
		return nil
	}
	tex, view, err := t.ctx.createTexture(t.label, width, height, t.format)
	if err != nil {
		return err
	}
	t.release()
	t.tex, t.view = tex, view
	t.width, t.height = width, height
	return nil
}

// Destroy implements postfx.Target.
func (t *Target) Destroy() { t.release() }

// release frees the native handles, view before texture.
func (t *Target) release() {
	if t.view != nil {
		t.ctx.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.ctx.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// createTexture allocates a 2D color texture and its default view.
func (c *Context) createTexture(label string, width, height int, format gputypes.TextureFormat) (hal.Texture, hal.TextureView, error) {
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         targetUsage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		c.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("wgpu: create texture view %q: %w", label, err)
	}
	return tex, view, nil
}
