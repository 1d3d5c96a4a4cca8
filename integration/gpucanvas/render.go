// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucanvas

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/postfx"
)

// RenderOptions controls where the frame is drawn.
type RenderOptions struct {
	// X, Y is the position to draw the texture (default: 0, 0)
	X, Y float32
}

// RenderTo uploads the frame if dirty and draws it at (0, 0).
//
// The dc parameter should be obtained from gogpu.Context.AsTextureDrawer().
//
// Example:
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    presenter.Capture(ctx, ctx.Screen())
//	    presenter.RenderTo(dc.AsTextureDrawer())
//	})
func (p *Presenter) RenderTo(dc any) error {
	return p.RenderToEx(dc, RenderOptions{})
}

// RenderToEx draws the frame with positioning options.
func (p *Presenter) RenderToEx(dc any, opts RenderOptions) error {
	if p.closed {
		return ErrPresenterClosed
	}
	drawer, ok := dc.(textureDrawer)
	if !ok {
		return ErrInvalidDrawContext
	}

	if p.texture == nil {
		creator, ok := drawer.TextureCreator().(textureCreator)
		if !ok || creator == nil {
			return ErrInvalidRenderer
		}

		// NewTextureFromRGBA waits for the GPU internally, so once it
		// returns, any texture deferred by Resize is no longer in use.
		tex, err := creator.NewTextureFromRGBA(p.width, p.height, p.frame)
		if err != nil {
			return fmt.Errorf("gpucanvas: NewTextureFromRGBA failed: %w", err)
		}
		p.texture = tex
		p.dirty = false

		if p.oldTexture != nil {
			if destroyer, ok := p.oldTexture.(textureDestroyer); ok {
				destroyer.Destroy()
			}
			p.oldTexture = nil
		}
	} else if p.dirty {
		if updater, ok := p.texture.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(p.frame); err != nil {
				return fmt.Errorf("gpucanvas: texture update failed: %w", err)
			}
		} else {
			postfx.Logger().Warn("gpucanvas: texture does not support updates; stale frame drawn")
		}
		p.dirty = false
	}

	return drawer.DrawTexture(p.texture, opts.X, opts.Y)
}

// RenderToPosition is a convenience method for rendering at a position.
//
//	presenter.RenderToPosition(dc.AsTextureDrawer(), 100, 50)
func (p *Presenter) RenderToPosition(dc any, x, y float32) error {
	return p.RenderToEx(dc, RenderOptions{X: x, Y: y})
}
