// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpucanvas presents postfx output inside a gogpu application.
//
// A Presenter captures the composed frame from a postfx context as RGBA
// pixels, uploads it into a gogpu texture and draws the texture through
// the application's draw context. It manages the CPU-to-GPU handoff the
// same way for every postfx backend, so a software-composed pipeline can
// be shown in a GPU window without extra plumbing.
package gpucanvas

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/postfx"
)

// Common errors returned by Presenter operations.
var (
	// ErrPresenterClosed is returned when operations are attempted on a
	// closed presenter.
	ErrPresenterClosed = errors.New("gpucanvas: presenter is closed")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("gpucanvas: invalid dimensions")

	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("gpucanvas: nil DeviceProvider")

	// ErrInvalidDrawContext is returned when the draw context cannot draw
	// textures.
	ErrInvalidDrawContext = errors.New("gpucanvas: dc cannot draw textures")

	// ErrInvalidRenderer is returned when the draw context has no texture
	// creator.
	ErrInvalidRenderer = errors.New("gpucanvas: dc has no texture creator")

	// ErrFrameSize is returned when a captured frame does not match the
	// presenter dimensions.
	ErrFrameSize = errors.New("gpucanvas: frame size mismatch")
)

// textureDrawer is the subset of the gogpu draw context the presenter
// needs. This matches gogpu.Context.AsTextureDrawer.
type textureDrawer interface {
	DrawTexture(tex any, x, y float32) error
	TextureCreator() any
}

// textureCreator creates GPU textures from RGBA pixel data.
type textureCreator interface {
	NewTextureFromRGBA(width, height int, data []byte) (any, error)
}

// textureDestroyer matches the gogpu.Texture.Destroy signature.
type textureDestroyer interface {
	Destroy()
}

// Presenter uploads composed postfx frames into a gogpu texture and draws
// them through the application's draw context.
//
// Presenter is NOT safe for concurrent use. Create one Presenter per
// goroutine, or use external synchronization.
type Presenter struct {
	provider gpucontext.DeviceProvider

	frame      []byte
	texture    any  // Lazy-created texture (*gogpu.Texture)
	oldTexture any  // Previous texture awaiting deferred destruction
	dirty      bool // Needs GPU upload

	width  int
	height int
	closed bool
}

// New creates a Presenter for a width x height frame.
// The provider should come from gogpu.App.GPUContextProvider().
func New(provider gpucontext.DeviceProvider, width, height int) (*Presenter, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	return &Presenter{
		provider: provider,
		frame:    make([]byte, width*height*4),
		width:    width,
		height:   height,
	}, nil
}

// Width returns the frame width in pixels.
func (p *Presenter) Width() int {
	return p.width
}

// Height returns the frame height in pixels.
func (p *Presenter) Height() int {
	return p.height
}

// Size returns width and height as a convenience.
func (p *Presenter) Size() (width, height int) {
	return p.width, p.height
}

// IsDirty returns true if the presenter holds a frame that has not been
// uploaded to the GPU yet.
func (p *Presenter) IsDirty() bool {
	return p.dirty
}

// SetFrame stores a tightly packed RGBA frame for the next RenderTo.
// The pixels are copied.
func (p *Presenter) SetFrame(pix []byte) error {
	if p.closed {
		return ErrPresenterClosed
	}
	if len(pix) != p.width*p.height*4 {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(pix), p.width*p.height*4)
	}
	copy(p.frame, pix)
	p.dirty = true
	return nil
}

// Capture reads the current contents of a postfx target into the frame.
// Pass the composer's screen target (or any target of matching size) after
// Composer.Render to pick up the composed image.
func (p *Presenter) Capture(src postfx.PixelReader, t postfx.Target) error {
	if p.closed {
		return ErrPresenterClosed
	}
	pix, err := src.ReadPixels(t)
	if err != nil {
		return fmt.Errorf("gpucanvas: capture: %w", err)
	}
	return p.SetFrame(pix)
}

// Resize changes the frame dimensions and clears the stored frame.
// The GPU texture is recreated on the next RenderTo.
func (p *Presenter) Resize(width, height int) error {
	if p.closed {
		return ErrPresenterClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if p.width == width && p.height == height {
		return nil
	}

	p.width = width
	p.height = height
	p.frame = make([]byte, width*height*4)
	p.dirty = false

	// The old texture may still be referenced by in-flight GPU command
	// buffers. Keep it alive and destroy it after the next upload, which
	// waits for the GPU internally.
	if p.texture != nil {
		if p.oldTexture != nil {
			if destroyer, ok := p.oldTexture.(textureDestroyer); ok {
				destroyer.Destroy()
			}
		}
		p.oldTexture = p.texture
		p.texture = nil
	}
	return nil
}

// Texture returns the current GPU texture without uploading.
// Returns nil if the texture has not been created yet.
func (p *Presenter) Texture() any {
	return p.texture
}

// Provider returns the DeviceProvider associated with this presenter.
// Returns nil if the presenter is closed.
func (p *Presenter) Provider() gpucontext.DeviceProvider {
	if p.closed {
		return nil
	}
	return p.provider
}

// Close releases all resources associated with the Presenter.
// Close is idempotent.
func (p *Presenter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if p.oldTexture != nil {
		if destroyer, ok := p.oldTexture.(textureDestroyer); ok {
			destroyer.Destroy()
		}
		p.oldTexture = nil
	}
	if p.texture != nil {
		if destroyer, ok := p.texture.(textureDestroyer); ok {
			destroyer.Destroy()
		}
		p.texture = nil
	}
	p.frame = nil
	p.provider = nil
	return nil
}
