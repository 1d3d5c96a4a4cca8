package postfx

import "github.com/gogpu/gputypes"

// Context is the rendering-services contract consumed by the composer and
// its passes. It abstracts over concrete backends: SoftwareContext in this
// package renders on the CPU, backend/wgpu renders through gogpu/wgpu.
//
// The composer never reads a context from ambient state; the active context
// is passed explicitly into Render and into every pass.
type Context interface {
	// CreateTarget allocates an off-screen color target. A nil opts pointer
	// requests the defaults (RGBA8, linear filtering, no depth/stencil).
	CreateTarget(width, height int, opts *TargetOptions) (Target, error)

	// SetStencilFunc sets the stencil comparison applied to subsequent
	// stencil-tested drawing. The composer uses exactly two states while
	// compositing a mask bracket: NotEqual(ref) during the copy-back and
	// Equal(ref) afterwards.
	SetStencilFunc(fn gputypes.CompareFunction, ref uint32)

	// Blit copies src onto dst with the context's filtering. A nil dst
	// addresses the screen (the default framebuffer of the backend).
	// A nil opts pointer requests an opaque full-target copy.
	Blit(dst Target, src Target, opts *BlitOptions) error

	// RenderScene draws the external scene as seen by camera into dst
	// (nil dst = screen). Scene and camera are opaque to postfx; the
	// context dispatches them to the host renderer. When clear is true the
	// destination is cleared first.
	RenderScene(dst Target, scene, camera any, clear bool) error
}

// Stencil comparison states used by the composer and the mask passes.
const (
	compareEqual    = gputypes.CompareFunctionEqual
	compareNotEqual = gputypes.CompareFunctionNotEqual
)

// BlitOptions configures a Blit operation.
type BlitOptions struct {
	// Opacity scales the source contribution, 0 (transparent) to 1 (opaque).
	Opacity float64

	// StencilTest gates the copy through the context's current stencil
	// comparison. Pixels failing the test keep the destination value.
	StencilTest bool
}

// PixelReader is implemented by contexts that can read a target's pixels
// back to the CPU. For GPU backends this is an expensive synchronous
// operation. The returned slice is tightly packed (stride = width*4).
type PixelReader interface {
	ReadPixels(t Target) ([]byte, error)
}

// PixelWriter is implemented by contexts that can upload CPU pixel data
// into a target. The data must be tightly packed RGBA (len = w*h*4).
type PixelWriter interface {
	WritePixels(t Target, pix []byte) error
}

// MaskContext is implemented by contexts that support stencil mask
// brackets. MaskPass and ClearMaskPass require it; on contexts without
// mask support those passes are inert.
type MaskContext interface {
	// RenderMask rasterizes the scene's coverage into the stencil plane,
	// writing ref for every covered pixel. Color output is suppressed.
	RenderMask(scene, camera any, ref uint32) error

	// SetStencilTest enables or disables stencil testing for subsequent
	// drawing and blits.
	SetStencilTest(enabled bool)

	// ClearStencil fills the whole stencil plane with ref. Mask passes
	// clear to zero before writing the reference value into covered
	// pixels, or to the reference value before writing zero when the mask
	// is inverted.
	ClearStencil(ref uint32)
}

// BlitSupporter is implemented by contexts that can report up front whether
// the blit (copy) capability is available. Contexts that omit it are assumed
// to support blits. NewComposer consults this once at construction and logs
// a warning when the capability is missing, since the mask-bracket copy-back
// cannot work without it.
type BlitSupporter interface {
	SupportsBlit() bool
}
