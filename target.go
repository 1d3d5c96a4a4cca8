package postfx

import "github.com/gogpu/gputypes"

// Target is an off-screen color buffer owned by a Composer.
//
// The composer allocates two equally sized targets through its Context and
// alternates them as the read and write ends of the pass chain. Targets are
// resized in place on Composer.SetSize and released on Composer.Dispose;
// passes must never destroy a target handed to them.
//
// Backend-specific capabilities are exposed through extension interfaces:
//   - PixelTarget: direct CPU access to the pixel data (software targets)
//   - GPU targets expose their texture view through the backend package
type Target interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Resize reallocates the target storage to the given dimensions.
	// The contents are not preserved.
	Resize(width, height int) error

	// Destroy releases the target's native resources. The target must not
	// be used afterwards.
	Destroy()
}

// PixelTarget is implemented by targets that support direct CPU access.
//
// For RGBA formats each pixel is 4 bytes: R, G, B, A.
type PixelTarget interface {
	Target

	// Pixels returns direct access to the pixel data.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// TargetOptions configures target allocation.
//
// The zero value requests the composer defaults: 4-channel RGBA8 color with
// linear filtering and no depth or stencil storage on the target itself
// (stencil operations happen on the shared rendering context).
type TargetOptions struct {
	// Format is the pixel format. TextureFormatUndefined selects RGBA8.
	Format gputypes.TextureFormat

	// Filter is the sampling filter used when the target is read.
	// The zero value selects linear filtering.
	Filter gputypes.FilterMode
}

// resolve fills in the defaults for unset options.
func (o TargetOptions) resolve() TargetOptions {
	if o.Format == gputypes.TextureFormatUndefined {
		o.Format = gputypes.TextureFormatRGBA8Unorm
	}
	return o
}
