package postfx

import (
	"errors"
	"fmt"
)

// Effect pass errors.
var (
	// ErrNoPixelAccess is returned when neither the target nor the context
	// can expose pixel data to a CPU effect pass.
	ErrNoPixelAccess = errors.New("postfx: target pixels are not accessible")

	// ErrNoPixelUpload is returned when the effect result cannot be
	// written back into the destination target.
	ErrNoPixelUpload = errors.New("postfx: target does not accept pixel upload")
)

// readTargetPixels returns a tightly packed RGBA copy of the target's
// contents, through direct access when the target supports it and through
// the context's readback path otherwise.
func readTargetPixels(ctx Context, t Target) ([]byte, error) {
	if pt, ok := t.(PixelTarget); ok {
		w, h := pt.Width(), pt.Height()
		src, stride := pt.Pixels(), pt.Stride()
		out := make([]byte, w*h*4)
		for y := 0; y < h; y++ {
			copy(out[y*w*4:(y+1)*w*4], src[y*stride:y*stride+w*4])
		}
		return out, nil
	}
	if pr, ok := ctx.(PixelReader); ok {
		return pr.ReadPixels(t)
	}
	return nil, ErrNoPixelAccess
}

// writeTargetPixels stores a tightly packed RGBA plane into the target.
func writeTargetPixels(ctx Context, t Target, pix []byte) error {
	if pt, ok := t.(PixelTarget); ok {
		w, h := pt.Width(), pt.Height()
		dst, stride := pt.Pixels(), pt.Stride()
		for y := 0; y < h; y++ {
			copy(dst[y*stride:y*stride+w*4], pix[y*w*4:(y+1)*w*4])
		}
		return nil
	}
	if pw, ok := ctx.(PixelWriter); ok {
		return pw.WritePixels(t, pix)
	}
	return ErrNoPixelUpload
}

// pixelEffect transforms a tightly packed RGBA plane in place or into a
// fresh plane of the same size.
type pixelEffect func(pix []byte, width, height int) []byte

// applyPixelEffect runs fn over the read target and stores the result in
// the destination: the write target, or the screen when toScreen is set
// (the result then lands in write as scratch before the screen blit, which
// is safe because screen-output passes never request a swap).
func applyPixelEffect(ctx Context, write, read Target, toScreen bool, fn pixelEffect) error {
	src, err := readTargetPixels(ctx, read)
	if err != nil {
		return err
	}
	out := fn(src, read.Width(), read.Height())
	if err := writeTargetPixels(ctx, write, out); err != nil {
		return err
	}
	if toScreen {
		if err := ctx.Blit(nil, write, nil); err != nil {
			return fmt.Errorf("screen output: %w", err)
		}
	}
	return nil
}
