package postfx

import "encoding/json"

// TypeFXAA is the serialized type tag of FXAAPass.
const TypeFXAA = "FXAA"

// fxaaContrastThreshold is the minimum local luma contrast that counts as
// an edge worth smoothing.
const fxaaContrastThreshold = 0.0625

func init() {
	RegisterPassType(TypeFXAA, func() Pass { return NewFXAAPass() })
}

// FXAAPass smooths high-contrast edges with a luminance-driven blend of
// the 3x3 neighborhood. It is usually the last stage of a pipeline, with
// RenderToScreen set and NeedsSwap cleared.
type FXAAPass struct {
	PassBase

	// width and height mirror the composer size so the pass can report
	// its current reciprocal-resolution uniform.
	width  int
	height int
}

// NewFXAAPass creates an enabled antialias pass that requests a swap.
// Callers producing screen output clear NeedsSwap and set RenderToScreen.
func NewFXAAPass() *FXAAPass {
	return &FXAAPass{PassBase: newPassBase(true)}
}

// Type returns the serialized type tag.
func (p *FXAAPass) Type() string { return TypeFXAA }

// SetSize records the resolution the resolve kernel runs at.
func (p *FXAAPass) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Resolution returns the reciprocal-resolution pair the kernel uses, the
// equivalent of the FXAA shader's resolution uniform.
func (p *FXAAPass) Resolution() (invWidth, invHeight float64) {
	if p.width == 0 || p.height == 0 {
		return 0, 0
	}
	return 1 / float64(p.width), 1 / float64(p.height)
}

// Render applies the edge smoothing to the read target.
func (p *FXAAPass) Render(ctx Context, write, read Target, _ float64, _ bool, _, _ any) error {
	return applyPixelEffect(ctx, write, read, p.RenderToScreen(), func(pix []byte, w, h int) []byte {
		out := make([]byte, len(pix))
		copy(out, pix)

		lum := func(x, y int) float32 {
			if x < 0 {
				x = 0
			} else if x >= w {
				x = w - 1
			}
			if y < 0 {
				y = 0
			} else if y >= h {
				y = h - 1
			}
			o := (y*w + x) * 4
			return luma(pix[o], pix[o+1], pix[o+2])
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				center := lum(x, y)
				north := lum(x, y-1)
				south := lum(x, y+1)
				west := lum(x-1, y)
				east := lum(x+1, y)

				maxL := max4(north, south, west, east)
				if center > maxL {
					maxL = center
				}
				minL := min4(north, south, west, east)
				if center < minL {
					minL = center
				}
				if maxL-minL < fxaaContrastThreshold {
					continue
				}

				// Blend toward the cross average on detected edges.
				o := (y*w + x) * 4
				for c := 0; c < 3; c++ {
					no := ((clampIdx(y-1, h))*w + x) * 4
					so := ((clampIdx(y+1, h))*w + x) * 4
					wo := (y*w + clampIdx(x-1, w)) * 4
					eo := (y*w + clampIdx(x+1, w)) * 4
					avg := (float32(pix[no+c]) + float32(pix[so+c]) +
						float32(pix[wo+c]) + float32(pix[eo+c])) / 4
					out[o+c] = clampU8((float32(pix[o+c]) + avg) / 2)
				}
			}
		}
		return out
	})
}

func clampIdx(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func max4(a, b, c, d float32) float32 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	if d > a {
		a = d
	}
	return a
}

func min4(a, b, c, d float32) float32 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	if d < a {
		a = d
	}
	return a
}

// MarshalRecord implements Pass. FXAA has no tunable parameters beyond the
// shared flags; the resolution uniform is derived from the composer size.
func (p *FXAAPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(p.fields(TypeFXAA))
}

// UnmarshalRecord implements Pass.
func (p *FXAAPass) UnmarshalRecord(data json.RawMessage) error {
	rec := p.fields(TypeFXAA)
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec)
	return nil
}
