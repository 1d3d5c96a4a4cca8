package postfx

import (
	"encoding/json"

	"github.com/chewxy/math32"
)

// TypeSSAO is the serialized type tag of SSAOPass.
const TypeSSAO = "SSAO"

func init() {
	RegisterPassType(TypeSSAO, func() Pass { return NewSSAOPass() })
}

// ssaoRingSamples is the number of ring samples taken around each pixel.
const ssaoRingSamples = 8

// SSAOPass darkens crevices: pixels that are noticeably brighter than
// their ring neighborhood keep their value, pixels in locally dark
// surroundings are attenuated. The screen-space approximation works on the
// color buffer alone, so it composes with any host scene renderer.
type SSAOPass struct {
	PassBase

	// Radius is the sampling ring radius in pixels.
	Radius float64

	// AOClamp limits the maximum occlusion, 0 (full occlusion allowed)
	// to 1 (no occlusion).
	AOClamp float64

	// LumInfluence controls how much a pixel's own luminance shields it
	// from occlusion, 0..1.
	LumInfluence float64

	// AOOnly outputs the occlusion term itself instead of the modulated
	// image, for debugging.
	AOOnly bool
}

// NewSSAOPass creates an enabled ambient-occlusion pass with the reference
// defaults (radius 4, clamp 0.25, luminance influence 0.7).
func NewSSAOPass() *SSAOPass {
	return &SSAOPass{
		PassBase:     newPassBase(true),
		Radius:       4,
		AOClamp:      0.25,
		LumInfluence: 0.7,
	}
}

// Type returns the serialized type tag.
func (p *SSAOPass) Type() string { return TypeSSAO }

// Render applies the occlusion term to the read target.
func (p *SSAOPass) Render(ctx Context, write, read Target, _ float64, _ bool, _, _ any) error {
	return applyPixelEffect(ctx, write, read, p.RenderToScreen(), func(pix []byte, w, h int) []byte {
		radius := int(p.Radius + 0.5)
		if radius < 1 {
			radius = 1
		}
		out := make([]byte, len(pix))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := (y*w + x) * 4
				self := luma(pix[o], pix[o+1], pix[o+2])

				// Average luminance on a ring of the configured radius.
				var ring float32
				for s := 0; s < ssaoRingSamples; s++ {
					angle := 2 * math32.Pi * float32(s) / ssaoRingSamples
					sx := x + int(float32(radius)*math32.Cos(angle))
					sy := y + int(float32(radius)*math32.Sin(angle))
					if sx < 0 {
						sx = 0
					} else if sx >= w {
						sx = w - 1
					}
					if sy < 0 {
						sy = 0
					} else if sy >= h {
						sy = h - 1
					}
					so := (sy*w + sx) * 4
					ring += luma(pix[so], pix[so+1], pix[so+2])
				}
				ring /= ssaoRingSamples

				// Occlude where the neighborhood outshines the pixel.
				occ := ring - self
				if occ < 0 {
					occ = 0
				}
				occ *= 1 - float32(p.LumInfluence)*self
				ao := 1 - occ
				if clampMin := float32(p.AOClamp); ao < clampMin {
					ao = clampMin
				}

				if p.AOOnly {
					v := clampU8(ao * 255)
					out[o], out[o+1], out[o+2] = v, v, v
				} else {
					out[o] = clampU8(ao * float32(pix[o]))
					out[o+1] = clampU8(ao * float32(pix[o+1]))
					out[o+2] = clampU8(ao * float32(pix[o+2]))
				}
				out[o+3] = pix[o+3]
			}
		}
		return out
	})
}

type ssaoRecord struct {
	passFields
	Radius       float64 `json:"radius"`
	AOClamp      float64 `json:"aoClamp"`
	LumInfluence float64 `json:"lumInfluence"`
	AOOnly       bool    `json:"aoOnly"`
}

// MarshalRecord implements Pass.
func (p *SSAOPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(ssaoRecord{
		passFields:   p.fields(TypeSSAO),
		Radius:       p.Radius,
		AOClamp:      p.AOClamp,
		LumInfluence: p.LumInfluence,
		AOOnly:       p.AOOnly,
	})
}

// UnmarshalRecord implements Pass.
func (p *SSAOPass) UnmarshalRecord(data json.RawMessage) error {
	rec := ssaoRecord{
		passFields:   p.fields(TypeSSAO),
		Radius:       p.Radius,
		AOClamp:      p.AOClamp,
		LumInfluence: p.LumInfluence,
		AOOnly:       p.AOOnly,
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec.passFields)
	p.Radius = rec.Radius
	p.AOClamp = rec.AOClamp
	p.LumInfluence = rec.LumInfluence
	p.AOOnly = rec.AOOnly
	return nil
}
