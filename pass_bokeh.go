package postfx

import (
	"encoding/json"

	"github.com/chewxy/math32"
)

// TypeBokeh is the serialized type tag of BokehPass.
const TypeBokeh = "Bokeh"

func init() {
	RegisterPassType(TypeBokeh, func() Pass { return NewBokehPass() })
}

// BokehPass applies a depth-of-field blur. Without a depth buffer the pass
// uses luminance as the focus proxy: pixels whose luminance is far from
// the focus value receive a blur radius growing with the aperture, capped
// at MaxBlur (expressed as a fraction of the target width).
type BokehPass struct {
	PassBase

	// Focus is the in-focus luminance value, 0..1.
	Focus float64

	// Aperture scales how quickly defocus grows away from Focus.
	Aperture float64

	// MaxBlur caps the blur radius, as a fraction of the target width.
	MaxBlur float64
}

// NewBokehPass creates an enabled depth-of-field pass with the reference
// defaults (focus 0.5, aperture 0.025, max blur 0.01).
func NewBokehPass() *BokehPass {
	return &BokehPass{
		PassBase: newPassBase(true),
		Focus:    0.5,
		Aperture: 0.025,
		MaxBlur:  0.01,
	}
}

// Type returns the serialized type tag.
func (p *BokehPass) Type() string { return TypeBokeh }

// Render blurs the read target proportionally to each pixel's defocus.
func (p *BokehPass) Render(ctx Context, write, read Target, _ float64, _ bool, _, _ any) error {
	return applyPixelEffect(ctx, write, read, p.RenderToScreen(), func(pix []byte, w, h int) []byte {
		maxRadius := int(float32(p.MaxBlur)*float32(w) + 0.5)
		if maxRadius < 1 {
			out := make([]byte, len(pix))
			copy(out, pix)
			return out
		}

		// One blurred plane at the maximum radius; each pixel blends
		// between sharp and blurred by its defocus amount. Cheaper than
		// a per-pixel variable kernel and visually close for small radii.
		blurred := blurPlane(pix, w, h, maxRadius)
		out := make([]byte, len(pix))
		aperture := float32(p.Aperture) * 100
		for o := 0; o < len(pix); o += 4 {
			l := luma(pix[o], pix[o+1], pix[o+2])
			defocus := math32.Min(math32.Abs(l-float32(p.Focus))*aperture, 1)
			for c := 0; c < 3; c++ {
				sharp := float32(pix[o+c])
				soft := float32(blurred[o+c])
				out[o+c] = clampU8(sharp + (soft-sharp)*defocus)
			}
			out[o+3] = pix[o+3]
		}
		return out
	})
}

type bokehRecord struct {
	passFields
	Focus    float64 `json:"focus"`
	Aperture float64 `json:"aperture"`
	MaxBlur  float64 `json:"maxBlur"`
}

// MarshalRecord implements Pass.
func (p *BokehPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(bokehRecord{
		passFields: p.fields(TypeBokeh),
		Focus:      p.Focus,
		Aperture:   p.Aperture,
		MaxBlur:    p.MaxBlur,
	})
}

// UnmarshalRecord implements Pass.
func (p *BokehPass) UnmarshalRecord(data json.RawMessage) error {
	rec := bokehRecord{
		passFields: p.fields(TypeBokeh),
		Focus:      p.Focus,
		Aperture:   p.Aperture,
		MaxBlur:    p.MaxBlur,
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec.passFields)
	p.Focus = rec.Focus
	p.Aperture = rec.Aperture
	p.MaxBlur = rec.MaxBlur
	return nil
}
