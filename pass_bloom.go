package postfx

import "encoding/json"

// TypeUnrealBloom is the serialized type tag of UnrealBloomPass.
const TypeUnrealBloom = "UnrealBloom"

// bloomMipCount is the number of progressively wider blur stages.
const bloomMipCount = 5

// bloomKernelRadii are the gaussian radii of the blur stages, widening per
// mip the way the Unreal engine bloom chain does.
var bloomKernelRadii = [bloomMipCount]int{3, 5, 7, 9, 11}

func init() {
	RegisterPassType(TypeUnrealBloom, func() Pass { return NewUnrealBloomPass() })
}

// UnrealBloomPass adds a multi-stage bloom: pixels above a luminance
// threshold are extracted, blurred at several widths, and composited
// additively over the source. Each stage has its own weighting factor and
// tint color.
type UnrealBloomPass struct {
	PassBase

	// Strength scales the overall bloom contribution.
	Strength float64

	// Radius widens the contribution of the larger blur stages, 0..1.
	Radius float64

	// Threshold is the luminance (0..1) below which pixels do not bloom.
	Threshold float64

	// SmoothWidth is the soft-knee width above the threshold.
	SmoothWidth float64

	// Factors weights each blur stage's contribution.
	Factors [bloomMipCount]float64

	// TintColors tints each blur stage, RGB components 0..1.
	TintColors [bloomMipCount][3]float64
}

// NewUnrealBloomPass creates an enabled bloom pass with the reference
// defaults (strength 1, radius 0, threshold 0).
func NewUnrealBloomPass() *UnrealBloomPass {
	p := &UnrealBloomPass{
		PassBase:    newPassBase(true),
		Strength:    1,
		SmoothWidth: 0.01,
		Factors:     [bloomMipCount]float64{1, 0.8, 0.6, 0.4, 0.2},
	}
	for i := range p.TintColors {
		p.TintColors[i] = [3]float64{1, 1, 1}
	}
	return p
}

// Type returns the serialized type tag.
func (p *UnrealBloomPass) Type() string { return TypeUnrealBloom }

// Render composites the blurred bright regions over the read target into
// the destination.
func (p *UnrealBloomPass) Render(ctx Context, write, read Target, _ float64, _ bool, _, _ any) error {
	return applyPixelEffect(ctx, write, read, p.RenderToScreen(), func(pix []byte, w, h int) []byte {
		out := make([]byte, len(pix))
		copy(out, pix)

		bright := extractBright(pix, float32(p.Threshold), float32(p.SmoothWidth))
		stage := bright
		for i := 0; i < bloomMipCount; i++ {
			stage = blurPlane(stage, w, h, bloomKernelRadii[i])
			// The larger stages fade in as Radius approaches 1.
			factor := float32(p.Strength * p.Factors[i])
			if i > 0 {
				factor *= float32(p.Radius)*float32(i)/float32(bloomMipCount-1) + (1 - float32(i)/float32(bloomMipCount-1))
			}
			tint := [3]float32{
				float32(p.TintColors[i][0]),
				float32(p.TintColors[i][1]),
				float32(p.TintColors[i][2]),
			}
			addScaled(out, stage, factor, tint)
		}
		return out
	})
}

type bloomRecord struct {
	passFields
	Strength    float64                   `json:"strength"`
	Radius      float64                   `json:"radius"`
	Threshold   float64                   `json:"threshold"`
	SmoothWidth float64                   `json:"smoothWidth"`
	Factors     [bloomMipCount]float64    `json:"factors"`
	TintColors  [bloomMipCount][3]float64 `json:"tintColors"`
}

// MarshalRecord implements Pass.
func (p *UnrealBloomPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(bloomRecord{
		passFields:  p.fields(TypeUnrealBloom),
		Strength:    p.Strength,
		Radius:      p.Radius,
		Threshold:   p.Threshold,
		SmoothWidth: p.SmoothWidth,
		Factors:     p.Factors,
		TintColors:  p.TintColors,
	})
}

// UnmarshalRecord implements Pass.
func (p *UnrealBloomPass) UnmarshalRecord(data json.RawMessage) error {
	rec := bloomRecord{
		passFields:  p.fields(TypeUnrealBloom),
		Strength:    p.Strength,
		Radius:      p.Radius,
		Threshold:   p.Threshold,
		SmoothWidth: p.SmoothWidth,
		Factors:     p.Factors,
		TintColors:  p.TintColors,
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec.passFields)
	p.Strength = rec.Strength
	p.Radius = rec.Radius
	p.Threshold = rec.Threshold
	p.SmoothWidth = rec.SmoothWidth
	p.Factors = rec.Factors
	p.TintColors = rec.TintColors
	return nil
}
