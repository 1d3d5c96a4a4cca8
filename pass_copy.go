package postfx

import "encoding/json"

// TypeCopy is the serialized type tag of CopyPass.
const TypeCopy = "Copy"

func init() {
	RegisterPassType(TypeCopy, func() Pass { return NewCopyPass() })
}

// CopyPass blits the read target onto the write target (or the screen)
// unchanged except for an opacity scale. The composer also keeps a private
// CopyPass for the mask-bracket copy-back; in user pipelines it usually
// appears as the final screen-output stage.
type CopyPass struct {
	PassBase

	// Opacity scales the copied pixels, 0..1.
	Opacity float64
}

// NewCopyPass creates an enabled copy pass with full opacity that requests
// a buffer swap.
func NewCopyPass() *CopyPass {
	return &CopyPass{
		PassBase: newPassBase(true),
		Opacity:  1,
	}
}

// Type returns the serialized type tag.
func (p *CopyPass) Type() string { return TypeCopy }

// Render blits read onto the destination. While a mask bracket is open the
// blit is gated through the context's current stencil comparison.
func (p *CopyPass) Render(ctx Context, write, read Target, _ float64, maskActive bool, _, _ any) error {
	dst := write
	if p.RenderToScreen() {
		dst = nil
	}
	return ctx.Blit(dst, read, &BlitOptions{
		Opacity:     p.Opacity,
		StencilTest: maskActive,
	})
}

type copyRecord struct {
	passFields
	Opacity float64 `json:"opacity"`
}

// MarshalRecord implements Pass.
func (p *CopyPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(copyRecord{
		passFields: p.fields(TypeCopy),
		Opacity:    p.Opacity,
	})
}

// UnmarshalRecord implements Pass.
func (p *CopyPass) UnmarshalRecord(data json.RawMessage) error {
	rec := copyRecord{
		passFields: p.fields(TypeCopy),
		Opacity:    p.Opacity,
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec.passFields)
	p.Opacity = rec.Opacity
	return nil
}
