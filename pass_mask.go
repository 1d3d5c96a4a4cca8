package postfx

import "encoding/json"

// Serialized type tags of the mask bracket passes.
const (
	TypeMask      = "Mask"
	TypeClearMask = "ClearMask"
)

func init() {
	RegisterPassType(TypeMask, func() Pass { return NewMaskPass(nil, nil) })
	RegisterPassType(TypeClearMask, func() Pass { return NewClearMaskPass() })
}

// maskBracket marks passes that open or close a stencil mask bracket. The
// composer tracks the bracket state through this interface instead of
// inspecting concrete types.
type maskBracket interface {
	opensMask() bool
}

// MaskPass opens a stencil mask bracket: it rasterizes the scene's coverage
// into the stencil plane and constrains all subsequent passes to that
// region until a ClearMaskPass closes the bracket.
//
// MaskPass requires a context implementing MaskContext; on other contexts
// it is inert and logs a debug message.
type MaskPass struct {
	PassBase

	// Scene and Camera define the mask shape. When nil the composer's
	// frame inputs are used.
	Scene  any
	Camera any

	// Inverse constrains subsequent passes to the region NOT covered by
	// the scene.
	Inverse bool
}

// NewMaskPass creates an enabled mask pass that clears the stencil plane
// before rasterizing the mask shape.
func NewMaskPass(scene, camera any) *MaskPass {
	p := &MaskPass{
		PassBase: newPassBase(false),
		Scene:    scene,
		Camera:   camera,
	}
	p.SetClear(true)
	return p
}

// Type returns the serialized type tag.
func (p *MaskPass) Type() string { return TypeMask }

func (p *MaskPass) opensMask() bool { return true }

// Render writes the mask into the stencil plane and arms the stencil test
// for the passes that follow.
func (p *MaskPass) Render(ctx Context, _, _ Target, _ float64, _ bool, scene, camera any) error {
	mc, ok := ctx.(MaskContext)
	if !ok {
		Logger().Debug("postfx: context does not support stencil masks; MaskPass skipped")
		return nil
	}
	if p.Scene != nil {
		scene = p.Scene
	}
	if p.Camera != nil {
		camera = p.Camera
	}

	// Inversion swaps the values written into the stencil plane rather
	// than the armed comparison: the composer's copy-back bracket relies
	// on Equal(ref) marking the region that keeps the effect.
	writeRef := uint32(maskStencilRef)
	clearRef := uint32(0)
	if p.Inverse {
		writeRef, clearRef = 0, maskStencilRef
	}

	mc.SetStencilTest(true)
	if p.Clear() {
		mc.ClearStencil(clearRef)
	}
	if err := mc.RenderMask(scene, camera, writeRef); err != nil {
		return err
	}
	ctx.SetStencilFunc(compareEqual, maskStencilRef)
	return nil
}

type maskRecord struct {
	passFields
	Inverse bool `json:"inverse"`
}

// MarshalRecord implements Pass.
func (p *MaskPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(maskRecord{
		passFields: p.fields(TypeMask),
		Inverse:    p.Inverse,
	})
}

// UnmarshalRecord implements Pass.
func (p *MaskPass) UnmarshalRecord(data json.RawMessage) error {
	rec := maskRecord{
		passFields: p.fields(TypeMask),
		Inverse:    p.Inverse,
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec.passFields)
	p.Inverse = rec.Inverse
	return nil
}

// ClearMaskPass closes a stencil mask bracket, releasing subsequent passes
// from the stencil constraint.
type ClearMaskPass struct {
	PassBase
}

// NewClearMaskPass creates an enabled clear-mask pass.
func NewClearMaskPass() *ClearMaskPass {
	return &ClearMaskPass{PassBase: newPassBase(false)}
}

// Type returns the serialized type tag.
func (p *ClearMaskPass) Type() string { return TypeClearMask }

func (p *ClearMaskPass) opensMask() bool { return false }

// Render disables the stencil test.
func (p *ClearMaskPass) Render(ctx Context, _, _ Target, _ float64, _ bool, _, _ any) error {
	if mc, ok := ctx.(MaskContext); ok {
		mc.SetStencilTest(false)
	}
	return nil
}

// MarshalRecord implements Pass.
func (p *ClearMaskPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(p.fields(TypeClearMask))
}

// UnmarshalRecord implements Pass.
func (p *ClearMaskPass) UnmarshalRecord(data json.RawMessage) error {
	rec := p.fields(TypeClearMask)
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec)
	return nil
}
