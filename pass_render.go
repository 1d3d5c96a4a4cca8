package postfx

import "encoding/json"

// TypeRender is the serialized type tag of RenderPass. It is also the
// fallback variant for unrecognized tags during deserialization.
const TypeRender = "Render"

func init() {
	RegisterPassType(TypeRender, func() Pass { return NewRenderPass(nil, nil) })
}

// RenderPass draws the scene into the write target (or the screen),
// producing the source image the rest of the chain refines. It is normally
// the first pass of a pipeline.
type RenderPass struct {
	PassBase

	// Scene and Camera override the frame inputs passed to
	// Composer.Render when non-nil. They are opaque to postfx and are not
	// serialized.
	Scene  any
	Camera any

	// ClearColor and ClearAlpha are the clear values applied when the
	// Clear flag is set. Components are 0..1.
	ClearColor [3]float64
	ClearAlpha float64
}

// NewRenderPass creates an enabled render pass for the given scene and
// camera (both may be nil to use the composer's frame inputs). Render
// passes clear their destination and request a swap so the next pass reads
// the freshly drawn scene.
func NewRenderPass(scene, camera any) *RenderPass {
	p := &RenderPass{
		PassBase:   newPassBase(true),
		Scene:      scene,
		Camera:     camera,
		ClearAlpha: 1,
	}
	p.SetClear(true)
	return p
}

// Type returns the serialized type tag.
func (p *RenderPass) Type() string { return TypeRender }

// Render draws the scene through the context's host renderer.
func (p *RenderPass) Render(ctx Context, write, _ Target, _ float64, _ bool, scene, camera any) error {
	if p.Scene != nil {
		scene = p.Scene
	}
	if p.Camera != nil {
		camera = p.Camera
	}
	dst := write
	if p.RenderToScreen() {
		dst = nil
	}
	return ctx.RenderScene(dst, scene, camera, p.Clear())
}

type renderRecord struct {
	passFields
	ClearColor [3]float64 `json:"clearColor"`
	ClearAlpha float64    `json:"clearAlpha"`
}

// MarshalRecord implements Pass.
func (p *RenderPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(renderRecord{
		passFields: p.fields(TypeRender),
		ClearColor: p.ClearColor,
		ClearAlpha: p.ClearAlpha,
	})
}

// UnmarshalRecord implements Pass.
func (p *RenderPass) UnmarshalRecord(data json.RawMessage) error {
	rec := renderRecord{
		passFields: p.fields(TypeRender),
		ClearColor: p.ClearColor,
		ClearAlpha: p.ClearAlpha,
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec.passFields)
	p.ClearColor = rec.ClearColor
	p.ClearAlpha = rec.ClearAlpha
	return nil
}
