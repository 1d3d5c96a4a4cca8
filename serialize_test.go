package postfx

import (
	"encoding/json"
	"testing"
)

func TestComposerRoundTrip(t *testing.T) {
	ctx := &recordContext{}
	src, err := NewComposer(ctx)
	if err != nil {
		t.Fatalf("NewComposer() = %v", err)
	}
	defer src.Dispose()

	render := NewRenderPass("scene", "cam")
	render.ClearColor = [3]float64{0.1, 0.2, 0.3}
	render.ClearAlpha = 0.5

	bloom := NewUnrealBloomPass()
	bloom.Strength = 1.5
	bloom.Threshold = 0.85
	bloom.Radius = 0.4
	bloom.SetEnabled(false)

	ssao := NewSSAOPass()
	ssao.Radius = 8
	ssao.AOOnly = true

	bokeh := NewBokehPass()
	bokeh.Focus = 0.35
	bokeh.Aperture = 0.07

	mask := NewMaskPass(nil, nil)
	mask.Inverse = true

	fxaa := NewFXAAPass()

	final := NewCopyPass()
	final.Opacity = 0.75
	final.SetRenderToScreen(true)
	final.SetNeedsSwap(false)

	for _, p := range []Pass{render, mask, bloom, ssao, NewClearMaskPass(), bokeh, fxaa, final} {
		src.AddPass(p)
	}

	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("Marshal() = %v", err)
	}

	dst, err := UnmarshalComposer(ctx, data)
	if err != nil {
		t.Fatalf("UnmarshalComposer() = %v", err)
	}
	defer dst.Dispose()

	if dst.UUID() != src.UUID() {
		t.Errorf("uuid = %q, want %q", dst.UUID(), src.UUID())
	}
	if dst.Len() != src.Len() {
		t.Fatalf("Len() = %d, want %d", dst.Len(), src.Len())
	}

	srcPasses, dstPasses := src.Passes(), dst.Passes()
	for i := range srcPasses {
		s, d := srcPasses[i], dstPasses[i]
		if d.Type() != s.Type() {
			t.Errorf("pass %d type = %q, want %q", i, d.Type(), s.Type())
		}
		if d.UUID() != s.UUID() {
			t.Errorf("pass %d uuid = %q, want %q", i, d.UUID(), s.UUID())
		}
		if d.Enabled() != s.Enabled() {
			t.Errorf("pass %d enabled = %v, want %v", i, d.Enabled(), s.Enabled())
		}
		if d.NeedsSwap() != s.NeedsSwap() {
			t.Errorf("pass %d needsSwap = %v, want %v", i, d.NeedsSwap(), s.NeedsSwap())
		}
		if d.RenderToScreen() != s.RenderToScreen() {
			t.Errorf("pass %d renderToScreen = %v, want %v", i, d.RenderToScreen(), s.RenderToScreen())
		}
		if d.Clear() != s.Clear() {
			t.Errorf("pass %d clear = %v, want %v", i, d.Clear(), s.Clear())
		}
	}

	if got := dstPasses[0].(*RenderPass); got.ClearColor != render.ClearColor || got.ClearAlpha != render.ClearAlpha {
		t.Errorf("render pass params = %v/%v, want %v/%v",
			got.ClearColor, got.ClearAlpha, render.ClearColor, render.ClearAlpha)
	}
	if got := dstPasses[1].(*MaskPass); !got.Inverse {
		t.Error("mask pass lost Inverse")
	}
	if got := dstPasses[2].(*UnrealBloomPass); got.Strength != 1.5 || got.Threshold != 0.85 || got.Radius != 0.4 {
		t.Errorf("bloom params = %+v", got)
	}
	if got := dstPasses[3].(*SSAOPass); got.Radius != 8 || !got.AOOnly {
		t.Errorf("ssao params = %+v", got)
	}
	if got := dstPasses[5].(*BokehPass); got.Focus != 0.35 || got.Aperture != 0.07 {
		t.Errorf("bokeh params = %+v", got)
	}
	if got := dstPasses[7].(*CopyPass); got.Opacity != 0.75 {
		t.Errorf("copy opacity = %v, want 0.75", got.Opacity)
	}
}

func TestUnmarshalComposerUnknownType(t *testing.T) {
	doc := `{
		"uuid": "11111111-2222-4333-8444-555555555555",
		"passes": [
			{"type": "Foobar", "uuid": "aaaa", "enabled": true, "needsSwap": true,
			 "renderToScreen": false, "clear": false}
		]
	}`
	ctx := &recordContext{}
	c, err := UnmarshalComposer(ctx, []byte(doc))
	if err != nil {
		t.Fatalf("UnmarshalComposer() = %v", err)
	}
	defer c.Dispose()

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	p, ok := c.Passes()[0].(*RenderPass)
	if !ok {
		t.Fatalf("unknown tag produced %T, want *RenderPass", c.Passes()[0])
	}
	if p.UUID() != "aaaa" {
		t.Errorf("uuid = %q, want %q (shared flags still restored)", p.UUID(), "aaaa")
	}
	if !p.Enabled() || !p.NeedsSwap() {
		t.Error("shared flags not restored on fallback pass")
	}

	// The fallback pass must be usable in the chain, not a dead stub.
	if err := c.Render(ctx, "scene", "cam", 0); err != nil {
		t.Fatalf("Render() with fallback pass = %v", err)
	}
}

func TestUnmarshalComposerErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", "{{{"},
		{"pass record not an object", `{"uuid": "u", "passes": [42]}`},
	}
	ctx := &recordContext{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalComposer(ctx, []byte(tt.doc)); err == nil {
				t.Fatal("UnmarshalComposer() = nil, want error")
			}
		})
	}
}

func TestUnmarshalComposerEmptyDocument(t *testing.T) {
	ctx := &recordContext{}
	c, err := UnmarshalComposer(ctx, []byte(`{"uuid": "", "passes": []}`))
	if err != nil {
		t.Fatalf("UnmarshalComposer() = %v", err)
	}
	defer c.Dispose()

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	// An empty serialized uuid keeps the freshly generated identity.
	if c.UUID() == "" {
		t.Error("composer uuid is empty")
	}
}

func TestRegisterCustomPassType(t *testing.T) {
	RegisterPassType("Stub", func() Pass { return newStubPass(true) })
	defer func() {
		passRegistry.mu.Lock()
		delete(passRegistry.factories, "Stub")
		passRegistry.mu.Unlock()
	}()

	p := newPassForType("Stub")
	if _, ok := p.(*stubPass); !ok {
		t.Fatalf("newPassForType(Stub) = %T, want *stubPass", p)
	}
}
