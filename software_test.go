package postfx

import (
	"encoding/json"
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
)

func newTestContext(t *testing.T, w, h int) *SoftwareContext {
	t.Helper()
	ctx, err := NewSoftwareContext(w, h)
	if err != nil {
		t.Fatalf("NewSoftwareContext(%d, %d) = %v", w, h, err)
	}
	return ctx
}

func fillTarget(t *testing.T, tgt Target, r, g, b, a uint8) {
	t.Helper()
	st := tgt.(*SoftwareTarget)
	pix := st.Pixels()
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
}

func TestSoftwareContextCreateTarget(t *testing.T) {
	ctx := newTestContext(t, 4, 4)

	t.Run("defaults", func(t *testing.T) {
		tgt, err := ctx.CreateTarget(8, 6, nil)
		if err != nil {
			t.Fatalf("CreateTarget() = %v", err)
		}
		defer tgt.Destroy()
		if tgt.Width() != 8 || tgt.Height() != 6 {
			t.Errorf("size = %dx%d, want 8x6", tgt.Width(), tgt.Height())
		}
		if tgt.Format() != gputypes.TextureFormatRGBA8Unorm {
			t.Errorf("format = %v, want RGBA8Unorm", tgt.Format())
		}
		if _, ok := tgt.(PixelTarget); !ok {
			t.Error("software target does not expose pixel access")
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		opts := &TargetOptions{Format: gputypes.TextureFormatBGRA8Unorm}
		if _, err := ctx.CreateTarget(8, 6, opts); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("CreateTarget(BGRA8) = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("invalid size", func(t *testing.T) {
		if _, err := ctx.CreateTarget(0, 6, nil); err == nil {
			t.Fatal("CreateTarget(0, 6) = nil, want error")
		}
	})
}

func TestSoftwareBlitCopy(t *testing.T) {
	ctx := newTestContext(t, 4, 4)
	src, _ := ctx.CreateTarget(4, 4, nil)
	dst, _ := ctx.CreateTarget(4, 4, nil)
	fillTarget(t, src, 200, 100, 50, 255)
	fillTarget(t, dst, 0, 0, 0, 255)

	if err := ctx.Blit(dst, src, nil); err != nil {
		t.Fatalf("Blit() = %v", err)
	}
	pix := dst.(*SoftwareTarget).Pixels()
	if pix[0] != 200 || pix[1] != 100 || pix[2] != 50 || pix[3] != 255 {
		t.Errorf("pixel = %v, want [200 100 50 255]", pix[:4])
	}
}

func TestSoftwareBlitOpacity(t *testing.T) {
	ctx := newTestContext(t, 4, 4)
	src, _ := ctx.CreateTarget(4, 4, nil)
	dst, _ := ctx.CreateTarget(4, 4, nil)
	fillTarget(t, src, 200, 200, 200, 255)
	fillTarget(t, dst, 0, 0, 0, 255)

	if err := ctx.Blit(dst, src, &BlitOptions{Opacity: 0.5}); err != nil {
		t.Fatalf("Blit() = %v", err)
	}
	pix := dst.(*SoftwareTarget).Pixels()
	if pix[0] != 100 {
		t.Errorf("red = %d, want 100 (half of 200 over 0)", pix[0])
	}
}

func TestSoftwareBlitScales(t *testing.T) {
	ctx := newTestContext(t, 4, 4)
	src, _ := ctx.CreateTarget(2, 2, nil)
	dst, _ := ctx.CreateTarget(4, 4, nil)
	fillTarget(t, src, 255, 0, 0, 255)
	fillTarget(t, dst, 0, 0, 0, 0)

	if err := ctx.Blit(dst, src, nil); err != nil {
		t.Fatalf("Blit() = %v", err)
	}
	pix := dst.(*SoftwareTarget).Pixels()
	for i := 0; i < len(pix); i += 4 {
		if pix[i] != 255 || pix[i+3] != 255 {
			t.Fatalf("pixel %d = %v after upscale, want solid red", i/4, pix[i:i+4])
		}
	}
}

func TestSoftwareBlitToScreen(t *testing.T) {
	ctx := newTestContext(t, 4, 4)
	src, _ := ctx.CreateTarget(4, 4, nil)
	fillTarget(t, src, 10, 20, 30, 255)

	if err := ctx.Blit(nil, src, nil); err != nil {
		t.Fatalf("Blit(nil, src) = %v", err)
	}
	pix := ctx.Screen().Pix
	if pix[0] != 10 || pix[1] != 20 || pix[2] != 30 {
		t.Errorf("screen pixel = %v, want [10 20 30]", pix[:3])
	}
}

func TestSoftwareBlitStencilGate(t *testing.T) {
	ctx := newTestContext(t, 4, 1)
	src, _ := ctx.CreateTarget(4, 1, nil)
	dst, _ := ctx.CreateTarget(4, 1, nil)
	fillTarget(t, src, 255, 255, 255, 255)
	fillTarget(t, dst, 0, 0, 0, 255)

	// Stencil covers the left half.
	ctx.stencil[0], ctx.stencil[1] = 1, 1
	ctx.SetStencilTest(true)

	tests := []struct {
		name      string
		fn        gputypes.CompareFunction
		wantLeft  uint8
		wantRight uint8
	}{
		{"equal passes inside mask", compareEqual, 255, 0},
		{"notequal passes outside mask", compareNotEqual, 0, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fillTarget(t, dst, 0, 0, 0, 255)
			ctx.SetStencilFunc(tt.fn, 1)
			if err := ctx.Blit(dst, src, &BlitOptions{Opacity: 1, StencilTest: true}); err != nil {
				t.Fatalf("Blit() = %v", err)
			}
			pix := dst.(*SoftwareTarget).Pixels()
			if pix[0] != tt.wantLeft {
				t.Errorf("left pixel = %d, want %d", pix[0], tt.wantLeft)
			}
			if pix[3*4] != tt.wantRight {
				t.Errorf("right pixel = %d, want %d", pix[3*4], tt.wantRight)
			}
		})
	}

	t.Run("gate off when stencil test disabled", func(t *testing.T) {
		ctx.SetStencilTest(false)
		fillTarget(t, dst, 0, 0, 0, 255)
		ctx.SetStencilFunc(compareEqual, 1)
		if err := ctx.Blit(dst, src, &BlitOptions{Opacity: 1, StencilTest: true}); err != nil {
			t.Fatalf("Blit() = %v", err)
		}
		pix := dst.(*SoftwareTarget).Pixels()
		if pix[3*4] != 255 {
			t.Error("disabled stencil test still gated the blit")
		}
	})
}

func TestSoftwareReadWritePixels(t *testing.T) {
	ctx := newTestContext(t, 2, 2)
	tgt, _ := ctx.CreateTarget(2, 2, nil)

	data := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	}
	if err := ctx.WritePixels(tgt, data); err != nil {
		t.Fatalf("WritePixels() = %v", err)
	}
	got, err := ctx.ReadPixels(tgt)
	if err != nil {
		t.Fatalf("ReadPixels() = %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("pixel byte %d = %d, want %d", i, got[i], data[i])
		}
	}

	if err := ctx.WritePixels(tgt, data[:4]); err == nil {
		t.Fatal("WritePixels(short) = nil, want size error")
	}
}

func TestSoftwareRenderScene(t *testing.T) {
	ctx := newTestContext(t, 2, 2)
	tgt, _ := ctx.CreateTarget(2, 2, nil)

	if err := ctx.RenderScene(tgt, nil, nil, true); !errors.Is(err, ErrNoSceneRenderer) {
		t.Fatalf("RenderScene() without renderer = %v, want ErrNoSceneRenderer", err)
	}

	var gotScene, gotCamera any
	ctx.SceneRender = func(dst *image.RGBA, scene, camera any, clear bool) error {
		gotScene, gotCamera = scene, camera
		for i := 0; i < len(dst.Pix); i += 4 {
			dst.Pix[i], dst.Pix[i+3] = 128, 255
		}
		return nil
	}
	if err := ctx.RenderScene(tgt, "scene", "cam", true); err != nil {
		t.Fatalf("RenderScene() = %v", err)
	}
	if gotScene != "scene" || gotCamera != "cam" {
		t.Errorf("renderer saw (%v, %v), want (scene, cam)", gotScene, gotCamera)
	}
	if pix := tgt.(*SoftwareTarget).Pixels(); pix[0] != 128 {
		t.Errorf("rendered pixel = %d, want 128", pix[0])
	}
}

// invertPixelsPass inverts RGB, keeping alpha. Exercises the pixel-effect
// plumbing the built-in effect passes use.
type invertPixelsPass struct {
	PassBase
}

func newInvertPixelsPass() *invertPixelsPass {
	return &invertPixelsPass{PassBase: newPassBase(true)}
}

func (p *invertPixelsPass) Type() string { return "Invert" }

func (p *invertPixelsPass) Render(ctx Context, write, read Target, _ float64, _ bool, _, _ any) error {
	return applyPixelEffect(ctx, write, read, p.RenderToScreen(), func(pix []byte, _, _ int) []byte {
		for i := 0; i < len(pix); i += 4 {
			pix[i] = 255 - pix[i]
			pix[i+1] = 255 - pix[i+1]
			pix[i+2] = 255 - pix[i+2]
		}
		return pix
	})
}

func (p *invertPixelsPass) MarshalRecord() (json.RawMessage, error) {
	return json.Marshal(p.fields("Invert"))
}

func (p *invertPixelsPass) UnmarshalRecord(data json.RawMessage) error {
	rec := p.fields("Invert")
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.applyFields(rec)
	return nil
}

// TestSoftwarePipeline runs a full scene-effect-screen chain on the CPU.
func TestSoftwarePipeline(t *testing.T) {
	ctx := newTestContext(t, 4, 4)
	ctx.SceneRender = func(dst *image.RGBA, _, _ any, _ bool) error {
		for i := 0; i < len(dst.Pix); i += 4 {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 100, 150, 200, 255
		}
		return nil
	}

	c, err := NewComposer(ctx)
	if err != nil {
		t.Fatalf("NewComposer() = %v", err)
	}
	defer c.Dispose()
	c.SetSize(4, 4)

	c.AddPass(NewRenderPass(nil, nil))
	c.AddPass(newInvertPixelsPass())
	out := NewCopyPass()
	out.SetRenderToScreen(true)
	out.SetNeedsSwap(false)
	c.AddPass(out)

	if err := c.Render(ctx, "scene", "cam", 1.0/60); err != nil {
		t.Fatalf("Render() = %v", err)
	}

	pix := ctx.Screen().Pix
	want := [4]uint8{155, 105, 55, 255}
	for c := 0; c < 4; c++ {
		if pix[c] != want[c] {
			t.Errorf("screen channel %d = %d, want %d", c, pix[c], want[c])
		}
	}
	if got := c.SwapCount(); got != 2 {
		t.Errorf("SwapCount() = %d, want 2 (render + invert)", got)
	}
}

// TestSoftwareMaskedPipeline verifies end to end that a mask bracket
// restricts an effect to the stencil-covered region.
func TestSoftwareMaskedPipeline(t *testing.T) {
	const w, h = 4, 2
	ctx := newTestContext(t, w, h)
	ctx.SceneRender = func(dst *image.RGBA, _, _ any, _ bool) error {
		for i := 0; i < len(dst.Pix); i += 4 {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 100, 100, 100, 255
		}
		return nil
	}
	// The mask covers the left half of the frame.
	ctx.MaskRender = func(dst *image.Alpha, _, _ any) error {
		for y := 0; y < h; y++ {
			for x := 0; x < w/2; x++ {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
		return nil
	}

	c, err := NewComposer(ctx)
	if err != nil {
		t.Fatalf("NewComposer() = %v", err)
	}
	defer c.Dispose()
	c.SetSize(w, h)

	c.AddPass(NewRenderPass(nil, nil))
	c.AddPass(NewMaskPass(nil, nil))
	c.AddPass(newInvertPixelsPass())
	c.AddPass(NewClearMaskPass())
	out := NewCopyPass()
	out.SetRenderToScreen(true)
	out.SetNeedsSwap(false)
	c.AddPass(out)

	if err := c.Render(ctx, "scene", "cam", 1.0/60); err != nil {
		t.Fatalf("Render() = %v", err)
	}

	pix := ctx.Screen().Pix
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			got := pix[y*ctx.Screen().Stride+x*4]
			want := uint8(100)
			if x < w/2 {
				want = 155 // inverted inside the mask
			}
			if got != want {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

// TestSoftwareSceneRegionOnScreen verifies that after sizing the composer
// to the scene dimensions, content drawn away from the origin survives the
// chain onto the screen. With construction-default 1x1 buffers the scene
// raster would be cropped and the screen would show only the background.
func TestSoftwareSceneRegionOnScreen(t *testing.T) {
	const w, h = 8, 8
	ctx := newTestContext(t, w, h)
	ctx.SceneRender = func(dst *image.RGBA, _, _ any, _ bool) error {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := uint8(20)
				if x >= 3 && x < 5 && y >= 3 && y < 5 {
					v = 230
				}
				o := y*dst.Stride + x*4
				dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2], dst.Pix[o+3] = v, v, v, 255
			}
		}
		return nil
	}

	c, err := NewComposer(ctx)
	if err != nil {
		t.Fatalf("NewComposer() = %v", err)
	}
	defer c.Dispose()
	c.SetSize(w, h)
	if bw, bh := c.WriteBuffer().Width(), c.WriteBuffer().Height(); bw != w || bh != h {
		t.Fatalf("buffer size = %dx%d, want %dx%d", bw, bh, w, h)
	}

	c.AddPass(NewRenderPass(nil, nil))
	out := NewCopyPass()
	out.SetRenderToScreen(true)
	out.SetNeedsSwap(false)
	c.AddPass(out)

	if err := c.Render(ctx, "scene", "cam", 1.0/60); err != nil {
		t.Fatalf("Render() = %v", err)
	}

	pix := ctx.Screen().Pix
	stride := ctx.Screen().Stride
	if got := pix[4*stride+4*4]; got != 230 {
		t.Errorf("center pixel = %d, want 230", got)
	}
	if got := pix[0]; got != 20 {
		t.Errorf("corner pixel = %d, want 20", got)
	}
}

// TestSoftwareInverseMaskedPipeline verifies that an inverted mask bracket
// keeps the effect everywhere EXCEPT the stencil-covered region.
func TestSoftwareInverseMaskedPipeline(t *testing.T) {
	const w, h = 4, 2
	ctx := newTestContext(t, w, h)
	ctx.SceneRender = func(dst *image.RGBA, _, _ any, _ bool) error {
		for i := 0; i < len(dst.Pix); i += 4 {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 100, 100, 100, 255
		}
		return nil
	}
	// The mask covers the left half of the frame.
	ctx.MaskRender = func(dst *image.Alpha, _, _ any) error {
		for y := 0; y < h; y++ {
			for x := 0; x < w/2; x++ {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
		return nil
	}

	c, err := NewComposer(ctx)
	if err != nil {
		t.Fatalf("NewComposer() = %v", err)
	}
	defer c.Dispose()
	c.SetSize(w, h)

	mask := NewMaskPass(nil, nil)
	mask.Inverse = true

	c.AddPass(NewRenderPass(nil, nil))
	c.AddPass(mask)
	c.AddPass(newInvertPixelsPass())
	c.AddPass(NewClearMaskPass())
	out := NewCopyPass()
	out.SetRenderToScreen(true)
	out.SetNeedsSwap(false)
	c.AddPass(out)

	if err := c.Render(ctx, "scene", "cam", 1.0/60); err != nil {
		t.Fatalf("Render() = %v", err)
	}

	pix := ctx.Screen().Pix
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			got := pix[y*ctx.Screen().Stride+x*4]
			want := uint8(155) // inverted outside the coverage
			if x < w/2 {
				want = 100 // coverage is excluded from the effect
			}
			if got != want {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestSoftwareContextSetSize(t *testing.T) {
	ctx := newTestContext(t, 4, 4)
	if err := ctx.SetSize(8, 2); err != nil {
		t.Fatalf("SetSize() = %v", err)
	}
	if b := ctx.Screen().Bounds(); b.Dx() != 8 || b.Dy() != 2 {
		t.Errorf("screen = %dx%d, want 8x2", b.Dx(), b.Dy())
	}
	if len(ctx.stencil) != 16 {
		t.Errorf("stencil plane length = %d, want 16", len(ctx.stencil))
	}
	if err := ctx.SetSize(0, 2); err == nil {
		t.Fatal("SetSize(0, 2) = nil, want error")
	}
}
