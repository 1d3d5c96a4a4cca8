package postfx

import "testing"

// runEffectPass executes a pass over a tightly packed RGBA plane and
// returns the write target's contents.
func runEffectPass(t *testing.T, p Pass, src []byte, w, h int) []byte {
	t.Helper()
	ctx := newTestContext(t, w, h)
	read, err := ctx.CreateTarget(w, h, nil)
	if err != nil {
		t.Fatalf("CreateTarget() = %v", err)
	}
	write, err := ctx.CreateTarget(w, h, nil)
	if err != nil {
		t.Fatalf("CreateTarget() = %v", err)
	}
	if err := ctx.WritePixels(read, src); err != nil {
		t.Fatalf("WritePixels() = %v", err)
	}
	p.SetSize(w, h)
	if err := p.Render(ctx, write, read, 1.0/60, false, nil, nil); err != nil {
		t.Fatalf("%s.Render() = %v", p.Type(), err)
	}
	out, err := ctx.ReadPixels(write)
	if err != nil {
		t.Fatalf("ReadPixels() = %v", err)
	}
	return out
}

// grayPlane builds a w*h plane of one opaque gray value.
func grayPlane(w, h int, v uint8) []byte {
	pix := make([]byte, w*h*4)
	for o := 0; o < len(pix); o += 4 {
		pix[o], pix[o+1], pix[o+2], pix[o+3] = v, v, v, 255
	}
	return pix
}

func TestCopyPassToScreen(t *testing.T) {
	const w, h = 4, 4
	ctx := newTestContext(t, w, h)
	read, _ := ctx.CreateTarget(w, h, nil)
	write, _ := ctx.CreateTarget(w, h, nil)
	fillTarget(t, read, 40, 50, 60, 255)

	p := NewCopyPass()
	p.SetRenderToScreen(true)
	if err := p.Render(ctx, write, read, 0, false, nil, nil); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if pix := ctx.Screen().Pix; pix[0] != 40 || pix[1] != 50 || pix[2] != 60 {
		t.Errorf("screen pixel = %v, want [40 50 60]", pix[:3])
	}
	// The off-screen write target must stay untouched by a screen copy.
	if pix := write.(*SoftwareTarget).Pixels(); pix[0] != 0 {
		t.Errorf("write target pixel = %d, want 0", pix[0])
	}
}

func TestUnrealBloomBrightensAroundHighlight(t *testing.T) {
	const w, h = 16, 16
	src := grayPlane(w, h, 10)
	for y := 7; y <= 8; y++ {
		for x := 7; x <= 8; x++ {
			o := (y*w + x) * 4
			src[o], src[o+1], src[o+2] = 255, 255, 255
		}
	}

	p := NewUnrealBloomPass()
	p.Threshold = 0.7
	out := runEffectPass(t, p, src, w, h)

	neighbor := (7*w + 5) * 4
	if out[neighbor] <= 10 {
		t.Errorf("pixel near highlight = %d, want > 10 (bloom spill)", out[neighbor])
	}
	center := (7*w + 7) * 4
	if out[center] < 200 {
		t.Errorf("highlight center = %d, want >= 200", out[center])
	}
}

func TestUnrealBloomIgnoresDarkImage(t *testing.T) {
	const w, h = 8, 8
	src := grayPlane(w, h, 30)

	p := NewUnrealBloomPass()
	p.Threshold = 0.5
	out := runEffectPass(t, p, src, w, h)

	for o := 0; o < len(out); o += 4 {
		if out[o] != 30 {
			t.Fatalf("pixel %d = %d, want 30 (nothing above threshold)", o/4, out[o])
		}
	}
}

func TestFXAASmoothsEdge(t *testing.T) {
	const w, h = 8, 8
	src := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := (y*w + x) * 4
			v := uint8(0)
			if x >= w/2 {
				v = 255
			}
			src[o], src[o+1], src[o+2], src[o+3] = v, v, v, 255
		}
	}

	out := runEffectPass(t, NewFXAAPass(), src, w, h)

	// The dark pixel at the edge blends toward its bright neighbor.
	edge := (4*w + 3) * 4
	if out[edge] == 0 || out[edge] == 255 {
		t.Errorf("edge pixel = %d, want a blended value", out[edge])
	}
	// Pixels away from the edge are untouched.
	flat := (4*w + 1) * 4
	if out[flat] != 0 {
		t.Errorf("flat pixel = %d, want 0", out[flat])
	}
}

func TestFXAAKeepsFlatImage(t *testing.T) {
	const w, h = 6, 6
	src := grayPlane(w, h, 128)
	out := runEffectPass(t, NewFXAAPass(), src, w, h)
	for o := 0; o < len(out); o += 4 {
		if out[o] != 128 {
			t.Fatalf("pixel %d = %d, want 128", o/4, out[o])
		}
	}
}

func TestFXAAResolution(t *testing.T) {
	p := NewFXAAPass()
	if iw, ih := p.Resolution(); iw != 0 || ih != 0 {
		t.Errorf("Resolution() before SetSize = (%v, %v), want zeros", iw, ih)
	}
	p.SetSize(800, 600)
	iw, ih := p.Resolution()
	if iw != 1.0/800 || ih != 1.0/600 {
		t.Errorf("Resolution() = (%v, %v), want (1/800, 1/600)", iw, ih)
	}
}

func TestSSAODarkensValley(t *testing.T) {
	const w, h = 16, 16
	src := grayPlane(w, h, 200)
	center := (8*w + 8) * 4
	src[center], src[center+1], src[center+2] = 50, 50, 50

	out := runEffectPass(t, NewSSAOPass(), src, w, h)

	if out[center] >= 50 {
		t.Errorf("valley pixel = %d, want < 50 (occluded)", out[center])
	}
	corner := 0
	if out[corner] != 200 {
		t.Errorf("corner pixel = %d, want 200 (no occlusion in flat region)", out[corner])
	}
}

func TestSSAOAOOnly(t *testing.T) {
	const w, h = 8, 8
	p := NewSSAOPass()
	p.AOOnly = true
	out := runEffectPass(t, p, grayPlane(w, h, 120), w, h)

	// Flat regions carry no occlusion: the AO term renders white.
	for o := 0; o < len(out); o += 4 {
		if out[o] != 255 {
			t.Fatalf("AO pixel %d = %d, want 255", o/4, out[o])
		}
	}
}

func TestBokehBlursDefocused(t *testing.T) {
	const w, h = 16, 16
	src := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := (y*w + x) * 4
			v := uint8(128) // luminance ~0.5, in focus
			if x >= w/2 {
				v = 255 // far from focus
			}
			src[o], src[o+1], src[o+2], src[o+3] = v, v, v, 255
		}
	}

	p := NewBokehPass()
	p.MaxBlur = 0.25 // radius 4 at this width
	out := runEffectPass(t, p, src, w, h)

	// The defocused pixel at the boundary bleeds toward the gray side.
	boundary := (8*w + 8) * 4
	if out[boundary] >= 255 {
		t.Errorf("defocused boundary pixel = %d, want < 255", out[boundary])
	}
	// In-focus pixels away from the boundary stay sharp.
	focused := (8*w + 2) * 4
	if d := int(out[focused]) - 128; d < -2 || d > 2 {
		t.Errorf("focused pixel = %d, want ~128", out[focused])
	}
}

func TestBokehPassThroughBelowMinRadius(t *testing.T) {
	const w, h = 8, 8
	src := grayPlane(w, h, 77)
	out := runEffectPass(t, NewBokehPass(), src, w, h) // default MaxBlur rounds to radius 0
	for o := 0; o < len(out); o += 4 {
		if out[o] != 77 {
			t.Fatalf("pixel %d = %d, want 77", o/4, out[o])
		}
	}
}
