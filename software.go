package postfx

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"
)

// Software backend errors.
var (
	// ErrUnsupportedFormat is returned when a target format other than
	// RGBA8 is requested from the software backend.
	ErrUnsupportedFormat = errors.New("postfx: software backend supports RGBA8 targets only")

	// ErrNoSceneRenderer is returned by RenderScene when the software
	// context has no SceneRenderFunc installed.
	ErrNoSceneRenderer = errors.New("postfx: software context has no scene renderer")

	// ErrNoMaskRenderer is returned by RenderMask when the software
	// context has no MaskRenderFunc installed.
	ErrNoMaskRenderer = errors.New("postfx: software context has no mask renderer")
)

// SceneRenderFunc rasterizes the host scene as seen by camera into dst.
// When clear is true the destination has already been zeroed.
type SceneRenderFunc func(dst *image.RGBA, scene, camera any, clear bool) error

// MaskRenderFunc rasterizes the coverage of the host scene into dst.
// Covered pixels must have alpha >= 128; everything else is left at zero.
type MaskRenderFunc func(dst *image.Alpha, scene, camera any) error

// SoftwareContext is a pure-CPU rendering context backed by image.RGBA
// planes. It implements Context, PixelReader, PixelWriter and MaskContext,
// so every pass variant in this package runs on it, including stencil
// mask brackets.
//
// Scene content comes from the host through SceneRenderFunc and
// MaskRenderFunc; without them the context still runs pure pixel-effect
// chains (copy, bloom, FXAA and so on) over uploaded pixel data.
type SoftwareContext struct {
	// SceneRender draws host scenes for RenderPass. Optional.
	SceneRender SceneRenderFunc

	// MaskRender draws host scene coverage for MaskPass. Optional.
	MaskRender MaskRenderFunc

	screen  *image.RGBA
	stencil []uint8
	width   int
	height  int

	stencilFn   gputypes.CompareFunction
	stencilRef  uint32
	stencilTest bool
}

// NewSoftwareContext creates a CPU context with a width x height screen
// framebuffer and a matching stencil plane.
func NewSoftwareContext(width, height int) (*SoftwareContext, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("postfx: invalid software context size %dx%d", width, height)
	}
	return &SoftwareContext{
		screen:  image.NewRGBA(image.Rect(0, 0, width, height)),
		stencil: make([]uint8, width*height),
		width:   width,
		height:  height,
	}, nil
}

// Screen returns the context's screen framebuffer. Blits with a nil
// destination land here.
func (s *SoftwareContext) Screen() *image.RGBA { return s.screen }

// SetSize resizes the screen framebuffer and the stencil plane. Contents
// are discarded. Composer buffers are resized separately through
// Composer.SetSize; keep the two in sync.
func (s *SoftwareContext) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("postfx: invalid software context size %dx%d", width, height)
	}
	s.screen = image.NewRGBA(image.Rect(0, 0, width, height))
	s.stencil = make([]uint8, width*height)
	s.width = width
	s.height = height
	return nil
}

// SupportsBlit reports blit capability; always true on the CPU.
func (s *SoftwareContext) SupportsBlit() bool { return true }

// CreateTarget allocates an RGBA8 software target.
func (s *SoftwareContext) CreateTarget(width, height int, opts *TargetOptions) (Target, error) {
	var o TargetOptions
	if opts != nil {
		o = *opts
	}
	o = o.resolve()
	if o.Format != gputypes.TextureFormatRGBA8Unorm {
		return nil, ErrUnsupportedFormat
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("postfx: invalid target size %dx%d", width, height)
	}
	return &SoftwareTarget{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		filter: o.Filter,
	}, nil
}

// SetStencilFunc implements Context.
func (s *SoftwareContext) SetStencilFunc(fn gputypes.CompareFunction, ref uint32) {
	s.stencilFn = fn
	s.stencilRef = ref
}

// SetStencilTest implements MaskContext.
func (s *SoftwareContext) SetStencilTest(enabled bool) { s.stencilTest = enabled }

// ClearStencil implements MaskContext.
func (s *SoftwareContext) ClearStencil(ref uint32) {
	for i := range s.stencil {
		s.stencil[i] = uint8(ref)
	}
}

// RenderMask implements MaskContext: the host coverage is rasterized into
// an alpha plane and every covered pixel writes ref into the stencil.
// Uncovered stencil values are left untouched.
func (s *SoftwareContext) RenderMask(scene, camera any, ref uint32) error {
	if s.MaskRender == nil {
		return ErrNoMaskRenderer
	}
	coverage := image.NewAlpha(image.Rect(0, 0, s.width, s.height))
	if err := s.MaskRender(coverage, scene, camera); err != nil {
		return fmt.Errorf("postfx: mask render: %w", err)
	}
	for y := 0; y < s.height; y++ {
		row := coverage.Pix[y*coverage.Stride:]
		for x := 0; x < s.width; x++ {
			if row[x] >= 128 {
				s.stencil[y*s.width+x] = uint8(ref)
			}
		}
	}
	return nil
}

// RenderScene implements Context by dispatching to the installed
// SceneRenderFunc.
func (s *SoftwareContext) RenderScene(dst Target, scene, camera any, clear bool) error {
	if s.SceneRender == nil {
		return ErrNoSceneRenderer
	}
	img, err := s.resolveImage(dst)
	if err != nil {
		return err
	}
	if clear {
		for i := range img.Pix {
			img.Pix[i] = 0
		}
	}
	if err := s.SceneRender(img, scene, camera, clear); err != nil {
		return fmt.Errorf("postfx: scene render: %w", err)
	}
	return nil
}

// Blit copies src onto dst (nil dst = screen), scaling when the sizes
// differ. Opacity below 1 linearly mixes source over destination. With
// StencilTest set the copy is gated per pixel through the current stencil
// comparison; the stencil plane is shared across all targets, indexed by
// pixel position.
func (s *SoftwareContext) Blit(dst Target, src Target, opts *BlitOptions) error {
	dstImg, err := s.resolveImage(dst)
	if err != nil {
		return err
	}
	srcImg, filter, err := s.sourceImage(src)
	if err != nil {
		return err
	}

	db, sb := dstImg.Bounds(), srcImg.Bounds()
	if db.Dx() != sb.Dx() || db.Dy() != sb.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, db.Dx(), db.Dy()))
		scaler := xdraw.Scaler(xdraw.NearestNeighbor)
		if filter == gputypes.FilterModeLinear || filter == 0 {
			scaler = xdraw.ApproxBiLinear
		}
		scaler.Scale(scaled, scaled.Bounds(), srcImg, sb, xdraw.Src, nil)
		srcImg = scaled
	}

	opacity := 1.0
	stencilTest := false
	if opts != nil {
		opacity = opts.Opacity
		stencilTest = opts.StencilTest && s.stencilTest
	}

	w, h := db.Dx(), db.Dy()
	for y := 0; y < h; y++ {
		srow := srcImg.Pix[y*srcImg.Stride:]
		drow := dstImg.Pix[y*dstImg.Stride:]
		for x := 0; x < w; x++ {
			if stencilTest && !s.stencilPasses(x, y) {
				continue
			}
			si := x * 4
			if opacity >= 1 {
				copy(drow[si:si+4], srow[si:si+4])
				continue
			}
			for c := 0; c < 4; c++ {
				sv := float64(srow[si+c])
				dv := float64(drow[si+c])
				drow[si+c] = uint8(sv*opacity + dv*(1-opacity) + 0.5)
			}
		}
	}
	return nil
}

// ReadPixels implements PixelReader.
func (s *SoftwareContext) ReadPixels(t Target) ([]byte, error) {
	st, ok := t.(*SoftwareTarget)
	if !ok {
		return nil, ErrNoPixelAccess
	}
	w, h := st.Width(), st.Height()
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		copy(out[y*w*4:(y+1)*w*4], st.img.Pix[y*st.img.Stride:y*st.img.Stride+w*4])
	}
	return out, nil
}

// WritePixels implements PixelWriter.
func (s *SoftwareContext) WritePixels(t Target, pix []byte) error {
	st, ok := t.(*SoftwareTarget)
	if !ok {
		return ErrNoPixelUpload
	}
	w, h := st.Width(), st.Height()
	if len(pix) != w*h*4 {
		return fmt.Errorf("postfx: pixel upload size %d does not match %dx%d target", len(pix), w, h)
	}
	for y := 0; y < h; y++ {
		copy(st.img.Pix[y*st.img.Stride:y*st.img.Stride+w*4], pix[y*w*4:(y+1)*w*4])
	}
	return nil
}

// stencilPasses evaluates the current stencil comparison at pixel (x, y).
// Pixels outside the stencil plane pass.
func (s *SoftwareContext) stencilPasses(x, y int) bool {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return true
	}
	v := uint32(s.stencil[y*s.width+x])
	switch s.stencilFn {
	case gputypes.CompareFunctionEqual:
		return v == s.stencilRef
	case gputypes.CompareFunctionNotEqual:
		return v != s.stencilRef
	default:
		return true
	}
}

// resolveImage maps a Target (nil = screen) to its backing image.
func (s *SoftwareContext) resolveImage(t Target) (*image.RGBA, error) {
	if t == nil {
		return s.screen, nil
	}
	st, ok := t.(*SoftwareTarget)
	if !ok {
		return nil, fmt.Errorf("postfx: target %T is not a software target", t)
	}
	return st.img, nil
}

// sourceImage maps a blit source to its backing image and filter mode.
func (s *SoftwareContext) sourceImage(t Target) (*image.RGBA, gputypes.FilterMode, error) {
	if t == nil {
		return nil, 0, errors.New("postfx: blit source must not be nil")
	}
	st, ok := t.(*SoftwareTarget)
	if !ok {
		return nil, 0, fmt.Errorf("postfx: target %T is not a software target", t)
	}
	return st.img, st.filter, nil
}

// SoftwareTarget is a CPU color target backed by an image.RGBA.
// It implements PixelTarget, so effect passes access its pixels directly.
type SoftwareTarget struct {
	img    *image.RGBA
	filter gputypes.FilterMode
}

// Width implements Target.
func (t *SoftwareTarget) Width() int { return t.img.Bounds().Dx() }

// Height implements Target.
func (t *SoftwareTarget) Height() int { return t.img.Bounds().Dy() }

// Format implements Target; software targets are always RGBA8.
func (t *SoftwareTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Resize implements Target. Contents are discarded.
func (t *SoftwareTarget) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("postfx: invalid target size %dx%d", width, height)
	}
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

// Destroy implements Target. The backing image is released to the GC.
func (t *SoftwareTarget) Destroy() { t.img = nil }

// Image returns the backing image for direct host access.
func (t *SoftwareTarget) Image() *image.RGBA { return t.img }

// Pixels implements PixelTarget.
func (t *SoftwareTarget) Pixels() []byte { return t.img.Pix }

// Stride implements PixelTarget.
func (t *SoftwareTarget) Stride() int { return t.img.Stride }
