package wgpu

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"
)

// Context errors.
var (
	// ErrNilDevice is returned when constructing a context without a
	// device or queue.
	ErrNilDevice = errors.New("wgpu: device and queue are required")

	// ErrUnsupportedFormat is returned for target formats the backend
	// cannot stage through its RGBA transfer path.
	ErrUnsupportedFormat = errors.New("wgpu: only RGBA8 targets are supported")

	// ErrNotGPUTarget is returned when a foreign target implementation is
	// passed into a GPU context operation.
	ErrNotGPUTarget = errors.New("wgpu: target does not belong to this backend")

	// ErrNoSceneRenderer is returned by RenderScene when no SceneRenderFunc
	// is installed.
	ErrNoSceneRenderer = errors.New("wgpu: context has no scene renderer")

	// ErrNoMaskRenderer is returned by RenderMask when no MaskRenderFunc
	// is installed.
	ErrNoMaskRenderer = errors.New("wgpu: context has no mask renderer")
)

// gpuWaitTimeout bounds every fence wait in the staged transfer path.
const gpuWaitTimeout = 5 * time.Second

// copyPitchAlignment is the BytesPerRow alignment WebGPU and DX12 require
// for texture-to-buffer copies.
const copyPitchAlignment = 256

// SceneRenderFunc records the host's render passes for scene content into
// the given target view. When clear is true the host should load the
// attachment with a clear instead of preserving its contents.
type SceneRenderFunc func(view hal.TextureView, width, height int, scene, camera any, clear bool) error

// Context is a postfx rendering context backed by gogpu/wgpu. It
// implements postfx.Context, postfx.PixelReader, postfx.PixelWriter and
// postfx.MaskContext.
//
// Pixel-moving operations stage through CPU memory: readbacks copy the
// texture into a mapped staging buffer, uploads go through the queue.
// The stencil plane used by mask brackets lives on the CPU, where the
// staged blits apply it per pixel.
type Context struct {
	device hal.Device
	queue  hal.Queue

	// SceneRender records host scene passes for RenderPass. Optional.
	SceneRender SceneRenderFunc

	// MaskRender rasterizes host scene coverage for MaskPass. Optional.
	MaskRender postfx.MaskRenderFunc

	screen *Target

	width  int
	height int

	stencil     []uint8
	stencilFn   gputypes.CompareFunction
	stencilRef  uint32
	stencilTest bool

	targetSeq int
}

// New creates a GPU context with a width x height screen target. Blits
// with a nil destination land in the screen target; hosts present it with
// a PresentPipeline or read it back through ReadPixels.
func New(device hal.Device, queue hal.Queue, width, height int) (*Context, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: invalid context size %dx%d", width, height)
	}

	c := &Context{
		device:  device,
		queue:   queue,
		width:   width,
		height:  height,
		stencil: make([]uint8, width*height),
	}
	tex, view, err := c.createTexture("postfx_screen", width, height, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, err
	}
	c.screen = &Target{
		ctx:    c,
		label:  "postfx_screen",
		tex:    tex,
		view:   view,
		width:  width,
		height: height,
		format: gputypes.TextureFormatRGBA8Unorm,
	}
	postfx.Logger().Info("wgpu: context created", "width", width, "height", height)
	return c, nil
}

// Screen returns the screen target (the destination of nil-target blits).
func (c *Context) Screen() *Target { return c.screen }

// SetSize resizes the screen target and the stencil plane. Composer
// buffers are resized separately through Composer.SetSize.
func (c *Context) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wgpu: invalid context size %dx%d", width, height)
	}
	if err := c.screen.Resize(width, height); err != nil {
		return err
	}
	c.width, c.height = width, height
	c.stencil = make([]uint8, width*height)
	return nil
}

// Destroy releases the screen target.
func (c *Context) Destroy() {
	if c.screen != nil {
		c.screen.Destroy()
		c.screen = nil
	}
}

// SupportsBlit implements postfx.BlitSupporter.
func (c *Context) SupportsBlit() bool { return true }

// CreateTarget implements postfx.Context.
func (c *Context) CreateTarget(width, height int, opts *postfx.TargetOptions) (postfx.Target, error) {
	var o postfx.TargetOptions
	if opts != nil {
		o = *opts
	}
	if o.Format != gputypes.TextureFormatUndefined && o.Format != gputypes.TextureFormatRGBA8Unorm {
		return nil, ErrUnsupportedFormat
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: invalid target size %dx%d", width, height)
	}

	c.targetSeq++
	label := fmt.Sprintf("postfx_target_%d", c.targetSeq)
	tex, view, err := c.createTexture(label, width, height, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, err
	}
	return &Target{
		ctx:    c,
		label:  label,
		tex:    tex,
		view:   view,
		width:  width,
		height: height,
		format: gputypes.TextureFormatRGBA8Unorm,
	}, nil
}

// SetStencilFunc implements postfx.Context.
func (c *Context) SetStencilFunc(fn gputypes.CompareFunction, ref uint32) {
	c.stencilFn = fn
	c.stencilRef = ref
}

// SetStencilTest implements postfx.MaskContext.
func (c *Context) SetStencilTest(enabled bool) { c.stencilTest = enabled }

// ClearStencil implements postfx.MaskContext.
func (c *Context) ClearStencil(ref uint32) {
	for i := range c.stencil {
		c.stencil[i] = uint8(ref)
	}
}

// RenderMask implements postfx.MaskContext. Coverage is rasterized by the
// host into an alpha plane; covered pixels write ref into the stencil.
func (c *Context) RenderMask(scene, camera any, ref uint32) error {
	if c.MaskRender == nil {
		return ErrNoMaskRenderer
	}
	coverage := image.NewAlpha(image.Rect(0, 0, c.width, c.height))
	if err := c.MaskRender(coverage, scene, camera); err != nil {
		return fmt.Errorf("wgpu: mask render: %w", err)
	}
	for y := 0; y < c.height; y++ {
		row := coverage.Pix[y*coverage.Stride:]
		for x := 0; x < c.width; x++ {
			if row[x] >= 128 {
				c.stencil[y*c.width+x] = uint8(ref)
			}
		}
	}
	return nil
}

// RenderScene implements postfx.Context by handing the target view to the
// host's SceneRenderFunc. The host owns the render pass, including the
// clear load op when clear is set.
func (c *Context) RenderScene(dst postfx.Target, scene, camera any, clear bool) error {
	if c.SceneRender == nil {
		return ErrNoSceneRenderer
	}
	t, err := c.resolveTarget(dst)
	if err != nil {
		return err
	}
	if err := c.SceneRender(t.view, t.width, t.height, scene, camera, clear); err != nil {
		return fmt.Errorf("wgpu: scene render: %w", err)
	}
	return nil
}

// Blit implements postfx.Context through a staged transfer: the source is
// read back, scaled and composited on the CPU, and uploaded into the
// destination.
func (c *Context) Blit(dst postfx.Target, src postfx.Target, opts *postfx.BlitOptions) error {
	if src == nil {
		return errors.New("wgpu: blit source must not be nil")
	}
	s, err := c.resolveTarget(src)
	if err != nil {
		return err
	}
	d, err := c.resolveTarget(dst)
	if err != nil {
		return err
	}

	pix, err := c.readTexture(s)
	if err != nil {
		return fmt.Errorf("wgpu: blit source readback: %w", err)
	}
	if s.width != d.width || s.height != d.height {
		pix = scalePlane(pix, s.width, s.height, d.width, d.height)
	}

	opacity := 1.0
	gated := false
	if opts != nil {
		opacity = opts.Opacity
		gated = opts.StencilTest && c.stencilTest
	}

	if opacity >= 1 && !gated {
		return c.writeTexture(d, pix)
	}

	// Partial writes need the destination contents to mix against.
	base, err := c.readTexture(d)
	if err != nil {
		return fmt.Errorf("wgpu: blit destination readback: %w", err)
	}
	compositePlane(base, pix, d.width, d.height, opacity, gated, c.stencilGate())
	return c.writeTexture(d, base)
}

// ReadPixels implements postfx.PixelReader.
func (c *Context) ReadPixels(t postfx.Target) ([]byte, error) {
	gt, err := c.resolveTarget(t)
	if err != nil {
		return nil, err
	}
	pix, err := c.readTexture(gt)
	if err != nil {
		return nil, fmt.Errorf("wgpu: read pixels: %w", err)
	}
	return pix, nil
}

// WritePixels implements postfx.PixelWriter.
func (c *Context) WritePixels(t postfx.Target, pix []byte) error {
	gt, err := c.resolveTarget(t)
	if err != nil {
		return err
	}
	if len(pix) != gt.width*gt.height*4 {
		return fmt.Errorf("wgpu: pixel upload size %d does not match %dx%d target", len(pix), gt.width, gt.height)
	}
	return c.writeTexture(gt, pix)
}

// resolveTarget maps a postfx target (nil = screen) to the backend type.
func (c *Context) resolveTarget(t postfx.Target) (*Target, error) {
	if t == nil {
		return c.screen, nil
	}
	gt, ok := t.(*Target)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotGPUTarget, t)
	}
	return gt, nil
}

// stencilGate returns the per-pixel stencil predicate for the current
// comparison state. Pixels outside the stencil plane pass.
func (c *Context) stencilGate() func(x, y int) bool {
	fn, ref := c.stencilFn, c.stencilRef
	w, h, plane := c.width, c.height, c.stencil
	return func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return true
		}
		v := uint32(plane[y*w+x])
		switch fn {
		case gputypes.CompareFunctionEqual:
			return v == ref
		case gputypes.CompareFunctionNotEqual:
			return v != ref
		default:
			return true
		}
	}
}

// readTexture copies a target's contents into a tightly packed RGBA plane
// through a mapped staging buffer.
func (c *Context) readTexture(t *Target) ([]byte, error) {
	w := uint32(t.width)
	h := uint32(t.height)

	bytesPerRow := w * 4
	alignedBytesPerRow := alignRowBytes(bytesPerRow)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "postfx_staging_read",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "postfx_readback",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("postfx_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	// Render passes leave the texture in attachment layout; the copy
	// needs transfer-source. Transition in, copy, transition back.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := c.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil {
		return nil, fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return nil, errors.New("timed out waiting for GPU")
	}

	readback := make([]byte, stagingSize)
	if err := c.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	if alignedBytesPerRow == bytesPerRow {
		return readback[:uint64(bytesPerRow)*uint64(h)], nil
	}
	// Strip the per-row alignment padding.
	tight := make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := uint32(0); row < h; row++ {
		srcOff := uint64(row) * uint64(alignedBytesPerRow)
		dstOff := uint64(row) * uint64(bytesPerRow)
		copy(tight[dstOff:dstOff+uint64(bytesPerRow)], readback[srcOff:srcOff+uint64(bytesPerRow)])
	}
	return tight, nil
}

// writeTexture uploads a tightly packed RGBA plane into a target.
func (c *Context) writeTexture(t *Target, pix []byte) error {
	w := uint32(t.width)
	h := uint32(t.height)
	c.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// alignRowBytes rounds a row pitch up to the 256-byte alignment WebGPU
// requires for texture-to-buffer copies.
func alignRowBytes(bytesPerRow uint32) uint32 {
	return (bytesPerRow + copyPitchAlignment - 1) &^ uint32(copyPitchAlignment-1)
}

// scalePlane resamples a tightly packed RGBA plane to new dimensions with
// an approximate bilinear filter.
func scalePlane(pix []byte, sw, sh, dw, dh int) []byte {
	src := &image.RGBA{Pix: pix, Stride: sw * 4, Rect: image.Rect(0, 0, sw, sh)}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst.Pix
}

// compositePlane mixes src over dst in place with the given opacity,
// skipping pixels rejected by the stencil gate when gated is set. Both
// planes are tightly packed w*h RGBA.
func compositePlane(dst, src []byte, w, h int, opacity float64, gated bool, gate func(x, y int) bool) {
	for y := 0; y < h; y++ {
		row := y * w * 4
		for x := 0; x < w; x++ {
			if gated && !gate(x, y) {
				continue
			}
			o := row + x*4
			if opacity >= 1 {
				copy(dst[o:o+4], src[o:o+4])
				continue
			}
			for ch := 0; ch < 4; ch++ {
				sv := float64(src[o+ch])
				dv := float64(dst[o+ch])
				dst[o+ch] = uint8(sv*opacity + dv*(1-opacity) + 0.5)
			}
		}
	}
}
