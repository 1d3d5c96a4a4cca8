package postfx

import (
	"errors"
	"fmt"
)

// Composer errors.
var (
	// ErrComposerDisposed is returned when rendering after Dispose.
	ErrComposerDisposed = errors.New("postfx: composer has been disposed")

	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("postfx: context is nil")
)

// maskStencilRef is the stencil reference value written by mask passes and
// compared against during the mask-bracket copy-back.
const maskStencilRef = 1

// Composer owns an ordered chain of post-processing passes and the two
// alternating off-screen color buffers they ping-pong between.
//
// The pass list order is semantically significant: it is the execution
// order. The two buffers always match the composer's current size, and
// writeBuffer/readBuffer always reference the two distinct buffers.
//
// Composer is NOT safe for concurrent use (see package documentation).
// Size changes must be externally serialized with in-flight Render calls.
type Composer struct {
	uuid   string
	passes []Pass

	width  int
	height int

	bufferA Target
	bufferB Target

	writeBuffer Target
	readBuffer  Target

	// copyPass restores the read buffer's image into the write buffer
	// through the stencil test while a mask bracket is open. It is
	// internal and never appears in the pass list or the serialized form.
	copyPass *CopyPass

	// swaps counts buffer exchanges since construction, for diagnostics.
	swaps uint64
}

// NewComposer creates a composer with two 1x1 off-screen buffers (linear
// filtering, RGBA8, no depth/stencil on the targets). Call SetSize before
// rendering at a useful resolution.
//
// If the context reports that it cannot blit (see BlitSupporter), a warning
// is logged and construction still succeeds: every capability except the
// mask-bracket copy-back keeps working.
func NewComposer(ctx Context) (*Composer, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	a, err := ctx.CreateTarget(1, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("postfx: create buffer A: %w", err)
	}
	b, err := ctx.CreateTarget(1, 1, nil)
	if err != nil {
		a.Destroy()
		return nil, fmt.Errorf("postfx: create buffer B: %w", err)
	}

	if bs, ok := ctx.(BlitSupporter); ok && !bs.SupportsBlit() {
		Logger().Warn("postfx: context does not support blits; mask copy-back is unavailable")
	}

	c := &Composer{
		uuid:        NewUUID(),
		width:       1,
		height:      1,
		bufferA:     a,
		bufferB:     b,
		writeBuffer: a,
		readBuffer:  b,
		copyPass:    NewCopyPass(),
	}
	Logger().Info("postfx: composer created", "uuid", c.uuid)
	return c, nil
}

// UUID returns the composer's identity.
func (c *Composer) UUID() string { return c.uuid }

// Size returns the current buffer dimensions.
func (c *Composer) Size() (width, height int) { return c.width, c.height }

// WriteBuffer returns the target the next pass will write into.
func (c *Composer) WriteBuffer() Target { return c.writeBuffer }

// ReadBuffer returns the target the next pass will read from.
func (c *Composer) ReadBuffer() Target { return c.readBuffer }

// SwapCount returns the number of buffer exchanges performed since
// construction. Useful for diagnostics and tests.
func (c *Composer) SwapCount() uint64 { return c.swaps }

// Len returns the number of passes in the chain.
func (c *Composer) Len() int { return len(c.passes) }

// Passes returns a copy of the pass list in execution order.
func (c *Composer) Passes() []Pass {
	out := make([]Pass, len(c.passes))
	copy(out, c.passes)
	return out
}

// AddPass appends a pass to the end of the chain and sizes it to the
// composer's current dimensions. No duplicate check is performed; adding
// the same pass instance twice runs it twice per frame.
func (c *Composer) AddPass(p Pass) {
	c.passes = append(c.passes, p)
	p.SetSize(c.width, c.height)
}

// InsertPass inserts a pass at the given position, shifting subsequent
// entries. The index is clamped to [0, Len()], so out-of-range values
// insert at the nearest end. The new pass executes before the pass
// previously at index.
func (c *Composer) InsertPass(p Pass, index int) {
	if index < 0 {
		index = 0
	}
	if index > len(c.passes) {
		index = len(c.passes)
	}
	c.passes = append(c.passes, nil)
	copy(c.passes[index+1:], c.passes[index:])
	c.passes[index] = p
	p.SetSize(c.width, c.height)
}

// RemovePass removes the first occurrence of p, matched by identity.
// Removing a pass that is not in the chain is a no-op. The composer does
// not release the pass's own resources; ownership stays with the caller.
func (c *Composer) RemovePass(p Pass) {
	i := c.IndexOf(p)
	if i < 0 {
		return
	}
	c.passes = append(c.passes[:i], c.passes[i+1:]...)
}

// IndexOf returns the position of the first occurrence of p in the chain,
// matched by identity, or -1 if absent.
func (c *Composer) IndexOf(p Pass) int {
	for i, q := range c.passes {
		if q == p {
			return i
		}
	}
	return -1
}

// SetSize resizes both buffers in place and notifies every pass in list
// order. Dimensions must be positive; invalid sizes are rejected with a
// logged warning and no state change.
func (c *Composer) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		Logger().Warn("postfx: rejected invalid composer size", "width", width, "height", height)
		return
	}
	if c.bufferA == nil || c.bufferB == nil {
		Logger().Warn("postfx: SetSize on disposed composer")
		return
	}

	if err := c.bufferA.Resize(width, height); err != nil {
		Logger().Warn("postfx: resize buffer A failed", "error", err)
	}
	if err := c.bufferB.Resize(width, height); err != nil {
		Logger().Warn("postfx: resize buffer B failed", "error", err)
	}
	c.width = width
	c.height = height

	for _, p := range c.passes {
		p.SetSize(width, height)
	}
}

// Render drives every enabled pass in order for one frame.
//
// Each pass receives the current write/read pair. After a pass that
// requests a swap, the pair is exchanged so the next pass reads what was
// just written; if a mask bracket is open at that point, the read buffer's
// pre-effect image is first copied back into the write buffer through the
// stencil test so only the masked region keeps the effect.
//
// Errors from passes propagate immediately with no recovery: a frame that
// failed half-way is not meaningful to resume.
func (c *Composer) Render(ctx Context, scene, camera any, delta float64) error {
	if ctx == nil {
		return ErrNilContext
	}
	if c.writeBuffer == nil || c.readBuffer == nil {
		return ErrComposerDisposed
	}

	maskActive := false
	for _, p := range c.passes {
		if !p.Enabled() {
			continue
		}

		if err := p.Render(ctx, c.writeBuffer, c.readBuffer, delta, maskActive, scene, camera); err != nil {
			return fmt.Errorf("postfx: pass %s: %w", p.Type(), err)
		}

		if p.NeedsSwap() {
			if maskActive {
				// Restore the pre-effect image into the write buffer for
				// every pixel outside the stencil reference, then put the
				// in-mask comparison back. After the swap the next pass
				// reads the effect inside the mask and the untouched
				// image everywhere else.
				ctx.SetStencilFunc(compareNotEqual, maskStencilRef)
				if err := c.copyPass.Render(ctx, c.writeBuffer, c.readBuffer, delta, true, scene, camera); err != nil {
					return fmt.Errorf("postfx: mask copy-back: %w", err)
				}
				ctx.SetStencilFunc(compareEqual, maskStencilRef)
			}
			c.swap()
		}

		if m, ok := p.(maskBracket); ok {
			maskActive = m.opensMask()
		}
	}
	return nil
}

// swap exchanges the write and read buffer references. The exchange is a
// pointer swap, never a field-by-field copy, so the two targets can never
// alias each other.
func (c *Composer) swap() {
	c.writeBuffer, c.readBuffer = c.readBuffer, c.writeBuffer
	c.swaps++
}

// Reset destroys both buffers and reallocates them at the current size.
// Pass-internal resources are untouched. Use after a context loss or to
// drop stale buffer contents.
func (c *Composer) Reset(ctx Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if c.bufferA != nil {
		c.bufferA.Destroy()
	}
	if c.bufferB != nil {
		c.bufferB.Destroy()
	}

	a, err := ctx.CreateTarget(c.width, c.height, nil)
	if err != nil {
		return fmt.Errorf("postfx: recreate buffer A: %w", err)
	}
	b, err := ctx.CreateTarget(c.width, c.height, nil)
	if err != nil {
		a.Destroy()
		return fmt.Errorf("postfx: recreate buffer B: %w", err)
	}
	c.bufferA, c.bufferB = a, b
	c.writeBuffer, c.readBuffer = a, b
	Logger().Info("postfx: composer buffers reset", "width", c.width, "height", c.height)
	return nil
}

// Dispose releases both buffers and nils out the buffer references, making
// the composer unusable for rendering until Reset recreates them. Passes
// are not disposed; their resources belong to the caller.
func (c *Composer) Dispose() {
	if c.bufferA != nil {
		c.bufferA.Destroy()
		c.bufferA = nil
	}
	if c.bufferB != nil {
		c.bufferB.Destroy()
		c.bufferB = nil
	}
	c.writeBuffer = nil
	c.readBuffer = nil
}
