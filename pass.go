package postfx

import (
	"encoding/json"
	"sync"
)

// Pass is one stage of a post-processing pipeline.
//
// The composer drives every enabled pass in list order, supplying the
// current write/read target pair. What a pass does with the pair is its own
// business: most read from read and draw into write, screen-output passes
// draw to the screen and ignore write, mask passes only touch the stencil
// plane. A pass that produced a new image into write reports NeedsSwap so
// the composer exchanges the pair before the next pass runs.
//
// Passes are created externally and attached with AddPass or InsertPass.
// The composer never owns a pass's internal resources: removing a pass does
// not release anything, that stays the caller's responsibility.
type Pass interface {
	// Render executes the pass. write and read are the composer's current
	// target pair; delta is the frame time in seconds; maskActive reports
	// whether a stencil mask bracket is currently open. Scene and camera
	// are forwarded opaquely from Composer.Render.
	Render(ctx Context, write, read Target, delta float64, maskActive bool, scene, camera any) error

	// SetSize notifies the pass of the composer's new dimensions so it can
	// resize its own size-dependent resources.
	SetSize(width, height int)

	// UUID returns the pass's identity used in serialized documents.
	UUID() string

	// Type returns the type tag discriminating the variant on the wire.
	Type() string

	// Enabled reports whether the composer should run this pass.
	Enabled() bool

	// NeedsSwap reports whether the composer must swap the write/read pair
	// after this pass.
	NeedsSwap() bool

	// RenderToScreen reports whether this pass outputs to the screen
	// instead of the write target.
	RenderToScreen() bool

	// Clear reports whether this pass clears its destination before
	// drawing.
	Clear() bool

	// MarshalRecord serializes the pass into its JSON pipeline record,
	// including the type tag, uuid, flags, and variant parameters.
	MarshalRecord() (json.RawMessage, error)

	// UnmarshalRecord restores the pass's flags and variant parameters
	// from a JSON pipeline record. Fields absent from the record keep
	// their current values.
	UnmarshalRecord(data json.RawMessage) error
}

// passFields is the wire form of the state every pass variant shares.
type passFields struct {
	Type           string `json:"type"`
	UUID           string `json:"uuid"`
	Enabled        bool   `json:"enabled"`
	NeedsSwap      bool   `json:"needsSwap"`
	RenderToScreen bool   `json:"renderToScreen"`
	Clear          bool   `json:"clear"`
}

// PassBase carries the identity and flags shared by every pass variant.
// Concrete passes embed it and override the flag defaults in their
// constructors.
type PassBase struct {
	uuid           string
	enabled        bool
	needsSwap      bool
	renderToScreen bool
	clear          bool
}

// newPassBase returns a base with a fresh uuid, enabled, and the given
// swap default.
func newPassBase(needsSwap bool) PassBase {
	return PassBase{
		uuid:      NewUUID(),
		enabled:   true,
		needsSwap: needsSwap,
	}
}

// UUID returns the pass identity.
func (b *PassBase) UUID() string { return b.uuid }

// Enabled reports whether the pass runs.
func (b *PassBase) Enabled() bool { return b.enabled }

// SetEnabled toggles whether the composer runs the pass.
func (b *PassBase) SetEnabled(enabled bool) { b.enabled = enabled }

// NeedsSwap reports whether the composer swaps buffers after the pass.
func (b *PassBase) NeedsSwap() bool { return b.needsSwap }

// SetNeedsSwap overrides the variant's swap default.
func (b *PassBase) SetNeedsSwap(swap bool) { b.needsSwap = swap }

// RenderToScreen reports whether the pass outputs to the screen.
func (b *PassBase) RenderToScreen() bool { return b.renderToScreen }

// SetRenderToScreen directs the pass's output to the screen instead of the
// write target.
func (b *PassBase) SetRenderToScreen(screen bool) { b.renderToScreen = screen }

// Clear reports whether the pass clears its destination first.
func (b *PassBase) Clear() bool { return b.clear }

// SetClear toggles destination clearing.
func (b *PassBase) SetClear(clear bool) { b.clear = clear }

// SetSize is a no-op; variants with size-dependent resources override it.
func (b *PassBase) SetSize(int, int) {}

// fields snapshots the shared state into its wire form under the given
// type tag.
func (b *PassBase) fields(typeTag string) passFields {
	return passFields{
		Type:           typeTag,
		UUID:           b.uuid,
		Enabled:        b.enabled,
		NeedsSwap:      b.needsSwap,
		RenderToScreen: b.renderToScreen,
		Clear:          b.clear,
	}
}

// applyFields overwrites the shared state from its wire form. The type tag
// is not consulted here; dispatch already happened in the registry.
func (b *PassBase) applyFields(f passFields) {
	b.uuid = f.UUID
	b.enabled = f.Enabled
	b.needsSwap = f.NeedsSwap
	b.renderToScreen = f.RenderToScreen
	b.clear = f.Clear
}

// PassFactory creates a default-constructed pass of one variant.
type PassFactory func() Pass

// passRegistry maps serialized type tags to factories. Guarded by a mutex
// because host applications may register custom variants at runtime while
// another goroutine deserializes.
var passRegistry = struct {
	mu        sync.RWMutex
	factories map[string]PassFactory
}{factories: make(map[string]PassFactory)}

// RegisterPassType adds a pass variant to the deserialization registry.
// Registering a tag that already exists replaces the previous factory.
//
// The built-in variants (Render, UnrealBloom, SSAO, Bokeh, FXAA, Copy)
// register themselves; hosts only call this for custom pass types.
func RegisterPassType(tag string, factory PassFactory) {
	passRegistry.mu.Lock()
	defer passRegistry.mu.Unlock()
	passRegistry.factories[tag] = factory
}

// newPassForType instantiates the variant registered for tag. Unrecognized
// tags degrade to a plain render pass rather than failing, so a pipeline
// document from a newer editor still loads.
func newPassForType(tag string) Pass {
	passRegistry.mu.RLock()
	factory, ok := passRegistry.factories[tag]
	passRegistry.mu.RUnlock()
	if !ok {
		Logger().Warn("postfx: unknown pass type, using Render", "type", tag)
		return NewRenderPass(nil, nil)
	}
	return factory()
}
