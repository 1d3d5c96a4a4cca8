// Package postfx provides a post-processing effect composer for the GoGPU
// ecosystem.
//
// # Overview
//
// postfx manages an ordered chain of rendering passes that ping-pong between
// two off-screen color targets. Each pass reads the output of the previous
// pass and writes its own result; the composer swaps the two targets after
// every pass that requests it. Stencil mask passes can bracket a section of
// the chain so that only a stencil-defined region receives the effects.
//
// # Quick Start
//
//	import "github.com/gogpu/postfx"
//
//	ctx, _ := postfx.NewSoftwareContext(800, 600)
//	comp, err := postfx.NewComposer(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	comp.SetSize(800, 600)
//
//	comp.AddPass(postfx.NewRenderPass(myScene, myCamera))
//	bloom := postfx.NewUnrealBloomPass()
//	bloom.Strength = 1.5
//	comp.AddPass(bloom)
//	out := postfx.NewCopyPass()
//	out.SetRenderToScreen(true)
//	out.SetNeedsSwap(false)
//	comp.AddPass(out)
//
//	if err := comp.Render(ctx, myScene, myCamera, 1.0/60); err != nil {
//	    log.Fatal(err)
//	}
//
// # Architecture
//
// The library is organized into:
//   - Core: Composer, the Pass contract, and the pipeline JSON codec
//   - Passes: Render, UnrealBloom, SSAO, Bokeh, FXAA, Copy, Mask/ClearMask
//   - Contexts: SoftwareContext (CPU), backend/wgpu (GPU via gogpu/wgpu)
//   - Integration: integration/gpucanvas presents composer output to a
//     gpucontext host application
//
// Concrete scene and camera types are external collaborators: the composer
// forwards them opaquely to passes and to the rendering context.
//
// # Serialization
//
// A composer pipeline serializes to a JSON document holding the composer id
// and one record per pass (type tag, id, flags, and variant parameters).
// UnmarshalComposer restores the pipeline, instantiating each pass by its
// type tag; unrecognized tags degrade to a plain render pass.
//
// # Thread Safety
//
// Composers are NOT safe for concurrent use. Drive Render, SetSize, and the
// pass list from a single goroutine, or use external synchronization.
// SetLogger is the only entry point safe to call concurrently.
package postfx

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
