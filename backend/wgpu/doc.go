// Package wgpu provides a GPU rendering context for postfx composers built
// on the gogpu/wgpu hardware abstraction layer.
//
// The context allocates composer targets as GPU textures and moves pixel
// data between them with staged transfers (texture to staging buffer to
// CPU, and queue uploads back). Blit compositing, opacity mixing, and the
// stencil gate used by mask brackets run on the CPU plane between the two
// transfers, so the backend needs no device-side stencil attachment and
// behaves identically to the software context.
//
// Host scenes are drawn through a SceneRenderFunc that receives the target
// texture view; the host records its own render passes against it. The
// PresentPipeline draws a composer target into a host render pass as a
// fullscreen textured triangle, for windowed presentation.
package wgpu
