package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glcompat/gpucore"
)

// drawState holds the inputs of the next draw.
type drawState struct {
	pipeline gpucore.PipelineID
	bound    bool
	textures map[uint32]gpucore.TextureID
	matrix   [16]float32
	vertices []byte
	indices  []uint32
}

func (s *drawState) reset() {
	s.bound = false
	s.textures = make(map[uint32]gpucore.TextureID)
	s.matrix = [16]float32{0: 1, 5: 1, 10: 1, 15: 1}
	s.vertices = nil
	s.indices = nil
}

// drawCmd is one recorded draw with the per-draw objects it owns.
type drawCmd struct {
	pipeline  *pipeline
	texture   hal.BindGroup
	transform hal.BindGroup
	uniform   hal.Buffer
	vertices  hal.Buffer
	indices   hal.Buffer
	count     uint32
	indexed   bool
}

func (c *drawCmd) release(device hal.Device) {
	if c.transform != nil {
		device.DestroyBindGroup(c.transform)
	}
	for _, buf := range []hal.Buffer{c.uniform, c.vertices, c.indices} {
		if buf != nil {
			device.DestroyBuffer(buf)
		}
	}
}

// retired holds releases that wait for a submission to complete.
type retired struct {
	submission uint64
	release    []func()
}

func (r retired) run() {
	for _, fn := range r.release {
		fn()
	}
}

type pipeline struct {
	module hal.ShaderModule
	layout hal.PipelineLayout
	pipe   hal.RenderPipeline
}

func (p *pipeline) destroy(device hal.Device) {
	if p.pipe != nil {
		device.DestroyRenderPipeline(p.pipe)
	}
	if p.layout != nil {
		device.DestroyPipelineLayout(p.layout)
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
	}
}

// ensurePipelineLocked returns the pipeline for id, creating it on first use.
func (b *Backend) ensurePipelineLocked(id gpucore.PipelineID) (*pipeline, error) {
	if id >= gpucore.PipelineCount {
		return nil, fmt.Errorf("pipeline %d: %w", id, gpucore.ErrSkipDraw)
	}
	if p := b.pipelines[id]; p != nil {
		return p, nil
	}

	name := fmt.Sprintf("pipeline_%d", id)
	src, err := shaderModuleSource(shaderSource(id), b.opts.spirv)
	if err != nil {
		return nil, err
	}
	p := &pipeline{}
	p.module, err = b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  b.label(name + "_shader"),
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}

	layouts := []hal.BindGroupLayout{b.transformLayout}
	if id.Textured() {
		layouts = append(layouts, b.textureLayout)
	}
	p.layout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            b.label(name + "_layout"),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		p.destroy(b.device)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	blend := gputypes.BlendStateAlpha()
	p.pipe, err = b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  b.label(name),
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{vertexLayout(id)},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    b.opts.targetFormat,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		p.destroy(b.device)
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	b.pipelines[id] = p
	slogger().Debug("native: pipeline created", "pipeline", id, "spirv", b.opts.spirv)
	return p, nil
}

// UsePipeline selects the pipeline of the next draw and clears the texture
// attachments.
func (b *Backend) UsePipeline(id gpucore.PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.pipeline = id
	b.state.bound = true
	clear(b.state.textures)
}

// AttachTexture binds a texture to a slot of the current pipeline.
func (b *Backend) AttachTexture(slot uint32, id gpucore.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.textures[slot] = id
}

// SetTransform sets the column-major transform of the next draw.
func (b *Backend) SetTransform(matrix [16]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.matrix = matrix
}

// SetVertexData sets the vertex bytes of the next draw. The data is copied.
func (b *Backend) SetVertexData(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.vertices = append(b.state.vertices[:0], data...)
}

// SetIndexData sets the indices of the next indexed draw. The data is copied.
func (b *Backend) SetIndexData(indices []uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.indices = append(b.state.indices[:0], indices...)
}

// Draw records a non-indexed draw of count vertices.
func (b *Backend) Draw(count uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordLocked(count, false)
}

// DrawIndexed records an indexed draw of count indices.
func (b *Backend) DrawIndexed(count uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordLocked(count, true)
}

// recordLocked turns the current draw state into a drawCmd for the frame.
// Draws that cannot be recorded are dropped and counted.
func (b *Backend) recordLocked(count uint32, indexed bool) {
	if err := b.tryRecordLocked(count, indexed); err != nil {
		b.stats.Dropped++
		slogger().Warn("native: draw dropped", "pipeline", b.state.pipeline, "count", count, "indexed", indexed, "err", err)
	}
}

func (b *Backend) tryRecordLocked(count uint32, indexed bool) error {
	if b.closed {
		return ErrClosed
	}
	if !b.state.bound {
		return fmt.Errorf("no pipeline selected: %w", gpucore.ErrCallerMisuse)
	}
	id := b.state.pipeline
	p, err := b.ensurePipelineLocked(id)
	if err != nil {
		return err
	}

	// Never read past the supplied data.
	available := uint32(uint64(len(b.state.vertices)) / id.VertexStride())
	if indexed {
		available = uint32(len(b.state.indices))
	}
	if count > available {
		slogger().Debug("native: draw count clamped", "count", count, "available", available)
		count = available
	}
	if count == 0 {
		return fmt.Errorf("draw has no data: %w", gpucore.ErrSkipDraw)
	}

	cmd := drawCmd{pipeline: p, count: count, indexed: indexed}
	if id.Textured() {
		cmd.texture = b.fallback.group
		if tid, ok := b.state.textures[0]; ok {
			if t, ok := b.textures[tid]; ok && t.group != nil {
				cmd.texture = t.group
			} else {
				slogger().Debug("native: unusable texture, using fallback", "texture", tid)
			}
		}
	}

	if err := b.buildDrawLocked(&cmd); err != nil {
		cmd.release(b.device)
		return err
	}
	b.frame = append(b.frame, cmd)
	b.stats.Draws++
	return nil
}

// buildDrawLocked creates the uniform, transform bind group and geometry
// buffers of a draw.
func (b *Backend) buildDrawLocked(cmd *drawCmd) error {
	matrix := make([]byte, 64)
	for i, v := range b.state.matrix {
		binary.LittleEndian.PutUint32(matrix[i*4:], math.Float32bits(v))
	}
	var err error
	cmd.uniform, err = b.createBufferLocked("transform", gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, 0, matrix)
	if err != nil {
		return err
	}
	cmd.transform, err = b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  b.label("transform_bind"),
		Layout: b.transformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: cmd.uniform.NativeHandle(), Offset: 0, Size: 64}},
		},
	})
	if err != nil {
		return fmt.Errorf("create transform bind group: %w", err)
	}

	cmd.vertices, err = b.createBufferLocked("vertices", gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst, 0, b.state.vertices)
	if err != nil {
		return err
	}
	if cmd.indexed {
		data := make([]byte, len(b.state.indices)*4)
		for i, v := range b.state.indices {
			binary.LittleEndian.PutUint32(data[i*4:], v)
		}
		cmd.indices, err = b.createBufferLocked("indices", gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst, 0, data)
		if err != nil {
			return err
		}
	}
	return nil
}

// releaseLocked runs fn now, or after the current frame executes when the
// frame may still reference the object fn releases.
func (b *Backend) releaseLocked(fn func()) {
	if len(b.frame) > 0 {
		b.pending = append(b.pending, fn)
		return
	}
	fn()
}

// Flush encodes the draws recorded since the last Flush into one render pass
// on view and submits them. With no recorded draws and no clear color Flush
// only reclaims completed frames.
func (b *Backend) Flush(view hal.TextureView) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if view == nil {
		return ErrNilView
	}
	defer b.reclaimLocked()
	if len(b.frame) == 0 && b.opts.clear == nil {
		b.runPendingLocked()
		return nil
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: b.label("frame_encoder")})
	if err != nil {
		b.discardFrameLocked()
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(b.label("frame")); err != nil {
		encoder.Destroy()
		b.discardFrameLocked()
		return fmt.Errorf("begin encoding: %w", err)
	}

	attachment := hal.RenderPassColorAttachment{
		View:    view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if b.opts.clear != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = *b.opts.clear
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            b.label("frame_pass"),
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})
	for i := range b.frame {
		cmd := &b.frame[i]
		pass.SetPipeline(cmd.pipeline.pipe)
		pass.SetBindGroup(0, cmd.transform, nil)
		if cmd.texture != nil {
			pass.SetBindGroup(1, cmd.texture, nil)
		}
		pass.SetVertexBuffer(0, cmd.vertices, 0)
		if cmd.indexed {
			pass.SetIndexBuffer(cmd.indices, gputypes.IndexFormatUint32, 0)
			pass.DrawIndexed(cmd.count, 1, 0, 0, 0)
		} else {
			pass.Draw(cmd.count, 1, 0, 0)
		}
	}
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		b.discardFrameLocked()
		return fmt.Errorf("end encoding: %w", err)
	}
	index, err := b.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		b.device.FreeCommandBuffer(cmdBuf)
		encoder.Destroy()
		b.discardFrameLocked()
		return fmt.Errorf("submit: %w", err)
	}

	r := retired{submission: index}
	for i := range b.frame {
		cmd := b.frame[i]
		r.release = append(r.release, func() { cmd.release(b.device) })
	}
	r.release = append(r.release, b.pending...)
	r.release = append(r.release, func() {
		b.device.FreeCommandBuffer(cmdBuf)
		encoder.Destroy()
	})
	b.inflight = append(b.inflight, r)
	b.frame = b.frame[:0]
	b.pending = nil
	b.stats.Frames++
	return nil
}

// reclaimLocked runs the releases of every completed submission.
func (b *Backend) reclaimLocked() {
	done := b.queue.PollCompleted()
	n := 0
	for _, r := range b.inflight {
		if r.submission <= done {
			r.run()
			continue
		}
		b.inflight[n] = r
		n++
	}
	clear(b.inflight[n:])
	b.inflight = b.inflight[:n]
}

func (b *Backend) runPendingLocked() {
	for _, fn := range b.pending {
		fn()
	}
	b.pending = nil
}

// DiscardFrame drops the draws recorded since the last Flush.
func (b *Backend) DiscardFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discardFrameLocked()
}

func (b *Backend) discardFrameLocked() {
	for i := range b.frame {
		b.frame[i].release(b.device)
	}
	b.frame = b.frame[:0]
	b.runPendingLocked()
}
