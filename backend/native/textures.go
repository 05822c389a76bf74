package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glcompat/gpucore"
)

type texture struct {
	tex    hal.Texture
	view   hal.TextureView
	group  hal.BindGroup // nil when the texture cannot be sampled
	format gpucore.FormatID
	width  uint32
	height uint32
}

func (t *texture) destroy(device hal.Device) {
	if t.group != nil {
		device.DestroyBindGroup(t.group)
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
	}
}

// filterable reports whether the format can be sampled through the shared
// filtering sampler.
func filterable(f gpucore.FormatID) bool {
	return f == gpucore.FormatRGBA8 || f == gpucore.FormatR8
}

func (b *Backend) newTexture(name string, format gpucore.FormatID, width, height uint32, usage gpucore.TextureUsage) (*texture, error) {
	gf, err := textureFormat(format)
	if err != nil {
		return nil, err
	}
	// wgpu rejects empty textures; a 0x0 record still gets a 1x1 allocation.
	size := hal.Extent3D{Width: max(width, 1), Height: max(height, 1), DepthOrArrayLayers: 1}

	t := &texture{format: format, width: width, height: height}
	t.tex, err = b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         b.label(name),
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gf,
		Usage:         textureUsage(usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}
	t.view, err = b.device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:         b.label(name + "_view"),
		Format:        gf,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.destroy(b.device)
		return nil, fmt.Errorf("create texture view: %w", err)
	}
	if usage&gpucore.TextureUsageTextureBinding != 0 && filterable(format) {
		t.group, err = b.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  b.label(name + "_bind"),
			Layout: b.textureLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
				{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
			},
		})
		if err != nil {
			t.destroy(b.device)
			return nil, fmt.Errorf("create texture bind group: %w", err)
		}
	}
	return t, nil
}

func (b *Backend) writeTexture(t *texture, x, y, width, height uint32, data []byte) error {
	bpp := uint32(t.format.BytesPerTexel())
	return b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: x, Y: y},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: width * bpp, RowsPerImage: height},
		&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
}

func (b *Backend) lookupTextureLocked(id gpucore.TextureID) (*texture, error) {
	if b.closed {
		return nil, ErrClosed
	}
	t, ok := b.textures[id]
	if !ok {
		return nil, fmt.Errorf("texture %d: %w", id, gpucore.ErrUnknownHandle)
	}
	return t, nil
}

// CreateTexture allocates a texture and, for sampled color formats, the bind
// group the textured pipelines use.
func (b *Backend) CreateTexture(format gpucore.FormatID, width, height uint32, usage gpucore.TextureUsage) (gpucore.TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.TextureID(b.newIDLocked())
	t, err := b.newTexture(fmt.Sprintf("texture_%d", id), format, width, height, usage)
	if err != nil {
		return gpucore.InvalidID, err
	}
	b.textures[id] = t
	return id, nil
}

// UploadFullImage replaces the texture contents. nil data zero-fills.
func (b *Backend) UploadFullImage(id gpucore.TextureID, width, height uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupTextureLocked(id)
	if err != nil {
		return err
	}
	if width > t.width || height > t.height {
		return fmt.Errorf("full upload %dx%d into %dx%d: %w", width, height, t.width, t.height, gpucore.ErrOutOfBounds)
	}
	if width == 0 || height == 0 {
		return nil
	}
	size := int(width) * int(height) * t.format.BytesPerTexel()
	if data == nil {
		data = make([]byte, size)
	}
	if len(data) < size {
		return fmt.Errorf("full upload has %d of %d bytes: %w", len(data), size, gpucore.ErrOutOfBounds)
	}
	return b.writeTexture(t, 0, 0, width, height, data[:size])
}

// UploadSubImage writes a dense RGBA rectangle. The pixel-store parameters
// were already applied by the caller and are only logged.
func (b *Backend) UploadSubImage(id gpucore.TextureID, offsetX, offsetY, width, height uint32, pixels []uint32,
	rowLength, skipPixels, skipRows, alignment int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupTextureLocked(id)
	if err != nil {
		return err
	}
	if t.format != gpucore.FormatRGBA8 {
		return fmt.Errorf("sub upload into %v texture: %w", t.format, gpucore.ErrUnsupportedFormat)
	}
	if uint64(offsetX)+uint64(width) > uint64(t.width) || uint64(offsetY)+uint64(height) > uint64(t.height) {
		return fmt.Errorf("sub upload %dx%d at (%d,%d) into %dx%d: %w",
			width, height, offsetX, offsetY, t.width, t.height, gpucore.ErrOutOfBounds)
	}
	n := int(width) * int(height)
	if n == 0 {
		return nil
	}
	if len(pixels) < n {
		return fmt.Errorf("sub upload has %d of %d pixels: %w", len(pixels), n, ErrEmptyUpload)
	}
	data := make([]byte, n*4)
	for i, p := range pixels[:n] {
		binary.LittleEndian.PutUint32(data[i*4:], p)
	}
	slogger().Debug("native: sub upload", "texture", id, "x", offsetX, "y", offsetY, "w", width, "h", height,
		"row_length", rowLength, "skip_pixels", skipPixels, "skip_rows", skipRows, "alignment", alignment)
	return b.writeTexture(t, offsetX, offsetY, width, height, data)
}

// DropTexture releases a texture. A texture referenced by the frame being
// recorded is released once that frame has executed.
func (b *Backend) DropTexture(id gpucore.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[id]
	if !ok {
		return
	}
	delete(b.textures, id)
	b.releaseLocked(func() { t.destroy(b.device) })
}

type buffer struct {
	buf  hal.Buffer
	size uint64
}

// align4 rounds n up to a multiple of 4, with a minimum of 4. Queue writes
// and buffer sizes must be 4-byte aligned.
func align4(n uint64) uint64 {
	if n == 0 {
		return 4
	}
	return (n + 3) &^ 3
}

// createBufferLocked creates a device buffer holding data padded to 4 bytes.
func (b *Backend) createBufferLocked(label string, usage gputypes.BufferUsage, size uint64, data []byte) (hal.Buffer, error) {
	if data != nil {
		size = uint64(len(data))
	}
	padded := align4(size)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label(label),
		Size:  padded,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	if len(data) > 0 {
		if uint64(len(data)) != padded {
			tmp := make([]byte, padded)
			copy(tmp, data)
			data = tmp
		}
		if err := b.queue.WriteBuffer(buf, 0, data); err != nil {
			b.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("write buffer %s: %w", label, err)
		}
	}
	return buf, nil
}

// CreateBuffer allocates a buffer, initialized with data when given.
func (b *Backend) CreateBuffer(label string, usage gpucore.BufferUsage, size uint64, data []byte) (gpucore.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	buf, err := b.createBufferLocked(label, bufferUsage(usage), size, data)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if data != nil {
		size = uint64(len(data))
	}
	id := gpucore.BufferID(b.newIDLocked())
	b.buffers[id] = &buffer{buf: buf, size: size}
	return id, nil
}

// DropBuffer releases a buffer.
func (b *Backend) DropBuffer(id gpucore.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok {
		return
	}
	delete(b.buffers, id)
	b.releaseLocked(func() { b.device.DestroyBuffer(buf.buf) })
}

// NewTarget creates an offscreen color target in the target format and
// returns its view for Flush. Targets live until Close.
func (b *Backend) NewTarget(width, height uint32) (hal.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	t := &texture{width: width, height: height}
	var err error
	t.tex, err = b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         b.label("target"),
		Size:          hal.Extent3D{Width: max(width, 1), Height: max(height, 1), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        b.opts.targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	t.view, err = b.device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:         b.label("target_view"),
		Format:        b.opts.targetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.destroy(b.device)
		return nil, fmt.Errorf("create target view: %w", err)
	}
	b.targets = append(b.targets, t)
	return t.view, nil
}
