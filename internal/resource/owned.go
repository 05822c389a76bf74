package resource

import (
	"fmt"

	"github.com/gogpu/glcompat/gpucore"
	"github.com/gogpu/glcompat/internal/pixel"
)

// Texture is an owner of one backend texture. The zero Texture owns nothing.
type Texture struct {
	m   *Manager
	ref Ref
}

// Valid reports whether t was returned by a Manager.
func (t Texture) Valid() bool { return t.m != nil }

// ID returns the backend texture ID.
func (t Texture) ID() (gpucore.TextureID, error) {
	if t.m == nil {
		return gpucore.InvalidID, fmt.Errorf("zero texture: %w", gpucore.ErrCallerMisuse)
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	obj, err := t.m.lookup(t.ref)
	if err != nil {
		return gpucore.InvalidID, err
	}
	return obj.texture, nil
}

// Size returns the texture dimensions.
func (t Texture) Size() (width, height uint32, err error) {
	if t.m == nil {
		return 0, 0, fmt.Errorf("zero texture: %w", gpucore.ErrCallerMisuse)
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	obj, err := t.m.lookup(t.ref)
	if err != nil {
		return 0, 0, err
	}
	return obj.width, obj.height, nil
}

// WriteFull uploads a whole image and mirrors it into the shadow.
// nil data uploads zeros.
func (t Texture) WriteFull(data []byte) error {
	if t.m == nil {
		return fmt.Errorf("zero texture: %w", gpucore.ErrCallerMisuse)
	}
	t.m.mu.Lock()
	obj, err := t.m.lookup(t.ref)
	if err != nil {
		t.m.mu.Unlock()
		return err
	}
	id, w, h := obj.texture, obj.width, obj.height
	if obj.shadow != nil {
		n := copy(obj.shadow, data)
		clear(obj.shadow[n:])
	}
	t.m.touchLocked(t.ref, obj)
	t.m.mu.Unlock()

	return t.m.native.UploadFullImage(id, w, h, data)
}

// WriteRect uploads a dense RGBA rectangle and mirrors it into the shadow.
// p carries the unpack parameters that produced pixels; they are forwarded
// to the backend unchanged.
func (t Texture) WriteRect(offsetX, offsetY, width, height uint32, pixels []uint32, p pixel.Params) error {
	if t.m == nil {
		return fmt.Errorf("zero texture: %w", gpucore.ErrCallerMisuse)
	}
	t.m.mu.Lock()
	obj, err := t.m.lookup(t.ref)
	if err != nil {
		t.m.mu.Unlock()
		return err
	}
	if offsetX+width > obj.width || offsetY+height > obj.height {
		t.m.mu.Unlock()
		return fmt.Errorf("rect %dx%d at (%d,%d) on %dx%d texture: %w",
			width, height, offsetX, offsetY, obj.width, obj.height, gpucore.ErrOutOfBounds)
	}
	if obj.shadow != nil && obj.format.BytesPerTexel() == pixel.BytesPerPixel {
		stride := int(obj.width) * pixel.BytesPerPixel
		for y := uint32(0); y < height; y++ {
			start := int(offsetY+y)*stride + int(offsetX)*pixel.BytesPerPixel
			row := pixels[int(y*width):int((y+1)*width)]
			// Appends in place: the zero-length slice shares the shadow.
			pixel.Bytes(obj.shadow[start:start], row)
		}
	}
	id := obj.texture
	t.m.touchLocked(t.ref, obj)
	t.m.mu.Unlock()

	return t.m.native.UploadSubImage(id, offsetX, offsetY, width, height, pixels,
		p.RowLength, p.SkipPixels, p.SkipRows, p.Alignment)
}

// ReadShadow returns a copy of the last written contents.
func (t Texture) ReadShadow() ([]byte, error) {
	if t.m == nil {
		return nil, fmt.Errorf("zero texture: %w", gpucore.ErrCallerMisuse)
	}
	return t.m.readShadow(t.ref)
}

// Close drops the backend texture. A second Close fails with
// gpucore.ErrCallerMisuse and does not reach the backend.
func (t Texture) Close() error {
	if t.m == nil {
		return fmt.Errorf("zero texture: %w", gpucore.ErrCallerMisuse)
	}
	return t.m.release(t.ref)
}

// Buffer is an owner of one backend buffer. The zero Buffer owns nothing.
type Buffer struct {
	m   *Manager
	ref Ref
}

// ID returns the backend buffer ID.
func (b Buffer) ID() (gpucore.BufferID, error) {
	if b.m == nil {
		return gpucore.InvalidID, fmt.Errorf("zero buffer: %w", gpucore.ErrCallerMisuse)
	}
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	obj, err := b.m.lookup(b.ref)
	if err != nil {
		return gpucore.InvalidID, err
	}
	return obj.buffer, nil
}

// Write stores data at offset in the mapped shadow.
func (b Buffer) Write(offset uint64, data []byte) error {
	if b.m == nil {
		return fmt.Errorf("zero buffer: %w", gpucore.ErrCallerMisuse)
	}
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	obj, err := b.m.lookup(b.ref)
	if err != nil {
		return err
	}
	if obj.evicted {
		return ErrShadowEvicted
	}
	if offset+uint64(len(data)) > uint64(len(obj.shadow)) {
		return fmt.Errorf("write of %d bytes at %d into %d byte buffer: %w",
			len(data), offset, len(obj.shadow), gpucore.ErrOutOfBounds)
	}
	copy(obj.shadow[offset:], data)
	b.m.touchLocked(b.ref, obj)
	return nil
}

// Bytes returns a copy of the mapped shadow.
func (b Buffer) Bytes() ([]byte, error) {
	if b.m == nil {
		return nil, fmt.Errorf("zero buffer: %w", gpucore.ErrCallerMisuse)
	}
	return b.m.readShadow(b.ref)
}

// Close drops the backend buffer. A second Close fails with
// gpucore.ErrCallerMisuse and does not reach the backend.
func (b Buffer) Close() error {
	if b.m == nil {
		return fmt.Errorf("zero buffer: %w", gpucore.ErrCallerMisuse)
	}
	return b.m.release(b.ref)
}

func (m *Manager) readShadow(ref Ref) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	if obj.evicted {
		return nil, ErrShadowEvicted
	}
	out := make([]byte, len(obj.shadow))
	copy(out, obj.shadow)
	return out, nil
}
