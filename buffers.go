package glcompat

import (
	"fmt"

	"github.com/gogpu/glcompat/gpucore"
	"github.com/gogpu/glcompat/internal/resource"
)

// BufferUsage is the usage mask of a buffer object.
type BufferUsage = gpucore.BufferUsage

// Buffer usages. The map usages are emulated with a CPU shadow and never
// reach the backend.
const (
	BufferUsageMapRead  = gpucore.BufferUsageMapRead
	BufferUsageMapWrite = gpucore.BufferUsageMapWrite
	BufferUsageCopySrc  = gpucore.BufferUsageCopySrc
	BufferUsageCopyDst  = gpucore.BufferUsageCopyDst
	BufferUsageIndex    = gpucore.BufferUsageIndex
	BufferUsageVertex   = gpucore.BufferUsageVertex
	BufferUsageUniform  = gpucore.BufferUsageUniform
	BufferUsageStorage  = gpucore.BufferUsageStorage
)

// bufferObject is the storage behind a buffer handle. A deleted object keeps
// its closed owner so a second delete is detected.
type bufferObject struct {
	owner resource.Buffer
	usage BufferUsage
	label string
}

func (o *bufferObject) live() bool {
	_, err := o.owner.ID()
	return err == nil
}

// GenBuffer returns a new buffer handle. Handles start at 1 and are never
// reused.
func (c *Context) GenBuffer() uint32 {
	c.nextBuffer++
	return c.nextBuffer
}

// BufferData (re)creates the storage of handle: size bytes, initialized from
// data when it is non-nil (size is then len(data)). Previous storage of the
// handle is released.
func (c *Context) BufferData(handle uint32, usage BufferUsage, size uint64, data []byte) error {
	if c.closed {
		return ErrClosed
	}
	label := fmt.Sprintf("buffer %d", handle)
	owner, err := c.resources.CreateBuffer(label, usage, size, data)
	if err != nil {
		return fmt.Errorf("buffer %d: %w", handle, err)
	}
	if old, ok := c.buffers[handle]; ok && old.live() {
		if err := old.owner.Close(); err != nil {
			Logger().Warn("glcompat: buffer release failed", "buffer", handle, "err", err)
		}
	}
	c.buffers[handle] = &bufferObject{owner: owner, usage: usage, label: label}
	c.stats.BufferUploads++
	return nil
}

// lookupBuffer returns the live storage of handle.
func (c *Context) lookupBuffer(handle uint32) (*bufferObject, error) {
	obj, ok := c.buffers[handle]
	if !ok || !obj.live() {
		return nil, fmt.Errorf("buffer %d has no storage: %w", handle, ErrCallerMisuse)
	}
	return obj, nil
}

// BufferSubData writes data at offset. The mapped shadow is updated and, for
// buffers the backend can see, the backend buffer is rebuilt from the
// shadow, since the native surface has no partial buffer write. A write past
// the end fails with ErrOutOfBounds.
func (c *Context) BufferSubData(handle uint32, offset uint64, data []byte) error {
	if c.closed {
		return ErrClosed
	}
	obj, err := c.lookupBuffer(handle)
	if err != nil {
		return c.report("buffer sub data", err, "buffer", handle)
	}
	if err := obj.owner.Write(offset, data); err != nil {
		return fmt.Errorf("buffer %d: %w", handle, err)
	}
	c.stats.BufferUploads++
	if obj.usage&^gpucore.BufferUsageMap == 0 {
		return nil
	}

	contents, err := obj.owner.Bytes()
	if err != nil {
		return fmt.Errorf("buffer %d: %w", handle, err)
	}
	owner, err := c.resources.CreateBuffer(obj.label, obj.usage, 0, contents)
	if err != nil {
		return fmt.Errorf("buffer %d: %w", handle, err)
	}
	if err := obj.owner.Close(); err != nil {
		Logger().Warn("glcompat: buffer release failed", "buffer", handle, "err", err)
	}
	obj.owner = owner
	return nil
}

// MapBuffer returns a copy of the current contents of a buffer.
func (c *Context) MapBuffer(handle uint32) ([]byte, error) {
	obj, err := c.lookupBuffer(handle)
	if err != nil {
		return nil, err
	}
	return obj.owner.Bytes()
}

// BufferID returns the backend buffer behind handle.
func (c *Context) BufferID(handle uint32) (gpucore.BufferID, error) {
	obj, err := c.lookupBuffer(handle)
	if err != nil {
		return gpucore.InvalidID, err
	}
	return obj.owner.ID()
}

// DeleteBuffer releases the storage of handle. Deleting a handle that never
// had storage does nothing; deleting it a second time is ErrCallerMisuse,
// dropped unless the context is strict. The backend buffer is dropped once.
func (c *Context) DeleteBuffer(handle uint32) error {
	obj, ok := c.buffers[handle]
	if !ok {
		return nil
	}
	if err := obj.owner.Close(); err != nil {
		return c.report("delete buffer", fmt.Errorf("buffer %d: %w", handle, err), "buffer", handle)
	}
	return nil
}
