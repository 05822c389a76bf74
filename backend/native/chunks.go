package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glcompat/gpucore"
)

// storageHeaderSize is the byte size of the descriptor block that precedes
// the packed words of a storage buffer: eight u32 fields.
const storageHeaderSize = 32

type palette struct {
	buf     hal.Buffer
	entries int
}

type storage struct {
	buf             hal.Buffer
	elementsPerWord int32
	bitsPerElement  int32
	size            int32
}

type chunk struct {
	palettes [gpucore.SectionsPerChunk]gpucore.PaletteID
	storages [gpucore.SectionsPerChunk]gpucore.StorageID
	light    hal.Buffer
	baked    bool
}

const chunkBufferUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst

// CreatePalette uploads the palette as a storage buffer of u32 block states.
func (b *Backend) CreatePalette(entries []gpucore.BlockState) (gpucore.PaletteID, error) {
	data := make([]byte, len(entries)*4)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(e))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.PaletteID(b.newIDLocked())
	buf, err := b.createBufferLocked(fmt.Sprintf("palette_%d", id), chunkBufferUsage, 0, data)
	if err != nil {
		return gpucore.InvalidID, err
	}
	b.palettes[id] = &palette{buf: buf, entries: len(entries)}
	return id, nil
}

// DestroyPalette releases a palette.
func (b *Backend) DestroyPalette(id gpucore.PaletteID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.palettes[id]
	if !ok {
		return
	}
	delete(b.palettes, id)
	b.device.DestroyBuffer(p.buf)
}

// CreatePaletteStorage uploads a packed index array. The buffer starts with
// a header of elementsPerWord, bitsPerElement, the low and high halves of
// maxValue, indexScale, indexOffset, indexShift and size, followed by the
// words.
func (b *Backend) CreatePaletteStorage(words []uint64, elementsPerWord, bitsPerElement int32, maxValue uint64,
	indexScale, indexOffset, indexShift int32, size int32) (gpucore.StorageID, error) {
	data := make([]byte, storageHeaderSize+len(words)*8)
	header := [8]uint32{
		uint32(elementsPerWord),
		uint32(bitsPerElement),
		uint32(maxValue),
		uint32(maxValue >> 32),
		uint32(indexScale),
		uint32(indexOffset),
		uint32(indexShift),
		uint32(size),
	}
	for i, v := range header {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	for i, w := range words {
		binary.LittleEndian.PutUint64(data[storageHeaderSize+i*8:], w)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.StorageID(b.newIDLocked())
	buf, err := b.createBufferLocked(fmt.Sprintf("storage_%d", id), chunkBufferUsage, 0, data)
	if err != nil {
		return gpucore.InvalidID, err
	}
	b.storages[id] = &storage{
		buf:             buf,
		elementsPerWord: elementsPerWord,
		bitsPerElement:  bitsPerElement,
		size:            size,
	}
	return id, nil
}

// DestroyPaletteStorage releases a packed index array.
func (b *Backend) DestroyPaletteStorage(id gpucore.StorageID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.storages[id]
	if !ok {
		return
	}
	delete(b.storages, id)
	b.device.DestroyBuffer(s.buf)
}

// checkHandlesLocked reports the first section referencing a palette or
// storage the backend does not know.
func (b *Backend) checkHandlesLocked(palettes [gpucore.SectionsPerChunk]gpucore.PaletteID,
	storages [gpucore.SectionsPerChunk]gpucore.StorageID) error {
	for y := range gpucore.SectionsPerChunk {
		if (palettes[y] == gpucore.InvalidID) != (storages[y] == gpucore.InvalidID) {
			return fmt.Errorf("section %d has only one of palette and storage: %w", y, gpucore.ErrCallerMisuse)
		}
		if palettes[y] == gpucore.InvalidID {
			continue
		}
		if _, ok := b.palettes[palettes[y]]; !ok {
			return fmt.Errorf("section %d palette %d: %w", y, palettes[y], gpucore.ErrUnknownHandle)
		}
		if _, ok := b.storages[storages[y]]; !ok {
			return fmt.Errorf("section %d storage %d: %w", y, storages[y], gpucore.ErrUnknownHandle)
		}
	}
	return nil
}

// CreateChunk records a chunk column and uploads its light arrays, block
// light first. A chunk already at (x, z) is replaced and left unbaked.
func (b *Backend) CreateChunk(x, z int32, palettes [gpucore.SectionsPerChunk]gpucore.PaletteID,
	storages [gpucore.SectionsPerChunk]gpucore.StorageID, blockLight, skyLight []byte) error {
	const lightSize = gpucore.SectionsPerChunk * gpucore.LightArraySize
	if len(blockLight) != lightSize || len(skyLight) != lightSize {
		return fmt.Errorf("chunk (%d,%d) light arrays are %d and %d bytes, want %d: %w",
			x, z, len(blockLight), len(skyLight), lightSize, gpucore.ErrCallerMisuse)
	}
	light := make([]byte, 0, 2*lightSize)
	light = append(light, blockLight...)
	light = append(light, skyLight...)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.checkHandlesLocked(palettes, storages); err != nil {
		return fmt.Errorf("chunk (%d,%d): %w", x, z, err)
	}
	buf, err := b.createBufferLocked(fmt.Sprintf("light_%d_%d", x, z), chunkBufferUsage, 0, light)
	if err != nil {
		return err
	}
	key := [2]int32{x, z}
	if old, ok := b.chunks[key]; ok {
		b.device.DestroyBuffer(old.light)
	}
	b.chunks[key] = &chunk{palettes: palettes, storages: storages, light: buf}
	return nil
}

// BakeChunk marks a created chunk as baked. Every section the chunk
// references must still be live.
func (b *Backend) BakeChunk(x, z int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	c, ok := b.chunks[[2]int32{x, z}]
	if !ok {
		return fmt.Errorf("chunk (%d,%d): %w", x, z, gpucore.ErrUnknownHandle)
	}
	if err := b.checkHandlesLocked(c.palettes, c.storages); err != nil {
		return fmt.Errorf("bake chunk (%d,%d): %w", x, z, err)
	}
	if !c.baked {
		c.baked = true
		b.stats.Baked++
	}
	return nil
}

// Baked reports whether the chunk at (x, z) exists and has been baked.
func (b *Backend) Baked(x, z int32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chunks[[2]int32{x, z}]
	return ok && c.baked
}
