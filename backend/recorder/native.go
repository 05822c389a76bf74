package recorder

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/glcompat/gpucore"
)

// CreateTexture records the call and allocates a zeroed CPU texture.
func (r *Recorder) CreateTexture(format gpucore.FormatID, width, height uint32, usage gpucore.TextureUsage) (gpucore.TextureID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpCreateTexture); err != nil {
		return gpucore.InvalidID, err
	}
	bpt := format.BytesPerTexel()
	if bpt == 0 {
		return gpucore.InvalidID, fmt.Errorf("recorder: format %d: %w", format, gpucore.ErrUnsupportedFormat)
	}
	id := gpucore.TextureID(r.newIDLocked())
	r.textures[id] = &Texture{
		Format: format,
		Width:  width,
		Height: height,
		Pixels: make([]byte, int(width)*int(height)*bpt),
	}
	r.recordLocked(Call{Op: OpCreateTexture, ID: uint64(id), Format: format, Usage: uint32(usage), Width: width, Height: height})
	return id, nil
}

// UploadFullImage replaces the CPU texture contents.
func (r *Recorder) UploadFullImage(id gpucore.TextureID, width, height uint32, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpUploadFullImage); err != nil {
		return err
	}
	tex, ok := r.textures[id]
	if !ok {
		return fmt.Errorf("recorder: texture %d: %w", id, gpucore.ErrUnknownHandle)
	}
	if width != tex.Width || height != tex.Height {
		return fmt.Errorf("recorder: full upload %dx%d into %dx%d texture: %w",
			width, height, tex.Width, tex.Height, gpucore.ErrOutOfBounds)
	}
	n := copy(tex.Pixels, data)
	clear(tex.Pixels[n:])
	r.recordLocked(Call{Op: OpUploadFullImage, ID: uint64(id), Width: width, Height: height, Bytes: slices.Clone(data)})
	return nil
}

// UploadSubImage writes the dense rectangle into the CPU texture.
func (r *Recorder) UploadSubImage(id gpucore.TextureID, offsetX, offsetY, width, height uint32, pixels []uint32,
	rowLength, skipPixels, skipRows, alignment int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpUploadSubImage); err != nil {
		return err
	}
	tex, ok := r.textures[id]
	if !ok {
		return fmt.Errorf("recorder: texture %d: %w", id, gpucore.ErrUnknownHandle)
	}
	if offsetX+width > tex.Width || offsetY+height > tex.Height || len(pixels) < int(width*height) {
		return fmt.Errorf("recorder: sub upload %dx%d at (%d,%d) into %dx%d texture: %w",
			width, height, offsetX, offsetY, tex.Width, tex.Height, gpucore.ErrOutOfBounds)
	}
	if tex.Format.BytesPerTexel() == 4 {
		for y := uint32(0); y < height; y++ {
			for x := uint32(0); x < width; x++ {
				off := ((offsetY+y)*tex.Width + offsetX + x) * 4
				binary.LittleEndian.PutUint32(tex.Pixels[off:], pixels[y*width+x])
			}
		}
	}
	r.recordLocked(Call{
		Op: OpUploadSubImage, ID: uint64(id),
		X: int32(offsetX), Y: int32(offsetY), Width: width, Height: height,
		Pixels: slices.Clone(pixels),
		Params: []int32{rowLength, skipPixels, skipRows, alignment},
	})
	return nil
}

// DropTexture forgets the CPU texture.
func (r *Recorder) DropTexture(id gpucore.TextureID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.textures, id)
	r.recordLocked(Call{Op: OpDropTexture, ID: uint64(id)})
}

// CreateBuffer records the call and allocates the CPU buffer.
func (r *Recorder) CreateBuffer(label string, usage gpucore.BufferUsage, size uint64, data []byte) (gpucore.BufferID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpCreateBuffer); err != nil {
		return gpucore.InvalidID, err
	}
	if data != nil {
		size = uint64(len(data))
	}
	buf := make([]byte, size)
	copy(buf, data)
	id := gpucore.BufferID(r.newIDLocked())
	r.buffers[id] = buf
	r.recordLocked(Call{Op: OpCreateBuffer, ID: uint64(id), Label: label, Usage: uint32(usage), Count: uint32(size)})
	return id, nil
}

// DropBuffer forgets the CPU buffer.
func (r *Recorder) DropBuffer(id gpucore.BufferID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, id)
	r.recordLocked(Call{Op: OpDropBuffer, ID: uint64(id)})
}

// UsePipeline selects the pipeline for following draws and clears the
// attached textures.
func (r *Recorder) UsePipeline(id gpucore.PipelineID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.pipeline = id
	clear(r.state.textures)
	r.recordLocked(Call{Op: OpUsePipeline, ID: uint64(id)})
}

// AttachTexture binds a texture to a slot of the current pipeline.
func (r *Recorder) AttachTexture(slot uint32, id gpucore.TextureID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.textures[slot] = id
	r.recordLocked(Call{Op: OpAttachTexture, ID: uint64(id), Count: slot})
}

// SetTransform sets the column-major matrix for following draws.
func (r *Recorder) SetTransform(matrix [16]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.transform = matrix
	r.recordLocked(Call{Op: OpSetTransform, Matrix: matrix[:]})
}

// SetVertexData copies data; the caller may recycle it after the call.
func (r *Recorder) SetVertexData(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.vertices = slices.Clone(data)
	r.recordLocked(Call{Op: OpSetVertexData, Bytes: r.state.vertices})
}

// SetIndexData copies indices; the caller may recycle them after the call.
func (r *Recorder) SetIndexData(indices []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.indices = slices.Clone(indices)
	r.recordLocked(Call{Op: OpSetIndexData, Indices: r.state.indices})
}

// Draw records a non-indexed draw with a snapshot of the current state.
func (r *Recorder) Draw(count uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, r.snapshotLocked(false, count))
	r.recordLocked(Call{Op: OpDraw, Count: count})
}

// DrawIndexed records an indexed draw with a snapshot of the current state.
func (r *Recorder) DrawIndexed(count uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, r.snapshotLocked(true, count))
	r.recordLocked(Call{Op: OpDrawIndexed, Count: count})
}

func (r *Recorder) snapshotLocked(indexed bool, count uint32) DrawCall {
	d := DrawCall{
		Pipeline:  r.state.pipeline,
		Textures:  maps.Clone(r.state.textures),
		Transform: r.state.transform,
		Vertices:  r.state.vertices,
		Indexed:   indexed,
		Count:     count,
	}
	if indexed {
		d.Indices = r.state.indices
	}
	return d
}

// CreatePalette stores a copy of entries.
func (r *Recorder) CreatePalette(entries []gpucore.BlockState) (gpucore.PaletteID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpCreatePalette); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.PaletteID(r.newIDLocked())
	r.palettes[id] = slices.Clone(entries)
	handles := make([]uint64, len(entries))
	for i, e := range entries {
		handles[i] = uint64(e)
	}
	r.recordLocked(Call{Op: OpCreatePalette, ID: uint64(id), Handles: handles})
	return id, nil
}

func (r *Recorder) DestroyPalette(id gpucore.PaletteID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.palettes, id)
	r.recordLocked(Call{Op: OpDestroyPalette, ID: uint64(id)})
}

// CreatePaletteStorage stores a copy of the packed words and descriptors.
func (r *Recorder) CreatePaletteStorage(words []uint64, elementsPerWord, bitsPerElement int32, maxValue uint64,
	indexScale, indexOffset, indexShift int32, size int32) (gpucore.StorageID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpCreatePaletteStorage); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.StorageID(r.newIDLocked())
	r.storages[id] = &Storage{
		Words:           slices.Clone(words),
		ElementsPerWord: elementsPerWord,
		BitsPerElement:  bitsPerElement,
		MaxValue:        maxValue,
		IndexScale:      indexScale,
		IndexOffset:     indexOffset,
		IndexShift:      indexShift,
		Size:            size,
	}
	r.recordLocked(Call{
		Op: OpCreatePaletteStorage, ID: uint64(id), Count: uint32(size),
		Params: []int32{elementsPerWord, bitsPerElement, indexScale, indexOffset, indexShift},
	})
	return id, nil
}

func (r *Recorder) DestroyPaletteStorage(id gpucore.StorageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.storages, id)
	r.recordLocked(Call{Op: OpDestroyStorage, ID: uint64(id)})
}

// CreateChunk stores the handle arrays and light data of a chunk column.
func (r *Recorder) CreateChunk(x, z int32, palettes [gpucore.SectionsPerChunk]gpucore.PaletteID,
	storages [gpucore.SectionsPerChunk]gpucore.StorageID, blockLight, skyLight []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpCreateChunk); err != nil {
		return err
	}
	r.chunks[[2]int32{x, z}] = &Chunk{
		Palettes:   palettes,
		Storages:   storages,
		BlockLight: slices.Clone(blockLight),
		SkyLight:   slices.Clone(skyLight),
	}
	handles := make([]uint64, 0, 2*gpucore.SectionsPerChunk)
	for _, p := range palettes {
		handles = append(handles, uint64(p))
	}
	for _, s := range storages {
		handles = append(handles, uint64(s))
	}
	r.recordLocked(Call{Op: OpCreateChunk, X: x, Y: z, Handles: handles})
	return nil
}

// BakeChunk marks a created chunk as baked.
func (r *Recorder) BakeChunk(x, z int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked(OpBakeChunk); err != nil {
		return err
	}
	c, ok := r.chunks[[2]int32{x, z}]
	if !ok {
		return fmt.Errorf("recorder: chunk (%d,%d) was never created: %w", x, z, gpucore.ErrUnknownHandle)
	}
	c.Baked = true
	r.recordLocked(Call{Op: OpBakeChunk, X: x, Y: z})
	return nil
}
