package recorder

import (
	"slices"

	"github.com/gogpu/glcompat/gpucore"
)

// Texture returns a copy of the CPU model of a live texture.
func (r *Recorder) Texture(id gpucore.TextureID) (Texture, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.textures[id]
	if !ok {
		return Texture{}, false
	}
	out := *t
	out.Pixels = slices.Clone(t.Pixels)
	return out, true
}

// Buffer returns a copy of a live buffer's contents.
func (r *Recorder) Buffer(id gpucore.BufferID) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[id]
	return slices.Clone(b), ok
}

// Palette returns a copy of a live palette.
func (r *Recorder) Palette(id gpucore.PaletteID) ([]gpucore.BlockState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.palettes[id]
	return slices.Clone(p), ok
}

// Storage returns a copy of a live packed storage.
func (r *Recorder) Storage(id gpucore.StorageID) (Storage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.storages[id]
	if !ok {
		return Storage{}, false
	}
	out := *s
	out.Words = slices.Clone(s.Words)
	return out, true
}

// Chunk returns a copy of a created chunk column.
func (r *Recorder) Chunk(x, z int32) (Chunk, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chunks[[2]int32{x, z}]
	if !ok {
		return Chunk{}, false
	}
	out := *c
	out.BlockLight = slices.Clone(c.BlockLight)
	out.SkyLight = slices.Clone(c.SkyLight)
	return out, true
}

// Live reports the number of live textures, buffers, palettes and storages.
func (r *Recorder) Live() (textures, buffers, palettes, storages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures), len(r.buffers), len(r.palettes), len(r.storages)
}
