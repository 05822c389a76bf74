// Package chunk converts paletted, bit-packed chunk sections into
// backend-owned palette and storage handles.
//
// A chunk column has gpucore.SectionsPerChunk sections stacked bottom to top.
// Each section is a Palette of distinct block states plus a Storage holding
// one palette index per cell. The Bridge transfers both halves to the
// backend as independently owned objects, keeps track of who owns which
// handle, and releases superseded handles as soon as their replacement has
// been published.
package chunk

import "github.com/gogpu/glcompat/gpucore"

// Palette is an ordered list of distinct block states. The position of a
// state in the list is the value a Storage stores for it.
type Palette struct {
	entries []gpucore.BlockState
	lookup  map[gpucore.BlockState]uint32
}

// NewPalette creates a palette holding states in order. Duplicates keep their
// first position.
func NewPalette(states ...gpucore.BlockState) *Palette {
	p := &Palette{lookup: make(map[gpucore.BlockState]uint32, len(states))}
	for _, s := range states {
		p.Index(s)
	}
	return p
}

// Index returns the index of state, appending it when missing.
func (p *Palette) Index(state gpucore.BlockState) uint32 {
	if p.lookup == nil {
		p.lookup = make(map[gpucore.BlockState]uint32)
	}
	if i, ok := p.lookup[state]; ok {
		return i
	}
	i := uint32(len(p.entries))
	p.entries = append(p.entries, state)
	p.lookup[state] = i
	return i
}

// Get returns the state at index i. Out-of-range indices resolve to entry 0,
// and an empty palette resolves everything to the zero state.
func (p *Palette) Get(i uint32) gpucore.BlockState {
	if int(i) < len(p.entries) {
		return p.entries[i]
	}
	if len(p.entries) == 0 {
		return 0
	}
	return p.entries[0]
}

// Entries returns the states in index order. The slice is shared; callers
// must not modify it.
func (p *Palette) Entries() []gpucore.BlockState {
	return p.entries
}

// Len returns the number of entries.
func (p *Palette) Len() int {
	return len(p.entries)
}
