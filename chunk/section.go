package chunk

import (
	"fmt"

	"github.com/gogpu/glcompat/gpucore"
)

// Section is one 16x16x16 slice of a chunk column.
type Section struct {
	Palette *Palette
	Storage *Storage

	// BlockLight and SkyLight are nibble arrays of gpucore.LightArraySize
	// bytes. Nil means unlit.
	BlockLight []byte
	SkyLight   []byte
}

// Encode builds a section from gpucore.SectionCells block states in cell
// order (see PositionIndex), using the narrowest element width that indexes
// the resulting palette.
func Encode(states []gpucore.BlockState) (*Section, error) {
	if len(states) != gpucore.SectionCells {
		return nil, fmt.Errorf("%d states, want %d: %w", len(states), gpucore.SectionCells, ErrMalformed)
	}
	pal := NewPalette()
	indices := make([]uint32, len(states))
	for i, s := range states {
		indices[i] = pal.Index(s)
	}
	st, err := NewStorage(bitsFor(pal.Len()), indices)
	if err != nil {
		return nil, err
	}
	return &Section{Palette: pal, Storage: st}, nil
}

// State returns the block state at a position inside the section.
func (s *Section) State(x, y, z int) gpucore.BlockState {
	return s.Palette.Get(s.Storage.Get(PositionIndex(x, y, z)))
}

// Validate checks that the section can be transferred.
func (s *Section) Validate() error {
	if s.Palette == nil || s.Storage == nil {
		return fmt.Errorf("missing palette or storage: %w", ErrMalformed)
	}
	if s.Palette.Len() == 0 {
		return fmt.Errorf("empty palette: %w", ErrMalformed)
	}
	for _, light := range [][]byte{s.BlockLight, s.SkyLight} {
		if light != nil && len(light) != gpucore.LightArraySize {
			return fmt.Errorf("light array of %d bytes: %w", len(light), ErrMalformed)
		}
	}
	return s.Storage.Validate(s.Palette.Len())
}
