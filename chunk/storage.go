package chunk

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/gogpu/glcompat/gpucore"
)

// ErrMalformed reports a section whose descriptors or contents break the
// packing rules. The bridge treats such sections as empty.
var ErrMalformed = errors.New("chunk: malformed section")

// Storage is a dense bit-packed array of palette indices.
//
// Each 64-bit word holds ElementsPerWord values of BitsPerElement bits,
// starting at the low bits; values never straddle words. The word holding
// cell i is found with a multiply-shift division:
//
//	word = ((i*uint32(scale) + uint32(offset)) >> 32) >> shift
//
// which lets the descriptors travel unchanged to a backend that indexes the
// same words.
type Storage struct {
	words           []uint64
	elementsPerWord int32
	bitsPerElement  int32
	maxValue        uint64
	indexScale      int32
	indexOffset     int32
	indexShift      int32
	size            int32
}

// NewStorage packs values at the given width. bitsPerElement must be in
// [1, 32] and every value must fit in it.
func NewStorage(bitsPerElement int, values []uint32) (*Storage, error) {
	if bitsPerElement < 1 || bitsPerElement > 32 {
		return nil, fmt.Errorf("%d bits per element: %w", bitsPerElement, ErrMalformed)
	}
	perWord := 64 / bitsPerElement
	scale, offset, shift := divisionParams(uint32(perWord))
	s := &Storage{
		words:           make([]uint64, (len(values)+perWord-1)/perWord),
		elementsPerWord: int32(perWord),
		bitsPerElement:  int32(bitsPerElement),
		maxValue:        1<<uint(bitsPerElement) - 1,
		indexScale:      scale,
		indexOffset:     offset,
		indexShift:      shift,
		size:            int32(len(values)),
	}
	for i, v := range values {
		if uint64(v) > s.maxValue {
			return nil, fmt.Errorf("value %d at %d exceeds %d bits: %w", v, i, bitsPerElement, ErrMalformed)
		}
		s.Set(i, v)
	}
	return s, nil
}

// NewStorageFromWords wraps words packed by the client together with their
// descriptors. Nothing is checked until Validate.
func NewStorageFromWords(words []uint64, elementsPerWord, bitsPerElement int32, maxValue uint64,
	indexScale, indexOffset, indexShift, size int32) *Storage {
	return &Storage{
		words:           words,
		elementsPerWord: elementsPerWord,
		bitsPerElement:  bitsPerElement,
		maxValue:        maxValue,
		indexScale:      indexScale,
		indexOffset:     indexOffset,
		indexShift:      indexShift,
		size:            size,
	}
}

// divisionParams returns multiply-shift constants computing i/n for every
// i < 2^16. n == 1 cannot use a 2^32 multiplier, so it multiplies by
// 2^32-1 and adds 2^32-1 instead.
func divisionParams(n uint32) (scale, offset, shift int32) {
	if n <= 1 {
		return -1, -1, 0
	}
	m := (uint64(1)<<32 + uint64(n) - 1) / uint64(n)
	return int32(uint32(m)), 0, 0
}

func (s *Storage) wordIndex(index int) int {
	scaled := uint64(index)*uint64(uint32(s.indexScale)) + uint64(uint32(s.indexOffset))
	return int((scaled >> 32) >> uint(s.indexShift))
}

func (s *Storage) bitOffset(index, word int) uint {
	return uint((index - word*int(s.elementsPerWord)) * int(s.bitsPerElement))
}

// Get returns the value of cell index. index must be in [0, Size()).
func (s *Storage) Get(index int) uint32 {
	w := s.wordIndex(index)
	return uint32((s.words[w] >> s.bitOffset(index, w)) & s.maxValue)
}

// Set stores v in cell index, truncated to the element width.
func (s *Storage) Set(index int, v uint32) {
	w := s.wordIndex(index)
	off := s.bitOffset(index, w)
	s.words[w] = s.words[w]&^(s.maxValue<<off) | (uint64(v)&s.maxValue)<<off
}

// Swap stores v in cell index and returns the previous value.
func (s *Storage) Swap(index int, v uint32) uint32 {
	old := s.Get(index)
	s.Set(index, v)
	return old
}

// Size returns the number of cells.
func (s *Storage) Size() int { return int(s.size) }

// Words returns the packed words. The slice is shared.
func (s *Storage) Words() []uint64 { return s.words }

// BitsPerElement returns the element width.
func (s *Storage) BitsPerElement() int { return int(s.bitsPerElement) }

// Validate checks the descriptors against the packing rules and every stored
// index against a palette of paletteLen entries.
func (s *Storage) Validate(paletteLen int) error {
	switch {
	case s.size != gpucore.SectionCells:
		return fmt.Errorf("size %d, want %d: %w", s.size, gpucore.SectionCells, ErrMalformed)
	case s.bitsPerElement < 1 || s.bitsPerElement > 32:
		return fmt.Errorf("%d bits per element: %w", s.bitsPerElement, ErrMalformed)
	case s.elementsPerWord < 1 || s.elementsPerWord*s.bitsPerElement > 64:
		return fmt.Errorf("%d elements of %d bits per word: %w", s.elementsPerWord, s.bitsPerElement, ErrMalformed)
	case s.maxValue != 1<<uint(s.bitsPerElement)-1:
		return fmt.Errorf("max value %#x for %d bits: %w", s.maxValue, s.bitsPerElement, ErrMalformed)
	case s.indexShift < 0 || s.indexShift > 31:
		return fmt.Errorf("index shift %d: %w", s.indexShift, ErrMalformed)
	}
	for i := range int(s.size) {
		w := s.wordIndex(i)
		if w >= len(s.words) {
			return fmt.Errorf("cell %d maps to word %d of %d: %w", i, w, len(s.words), ErrMalformed)
		}
		if s.bitOffset(i, w)+uint(s.bitsPerElement) > 64 {
			return fmt.Errorf("cell %d straddles word %d: %w", i, w, ErrMalformed)
		}
		if v := s.Get(i); int(v) >= paletteLen {
			return fmt.Errorf("cell %d index %d outside palette of %d: %w", i, v, paletteLen, ErrMalformed)
		}
	}
	return nil
}

// PositionIndex returns the cell index of a position inside a section.
// Coordinates are masked to 4 bits.
func PositionIndex(x, y, z int) int {
	x, y, z = x&0xf, y&0xf, z&0xf
	return (y<<4|z)<<4 | x
}

// bitsFor returns the element width needed to index n palette entries.
func bitsFor(n int) int {
	if n <= 2 {
		return 1
	}
	return bits.Len(uint(n - 1))
}
