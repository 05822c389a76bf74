package chunk

import (
	"errors"
	"testing"

	"github.com/gogpu/glcompat/gpucore"
)

func TestPaletteIndexOrder(t *testing.T) {
	p := NewPalette(7, 3, 7, 11)
	if p.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", p.Len())
	}
	want := []gpucore.BlockState{7, 3, 11}
	for i, s := range want {
		if got := p.Get(uint32(i)); got != s {
			t.Errorf("Get(%d) = %d, want %d", i, got, s)
		}
		if got := p.Index(s); got != uint32(i) {
			t.Errorf("Index(%d) = %d, want %d", s, got, i)
		}
	}
	if got := p.Index(99); got != 3 {
		t.Errorf("Index of new state = %d, want 3", got)
	}
	if got := p.Get(1000); got != 7 {
		t.Errorf("out-of-range Get = %d, want entry 0 (7)", got)
	}

	var empty Palette
	if empty.Get(0) != 0 {
		t.Error("empty palette Get should be 0")
	}
	if empty.Index(5) != 0 || empty.Len() != 1 {
		t.Error("zero Palette should accept entries")
	}
}

func TestDivisionParams(t *testing.T) {
	for perWord := uint32(1); perWord <= 64; perWord++ {
		scale, offset, shift := divisionParams(perWord)
		s := &Storage{indexScale: scale, indexOffset: offset, indexShift: shift}
		for i := 0; i < 1<<16; i += 7 {
			if got, want := s.wordIndex(i), i/int(perWord); got != want {
				t.Fatalf("perWord %d: word(%d) = %d, want %d", perWord, i, got, want)
			}
		}
	}
}

func TestStorageGetSetSwap(t *testing.T) {
	for _, bits := range []int{1, 4, 5, 7, 15, 21, 32} {
		values := make([]uint32, gpucore.SectionCells)
		limit := uint64(1) << uint(bits)
		for i := range values {
			values[i] = uint32(uint64(i*2654435761) % limit)
		}
		s, err := NewStorage(bits, values)
		if err != nil {
			t.Fatalf("bits %d: %v", bits, err)
		}
		for i, v := range values {
			if got := s.Get(i); got != v {
				t.Fatalf("bits %d: Get(%d) = %d, want %d", bits, i, got, v)
			}
		}
		// Writing one cell never disturbs its neighbours.
		mx := uint32(limit - 1)
		if old := s.Swap(100, mx); old != values[100] {
			t.Errorf("bits %d: Swap returned %d, want %d", bits, old, values[100])
		}
		if s.Get(100) != mx || s.Get(99) != values[99] || s.Get(101) != values[101] {
			t.Errorf("bits %d: Swap disturbed neighbours", bits)
		}
		s.Set(100, 0)
		if s.Get(100) != 0 || s.Get(99) != values[99] || s.Get(101) != values[101] {
			t.Errorf("bits %d: Set disturbed neighbours", bits)
		}
	}
}

func TestNewStorageRejects(t *testing.T) {
	if _, err := NewStorage(0, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("0 bits error = %v", err)
	}
	if _, err := NewStorage(33, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("33 bits error = %v", err)
	}
	if _, err := NewStorage(2, []uint32{4}); !errors.Is(err, ErrMalformed) {
		t.Errorf("oversized value error = %v", err)
	}
}

func TestStorageValidate(t *testing.T) {
	good, err := NewStorage(4, make([]uint32, gpucore.SectionCells))
	if err != nil {
		t.Fatal(err)
	}
	if err := good.Validate(1); err != nil {
		t.Fatalf("valid storage: %v", err)
	}
	good.Set(5, 3)
	if err := good.Validate(3); !errors.Is(err, ErrMalformed) {
		t.Errorf("index beyond palette error = %v", err)
	}

	words := good.Words()
	tests := []struct {
		name string
		s    *Storage
	}{
		{"short", NewStorageFromWords(words, 16, 4, 15, good.indexScale, 0, 0, 100)},
		{"zero bits", NewStorageFromWords(words, 16, 0, 0, good.indexScale, 0, 0, 4096)},
		{"overfull word", NewStorageFromWords(words, 17, 4, 15, good.indexScale, 0, 0, 4096)},
		{"max value", NewStorageFromWords(words, 16, 4, 7, good.indexScale, 0, 0, 4096)},
		{"shift", NewStorageFromWords(words, 16, 4, 15, good.indexScale, 0, 40, 4096)},
		{"missing words", NewStorageFromWords(words[:10], 16, 4, 15, good.indexScale, 0, 0, 4096)},
		{"bad scale", NewStorageFromWords(words, 16, 4, 15, -1, -1, 0, 4096)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.s.Validate(16); !errors.Is(err, ErrMalformed) {
				t.Errorf("Validate = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestPositionIndex(t *testing.T) {
	if got := PositionIndex(1, 2, 3); got != (2<<4|3)<<4|1 {
		t.Errorf("PositionIndex(1,2,3) = %d", got)
	}
	if PositionIndex(17, 0, 0) != 1 || PositionIndex(-1, 0, 0) != 15 {
		t.Error("coordinates not masked to 4 bits")
	}
	if PositionIndex(15, 15, 15) != gpucore.SectionCells-1 {
		t.Error("top corner is not the last cell")
	}
}

func TestEncode(t *testing.T) {
	states := make([]gpucore.BlockState, gpucore.SectionCells)
	for i := range states {
		states[i] = gpucore.NewBlockState(uint16(i%5), 0)
	}
	sec, err := Encode(states)
	if err != nil {
		t.Fatal(err)
	}
	if sec.Palette.Len() != 5 || sec.Storage.BitsPerElement() != 3 {
		t.Errorf("palette %d entries at %d bits", sec.Palette.Len(), sec.Storage.BitsPerElement())
	}
	if err := sec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := sec.State(3, 0, 0); got != states[3] {
		t.Errorf("State(3,0,0) = %v, want %v", got, states[3])
	}
	if _, err := Encode(states[:10]); !errors.Is(err, ErrMalformed) {
		t.Errorf("short Encode error = %v", err)
	}

	sec.BlockLight = make([]byte, 10)
	if err := sec.Validate(); !errors.Is(err, ErrMalformed) {
		t.Errorf("short light array error = %v", err)
	}
}
