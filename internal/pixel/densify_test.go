package pixel

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/glcompat/gpucore"
)

// sourceImage returns a w x h image whose pixel at (x, y) holds y<<16 | x.
func sourceImage(w, h int) []byte {
	buf := make([]byte, w*h*BytesPerPixel)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			binary.LittleEndian.PutUint32(buf[(y*w+x)*4:], uint32(y)<<16|uint32(x))
		}
	}
	return buf
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	want := Params{RowLength: 0, SkipPixels: 0, SkipRows: 0, Alignment: 4}
	if p != want {
		t.Errorf("DefaultParams() = %+v, want %+v", p, want)
	}
}

func TestParamsSet(t *testing.T) {
	p := DefaultParams()
	for _, tt := range []struct {
		name  uint32
		value int32
	}{
		{UnpackRowLength, 20},
		{UnpackSkipPixels, 3},
		{UnpackSkipRows, 2},
		{UnpackAlignment, 1},
	} {
		if !p.Set(tt.name, tt.value) {
			t.Errorf("Set(%#x) not recognized", tt.name)
		}
	}
	want := Params{RowLength: 20, SkipPixels: 3, SkipRows: 2, Alignment: 1}
	if p != want {
		t.Errorf("params = %+v, want %+v", p, want)
	}
	if p.Set(0x0D05, 8) {
		t.Error("Set(PACK_ALIGNMENT) recognized, want ignored")
	}
	if p != want {
		t.Errorf("unknown Set mutated params to %+v", p)
	}
}

func TestDensifyOffsetLaw(t *testing.T) {
	const srcW, srcH = 24, 20
	src := sourceImage(srcW, srcH)

	for _, rowLength := range []int32{0, 8, 24} {
		for _, skipPixels := range []int32{0, 1, 5} {
			for _, skipRows := range []int32{0, 2} {
				for _, size := range [][2]int{{1, 1}, {4, 4}, {3, 7}, {8, 2}} {
					w, h := size[0], size[1]
					p := Params{RowLength: rowLength, SkipPixels: skipPixels, SkipRows: skipRows, Alignment: 4}
					row := p.EffectiveRow(w)
					// Only exercise windows that stay inside the source.
					last := (w - 1 + int(skipPixels)) + (h-1+int(skipRows))*row
					if (last+1)*4 > len(src) {
						continue
					}
					got, err := Densify(nil, src, w, h, p, AlignmentIgnore)
					if err != nil {
						t.Fatalf("Densify(%+v, %dx%d) error = %v", p, w, h, err)
					}
					for y := 0; y < h; y++ {
						for x := 0; x < w; x++ {
							off := ((x + int(skipPixels)) + (y+int(skipRows))*row) * 4
							want := binary.LittleEndian.Uint32(src[off:])
							if got[x+y*w] != want {
								t.Fatalf("params %+v size %dx%d: pixel (%d,%d) = %#x, want %#x",
									p, w, h, x, y, got[x+y*w], want)
							}
						}
					}
				}
			}
		}
	}
}

func TestDensifyRowLengthWindow(t *testing.T) {
	// A 20 pixel wide source, of which only the top-left 4x4 is uploaded.
	src := sourceImage(20, 6)
	p := DefaultParams()
	p.Set(UnpackRowLength, 20)

	got, err := Densify(nil, src, 4, 4, p, AlignmentIgnore)
	if err != nil {
		t.Fatalf("Densify error = %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := uint32(y)<<16 | uint32(x)
			if got[x+y*4] != want {
				t.Errorf("pixel (%d,%d) = %#x, want %#x", x, y, got[x+y*4], want)
			}
		}
	}
}

func TestDensifyAlignmentModes(t *testing.T) {
	// 3 pixel rows with alignment 8 pad to 16 bytes (4 pixels).
	src := sourceImage(4, 3)
	p := Params{Alignment: 8}

	ignored, err := Densify(nil, src, 3, 2, p, AlignmentIgnore)
	if err != nil {
		t.Fatalf("ignore mode error = %v", err)
	}
	// Row 1 starts right after 3 pixels: source (3, 0).
	if want := uint32(0)<<16 | 3; ignored[3] != want {
		t.Errorf("ignore mode pixel (0,1) = %#x, want %#x", ignored[3], want)
	}

	padded, err := Densify(nil, src, 3, 2, p, AlignmentPadRows)
	if err != nil {
		t.Fatalf("pad mode error = %v", err)
	}
	if want := uint32(1)<<16 | 0; padded[3] != want {
		t.Errorf("pad mode pixel (0,1) = %#x, want %#x", padded[3], want)
	}
}

func TestDensifyShortSource(t *testing.T) {
	src := sourceImage(4, 4)
	p := Params{SkipRows: 2, Alignment: 4}
	_, err := Densify(nil, src, 4, 4, p, AlignmentIgnore)
	if !errors.Is(err, gpucore.ErrOutOfBounds) {
		t.Errorf("Densify past end error = %v, want ErrOutOfBounds", err)
	}

	p = Params{SkipPixels: -1, Alignment: 4}
	_, err = Densify(nil, src, 2, 2, p, AlignmentIgnore)
	if !errors.Is(err, gpucore.ErrOutOfBounds) {
		t.Errorf("Densify before start error = %v, want ErrOutOfBounds", err)
	}
}

func TestDensifyReusesBuffer(t *testing.T) {
	src := sourceImage(8, 8)
	buf := make([]uint32, 0, 64)
	got, err := Densify(buf, src, 4, 4, DefaultParams(), AlignmentIgnore)
	if err != nil {
		t.Fatal(err)
	}
	if &got[0] != &buf[:1][0] {
		t.Error("Densify allocated although dst had capacity")
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ n, a, want int }{
		{12, 1, 12},
		{12, 4, 12},
		{12, 8, 16},
		{13, 2, 14},
		{12, 3, 12},
		{12, 0, 12},
	}
	for _, tt := range tests {
		if got := alignUp(tt.n, tt.a); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.a, got, tt.want)
		}
	}
}

func TestSupportedAndModes(t *testing.T) {
	if !Supported(FormatRGBA) || !Supported(FormatBGRA) {
		t.Error("RGBA/BGRA should be supported")
	}
	if Supported(0x1907) {
		t.Error("RGB should not be supported")
	}
	for _, m := range []AlignmentMode{AlignmentIgnore, AlignmentPadRows} {
		got, ok := ParseAlignmentMode(m.String())
		if !ok || got != m {
			t.Errorf("ParseAlignmentMode(%q) = %v, %v", m.String(), got, ok)
		}
	}
	if _, ok := ParseAlignmentMode("strict"); ok {
		t.Error("ParseAlignmentMode accepted an unknown mode")
	}
}

func TestBytes(t *testing.T) {
	got := Bytes(nil, []uint32{0x04030201, 0x08070605})
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if string(got) != string(want) {
		t.Errorf("Bytes = %v, want %v", got, want)
	}
}
