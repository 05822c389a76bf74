package pixel

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/glcompat/gpucore"
)

// Densify gathers the width x height window described by p out of src into a
// tightly packed pixel slice, reusing dst's storage when it is large enough.
//
// Pixel (x, y) is read from byte offset
//
//	((x + SkipPixels) + (y + SkipRows) * row) * 4
//
// where row is RowLength when positive and width otherwise. In
// AlignmentPadRows mode the row stride in bytes is rounded up to the
// alignment first. Reading outside src fails with gpucore.ErrOutOfBounds.
func Densify(dst []uint32, src []byte, width, height int, p Params, mode AlignmentMode) ([]uint32, error) {
	n := width * height
	if cap(dst) < n {
		dst = make([]uint32, n)
	}
	dst = dst[:n]
	if n == 0 {
		return dst, nil
	}

	stride := p.EffectiveRow(width) * BytesPerPixel
	if mode == AlignmentPadRows {
		stride = alignUp(stride, int(p.Alignment))
	}
	skip := int(p.SkipPixels) * BytesPerPixel

	for y := 0; y < height; y++ {
		start := skip + (y+int(p.SkipRows))*stride
		end := start + width*BytesPerPixel
		if start < 0 || end > len(src) {
			return dst, fmt.Errorf("source row %d spans bytes [%d, %d) of %d: %w",
				y, start, end, len(src), gpucore.ErrOutOfBounds)
		}
		row := dst[y*width : (y+1)*width]
		for x := range row {
			row[x] = binary.LittleEndian.Uint32(src[start+x*BytesPerPixel:])
		}
	}
	return dst, nil
}

// alignUp rounds n up to a multiple of a. Alignments that are not a
// positive power of two leave n unchanged.
func alignUp(n, a int) int {
	if a <= 1 || a&(a-1) != 0 {
		return n
	}
	return (n + a - 1) &^ (a - 1)
}

// Bytes returns pixels as little-endian bytes, appending to dst.
func Bytes(dst []byte, pixels []uint32) []byte {
	for _, px := range pixels {
		dst = binary.LittleEndian.AppendUint32(dst, px)
	}
	return dst
}
