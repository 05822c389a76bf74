// Package pixel reproduces legacy unpack (pixel-store) semantics for
// sub-image uploads.
package pixel

// Pixel-store parameter names accepted by Params.Set.
const (
	UnpackRowLength  uint32 = 0x0CF2
	UnpackSkipRows   uint32 = 0x0CF3
	UnpackSkipPixels uint32 = 0x0CF4
	UnpackAlignment  uint32 = 0x0CF5
)

// Client pixel formats. Only the two 4-byte color layouts are uploaded.
const (
	FormatRGBA uint32 = 0x1908
	FormatBGRA uint32 = 0x80E1
)

// BytesPerPixel is the texel size of every supported client format.
const BytesPerPixel = 4

// Supported reports whether format is uploaded by sub-image calls.
// BGRA is passed through unswizzled, exactly like RGBA.
func Supported(format uint32) bool {
	return format == FormatRGBA || format == FormatBGRA
}

// AlignmentMode selects how the alignment parameter affects source rows.
type AlignmentMode int

const (
	// AlignmentIgnore accepts the alignment parameter but never pads source
	// rows with it, matching the legacy bridge.
	AlignmentIgnore AlignmentMode = iota

	// AlignmentPadRows rounds every source row up to a multiple of the
	// alignment, like a conforming GL implementation.
	AlignmentPadRows
)

// String returns the config spelling of the mode.
func (m AlignmentMode) String() string {
	switch m {
	case AlignmentIgnore:
		return "ignore"
	case AlignmentPadRows:
		return "pad"
	default:
		return "unknown"
	}
}

// ParseAlignmentMode parses the config spelling of a mode.
func ParseAlignmentMode(s string) (AlignmentMode, bool) {
	switch s {
	case "", "ignore":
		return AlignmentIgnore, true
	case "pad":
		return AlignmentPadRows, true
	default:
		return AlignmentIgnore, false
	}
}

// Params holds the unpack parameters that apply to the next sub-image upload.
type Params struct {
	RowLength  int32
	SkipPixels int32
	SkipRows   int32
	Alignment  int32
}

// DefaultParams returns {0, 0, 0, 4}.
func DefaultParams() Params {
	return Params{Alignment: 4}
}

// Set stores value under name and reports whether the name is known.
// Unknown names are ignored.
func (p *Params) Set(name uint32, value int32) bool {
	switch name {
	case UnpackRowLength:
		p.RowLength = value
	case UnpackSkipRows:
		p.SkipRows = value
	case UnpackSkipPixels:
		p.SkipPixels = value
	case UnpackAlignment:
		p.Alignment = value
	default:
		return false
	}
	return true
}

// EffectiveRow returns the source row length in pixels for an upload width.
func (p Params) EffectiveRow(width int) int {
	if p.RowLength > 0 {
		return int(p.RowLength)
	}
	return width
}
