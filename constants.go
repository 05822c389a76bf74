package glcompat

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/glcompat/internal/draw"
	"github.com/gogpu/glcompat/internal/pixel"
)

// Pixel-store parameter names accepted by SetParameter.
const (
	UnpackRowLength  = pixel.UnpackRowLength
	UnpackSkipRows   = pixel.UnpackSkipRows
	UnpackSkipPixels = pixel.UnpackSkipPixels
	UnpackAlignment  = pixel.UnpackAlignment
)

// Client pixel formats. Sub-image uploads accept only FormatRGBA and
// FormatBGRA; SpecifyImage also accepts the single-channel and depth
// formats.
const (
	FormatRGBA           = pixel.FormatRGBA
	FormatBGRA           = pixel.FormatBGRA
	FormatRed            uint32 = 0x1903
	FormatRedInteger     uint32 = 0x8D94
	FormatDepthComponent uint32 = 0x1902
)

// VertexFormat identifies the vertex layout of a draw.
type VertexFormat = draw.VertexFormat

// Vertex layouts with a backend pipeline. Other layouts are skipped.
const (
	VertexFormatPositionColor             = draw.VertexFormatPositionColor
	VertexFormatPositionTexture           = draw.VertexFormatPositionTexture
	VertexFormatPositionColorFloat        = draw.VertexFormatPositionColorFloat
	VertexFormatPositionColorTextureLight = draw.VertexFormatPositionColorTextureLight
	VertexFormatPositionTextureColor      = draw.VertexFormatPositionTextureColor
)

// Topology is a legacy primitive mode.
type Topology = draw.Topology

// Supported primitive modes.
const (
	TopologyTriangles = draw.TopologyTriangles
	TopologyQuads     = draw.TopologyQuads
)

// Batch is one client draw call.
type Batch = draw.Batch

// Identity returns the identity matrix.
func Identity() f32.Mat4 { return draw.Identity() }

// Ortho returns an orthographic projection like glOrtho.
func Ortho(left, right, bottom, top, near, far float32) f32.Mat4 {
	return draw.Ortho(left, right, bottom, top, near, far)
}
