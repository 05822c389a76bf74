// Package draw translates legacy client draw calls into backend pipeline
// draws.
package draw

import (
	"fmt"

	"github.com/gogpu/glcompat/gpucore"
)

// VertexFormat enumerates the vertex layouts a client can submit.
type VertexFormat int

const (
	VertexFormatUnknown VertexFormat = iota

	// VertexFormatPositionColor is position + unorm8x4 color.
	VertexFormatPositionColor

	// VertexFormatPositionColorFloat is position + float32x4 color.
	VertexFormatPositionColorFloat

	// VertexFormatPositionTexture is position + texture coordinate.
	VertexFormatPositionTexture

	// VertexFormatPositionColorTextureLight is the text layout: position +
	// color + texture coordinate + packed light coordinate.
	VertexFormatPositionColorTextureLight

	// VertexFormatPositionTextureColor is position + texture + color.
	VertexFormatPositionTextureColor

	// Layouts below are known but have no backend pipeline.

	VertexFormatPosition
	VertexFormatPositionColorNormal
	VertexFormatPositionColorTextureLightNormal
	VertexFormatPositionTextureColorNormal
)

var formatNames = map[VertexFormat]string{
	VertexFormatUnknown:                         "unknown",
	VertexFormatPositionColor:                   "position_color",
	VertexFormatPositionColorFloat:              "position_color_float",
	VertexFormatPositionTexture:                 "position_texture",
	VertexFormatPositionColorTextureLight:       "position_color_texture_light",
	VertexFormatPositionTextureColor:            "position_texture_color",
	VertexFormatPosition:                        "position",
	VertexFormatPositionColorNormal:             "position_color_normal",
	VertexFormatPositionColorTextureLightNormal: "position_color_texture_light_normal",
	VertexFormatPositionTextureColorNormal:      "position_texture_color_normal",
}

func (f VertexFormat) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("VertexFormat(%d)", int(f))
}

// SelectPipeline maps a vertex layout to its backend pipeline.
// Layouts without a pipeline fail with gpucore.ErrSkipDraw.
func SelectPipeline(f VertexFormat) (gpucore.PipelineID, error) {
	switch f {
	case VertexFormatPositionColor:
		return gpucore.PipelinePositionColor, nil
	case VertexFormatPositionTexture:
		return gpucore.PipelinePositionTexture, nil
	case VertexFormatPositionColorFloat:
		return gpucore.PipelinePositionColorFloat, nil
	case VertexFormatPositionColorTextureLight:
		return gpucore.PipelineText, nil
	case VertexFormatPositionTextureColor:
		return gpucore.PipelinePositionTextureColor, nil
	default:
		return 0, fmt.Errorf("vertex format %v: %w", f, gpucore.ErrSkipDraw)
	}
}

// Topology is a primitive mode. Values match the legacy mode enumerants.
type Topology uint32

const (
	TopologyPoints        Topology = 0x0000
	TopologyLines         Topology = 0x0001
	TopologyLineLoop      Topology = 0x0002
	TopologyLineStrip     Topology = 0x0003
	TopologyTriangles     Topology = 0x0004
	TopologyTriangleStrip Topology = 0x0005
	TopologyTriangleFan   Topology = 0x0006
	TopologyQuads         Topology = 0x0007
)

func (t Topology) String() string {
	switch t {
	case TopologyPoints:
		return "points"
	case TopologyLines:
		return "lines"
	case TopologyLineLoop:
		return "line_loop"
	case TopologyLineStrip:
		return "line_strip"
	case TopologyTriangles:
		return "triangles"
	case TopologyTriangleStrip:
		return "triangle_strip"
	case TopologyTriangleFan:
		return "triangle_fan"
	case TopologyQuads:
		return "quads"
	default:
		return fmt.Sprintf("Topology(%#x)", uint32(t))
	}
}
