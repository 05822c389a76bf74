package native

import (
	"fmt"

	"github.com/gogpu/glcompat/gpucore"
	"github.com/gogpu/gputypes"
)

// textureFormat maps a native format id to its wgpu format.
func textureFormat(f gpucore.FormatID) (gputypes.TextureFormat, error) {
	switch f {
	case gpucore.FormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case gpucore.FormatR8:
		return gputypes.TextureFormatR8Unorm, nil
	case gpucore.FormatR8Int:
		return gputypes.TextureFormatR8Sint, nil
	case gpucore.FormatDepth32:
		return gputypes.TextureFormatDepth32Float, nil
	default:
		return gputypes.TextureFormatUndefined, fmt.Errorf("format %d: %w", f, gpucore.ErrUnsupportedFormat)
	}
}

func textureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.TextureUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.TextureUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.TextureUsageTextureBinding != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.TextureUsageStorageBinding != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	if u&gpucore.TextureUsageRenderAttachment != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

// bufferUsage maps usage flags. Every buffer also gets CopyDst so the queue
// can write it.
func bufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	out := gputypes.BufferUsageCopyDst
	if u&gpucore.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if u&gpucore.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&gpucore.BufferUsageStorage != 0 {
		out |= gputypes.BufferUsageStorage
	}
	return out
}

// vertexLayout returns the vertex buffer layout of a pipeline. Shader
// locations are 0 position, 1 color, 2 texture coordinate, 3 light.
func vertexLayout(p gpucore.PipelineID) gputypes.VertexBufferLayout {
	var attrs []gputypes.VertexAttribute
	switch p {
	case gpucore.PipelinePositionColor:
		attrs = []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: 1},
		}
	case gpucore.PipelinePositionTexture:
		attrs = []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 2},
		}
	case gpucore.PipelinePositionColorFloat:
		attrs = []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
		}
	case gpucore.PipelineText:
		attrs = []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 16, ShaderLocation: 2},
			{Format: gputypes.VertexFormatUint16x2, Offset: 24, ShaderLocation: 3},
		}
	case gpucore.PipelinePositionTextureColor:
		attrs = []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 2},
			{Format: gputypes.VertexFormatUnorm8x4, Offset: 20, ShaderLocation: 1},
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: p.VertexStride(),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}
