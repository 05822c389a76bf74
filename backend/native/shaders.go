package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glcompat/gpucore"
)

// Every pipeline reads its transform from group 0. Textured pipelines sample
// the attached texture from group 1.
const shaderPrelude = `
struct Transform {
    matrix: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> transform: Transform;
`

const texturePrelude = `
@group(1) @binding(0) var tex: texture_2d<f32>;
@group(1) @binding(1) var tex_sampler: sampler;
`

const colorShader = `
struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) color: vec4<f32>) -> VertexOut {
    var out: VertexOut;
    out.position = transform.matrix * vec4<f32>(position, 1.0);
    out.color = color;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return in.color;
}
`

const textureShader = `
struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(2) uv: vec2<f32>) -> VertexOut {
    var out: VertexOut;
    out.position = transform.matrix * vec4<f32>(position, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return textureSample(tex, tex_sampler, in.uv);
}
`

const textureColorShader = `
struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) color: vec4<f32>, @location(2) uv: vec2<f32>) -> VertexOut {
    var out: VertexOut;
    out.position = transform.matrix * vec4<f32>(position, 1.0);
    out.color = color;
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return textureSample(tex, tex_sampler, in.uv) * in.color;
}
`

// Light coordinates are packed block and sky levels scaled by 16.
const textShader = `
struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) uv: vec2<f32>,
    @location(2) light: f32,
}

@vertex
fn vs_main(
    @location(0) position: vec3<f32>,
    @location(1) color: vec4<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) light: vec2<u32>,
) -> VertexOut {
    var out: VertexOut;
    out.position = transform.matrix * vec4<f32>(position, 1.0);
    out.color = color;
    out.uv = uv;
    out.light = clamp(f32(max(light.x, light.y)) / 240.0, 0.05, 1.0);
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    let texel = textureSample(tex, tex_sampler, in.uv) * in.color;
    return vec4<f32>(texel.rgb * in.light, texel.a);
}
`

// shaderSource returns the complete WGSL of a pipeline.
func shaderSource(p gpucore.PipelineID) string {
	switch p {
	case gpucore.PipelinePositionColor, gpucore.PipelinePositionColorFloat:
		return shaderPrelude + colorShader
	case gpucore.PipelinePositionTexture:
		return shaderPrelude + texturePrelude + textureShader
	case gpucore.PipelineText:
		return shaderPrelude + texturePrelude + textShader
	case gpucore.PipelinePositionTextureColor:
		return shaderPrelude + texturePrelude + textureColorShader
	default:
		return ""
	}
}

// compileSPIRV compiles WGSL to SPIR-V words with naga.
func compileSPIRV(wgsl string) ([]uint32, error) {
	bytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(bytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not a multiple of 4", len(bytes))
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(bytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(bytes[i*4:])
	}
	return words, nil
}

func shaderModuleSource(wgsl string, spirv bool) (hal.ShaderSource, error) {
	if !spirv {
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	words, err := compileSPIRV(wgsl)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	return hal.ShaderSource{SPIRV: words}, nil
}
