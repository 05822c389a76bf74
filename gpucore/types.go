package gpucore

// Resource IDs
//
// These opaque IDs represent backend-owned objects. Each Native
// implementation maintains the mapping between IDs and its own resources.

// TextureID is an opaque handle to a backend texture.
type TextureID uint64

// BufferID is an opaque handle to a backend buffer.
type BufferID uint64

// PaletteID is an opaque handle to a backend-owned chunk section palette.
type PaletteID uint64

// StorageID is an opaque handle to a backend-owned packed palette storage.
type StorageID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// FormatID selects the texel format of a backend texture.
// The numeric values are part of the native call surface.
type FormatID uint32

// Texture formats understood by the backend.
const (
	// FormatRGBA8 is 8-bit RGBA, normalized.
	FormatRGBA8 FormatID = 0

	// FormatR8 is a single 8-bit normalized channel.
	FormatR8 FormatID = 1

	// FormatR8Int is a single 8-bit signed integer channel.
	FormatR8Int FormatID = 2

	// FormatDepth32 is a 32-bit float depth format.
	FormatDepth32 FormatID = 3
)

// BytesPerTexel returns the size of one texel, or 0 for unknown formats.
func (f FormatID) BytesPerTexel() int {
	switch f {
	case FormatRGBA8, FormatDepth32:
		return 4
	case FormatR8, FormatR8Int:
		return 1
	default:
		return 0
	}
}

// String returns a short name for the format.
func (f FormatID) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatR8:
		return "r8"
	case FormatR8Int:
		return "r8i"
	case FormatDepth32:
		return "depth32"
	default:
		return "unknown"
	}
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	TextureUsageCopySrc          TextureUsage = 1 << 0
	TextureUsageCopyDst          TextureUsage = 1 << 1
	TextureUsageTextureBinding   TextureUsage = 1 << 2
	TextureUsageStorageBinding   TextureUsage = 1 << 3
	TextureUsageRenderAttachment TextureUsage = 1 << 4
)

// TextureUsageSampled is the usage of every texture created for the client:
// it is written by uploads and sampled by the draw pipelines.
const TextureUsageSampled = TextureUsageCopyDst | TextureUsageTextureBinding | TextureUsageCopySrc

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	// The backend never sees it; mapping is emulated with a CPU shadow.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageMapWrite indicates the buffer can be mapped for writing.
	// Like MapRead, it is stripped before the buffer reaches the backend.
	BufferUsageMapWrite BufferUsage = 1 << 1

	BufferUsageCopySrc BufferUsage = 1 << 2
	BufferUsageCopyDst BufferUsage = 1 << 3
	BufferUsageIndex   BufferUsage = 1 << 4
	BufferUsageVertex  BufferUsage = 1 << 5
	BufferUsageUniform BufferUsage = 1 << 6
	BufferUsageStorage BufferUsage = 1 << 7
)

// BufferUsageMap covers the usages emulated on the CPU side.
const BufferUsageMap = BufferUsageMapRead | BufferUsageMapWrite

// PipelineID names one of the fixed backend render pipelines.
type PipelineID uint32

// Backend pipelines. The numbering is shared with the native renderer.
const (
	// PipelinePositionColor draws position + unorm8x4 color vertices.
	PipelinePositionColor PipelineID = 0

	// PipelinePositionTexture draws position + texture coordinate vertices.
	PipelinePositionTexture PipelineID = 1

	// PipelinePositionColorFloat draws position + float32x4 color vertices.
	PipelinePositionColorFloat PipelineID = 2

	// PipelineText draws position + color + texture + light vertices.
	PipelineText PipelineID = 3

	// PipelinePositionTextureColor draws position + texture + color vertices.
	PipelinePositionTextureColor PipelineID = 4
)

// PipelineCount is the number of backend pipelines.
const PipelineCount = 5

// VertexStride returns the size in bytes of one vertex drawn by p, or 0 for
// unknown pipelines. Positions are float32x3, colors unorm8x4 unless noted,
// texture coordinates float32x2 and light coordinates uint16x2.
func (p PipelineID) VertexStride() uint64 {
	switch p {
	case PipelinePositionColor:
		return 16
	case PipelinePositionTexture:
		return 20
	case PipelinePositionColorFloat:
		return 28
	case PipelineText:
		return 28
	case PipelinePositionTextureColor:
		return 24
	default:
		return 0
	}
}

// Textured reports whether p samples the texture attached at slot 0.
func (p PipelineID) Textured() bool {
	switch p {
	case PipelinePositionTexture, PipelineText, PipelinePositionTextureColor:
		return true
	default:
		return false
	}
}

// BlockState identifies one block state. The upper 16 bits select the block,
// the lower 16 bits carry the state augment.
type BlockState uint32

// NewBlockState packs a block and its augment.
func NewBlockState(block, augment uint16) BlockState {
	return BlockState(uint32(block)<<16 | uint32(augment))
}

// Block returns the block part of the state.
func (s BlockState) Block() uint16 { return uint16(s >> 16) }

// Augment returns the augment part of the state.
func (s BlockState) Augment() uint16 { return uint16(s & 0xffff) }

// Chunk geometry.
const (
	// SectionsPerChunk is the fixed number of sections in a chunk column.
	SectionsPerChunk = 24

	// SectionCells is the number of block cells in one 16x16x16 section.
	SectionCells = 4096

	// LightArraySize is the byte size of one section's nibble light array.
	LightArraySize = SectionCells / 2
)
