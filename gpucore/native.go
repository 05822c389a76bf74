package gpucore

// Native is the fixed call surface of the retained-mode backend.
//
// The bridge issues calls strictly in the order the legacy client made them.
// Draw state calls (UsePipeline through DrawIndexed) describe one draw at a
// time: the last UsePipeline, AttachTexture, SetTransform, SetVertexData and
// SetIndexData before a Draw or DrawIndexed are the inputs of that draw.
//
// Chunk calls (CreatePalette through BakeChunk) may arrive from the chunk
// bridge's worker goroutines, so implementations must make them safe for
// concurrent use. Texture, buffer and draw calls come from a single goroutine.
type Native interface {
	// === Textures ===

	// CreateTexture allocates a texture of the given format and size.
	CreateTexture(format FormatID, width, height uint32, usage TextureUsage) (TextureID, error)

	// UploadFullImage replaces the whole texture. data holds width*height
	// tightly packed texels; nil means zero-filled.
	UploadFullImage(id TextureID, width, height uint32, data []byte) error

	// UploadSubImage writes a dense width*height rectangle of RGBA texels at
	// (offsetX, offsetY). The four pixel-store parameters that produced the
	// rectangle are forwarded for backends that want to record them.
	UploadSubImage(id TextureID, offsetX, offsetY, width, height uint32, pixels []uint32,
		rowLength, skipPixels, skipRows, alignment int32) error

	// DropTexture releases a texture. Dropping an unknown ID is a no-op.
	DropTexture(id TextureID)

	// === Buffers ===

	// CreateBuffer allocates a buffer of size bytes. When data is non-nil the
	// buffer is created initialized with it and size is len(data).
	CreateBuffer(label string, usage BufferUsage, size uint64, data []byte) (BufferID, error)

	// DropBuffer releases a buffer. Dropping an unknown ID is a no-op.
	DropBuffer(id BufferID)

	// === Draw state ===

	UsePipeline(id PipelineID)
	AttachTexture(slot uint32, id TextureID)
	SetTransform(matrix [16]float32)
	SetVertexData(data []byte)
	SetIndexData(indices []uint32)
	Draw(count uint32)
	DrawIndexed(count uint32)

	// === Chunks ===

	// CreatePalette transfers an ordered palette. Entry i of the backend
	// palette is entries[i].
	CreatePalette(entries []BlockState) (PaletteID, error)

	// DestroyPalette releases a palette. Unknown IDs are ignored.
	DestroyPalette(id PaletteID)

	// CreatePaletteStorage transfers a packed index array.
	CreatePaletteStorage(words []uint64, elementsPerWord, bitsPerElement int32, maxValue uint64,
		indexScale, indexOffset, indexShift int32, size int32) (StorageID, error)

	// DestroyPaletteStorage releases a packed index array. Unknown IDs are ignored.
	DestroyPaletteStorage(id StorageID)

	// CreateChunk hands a complete chunk column to the renderer. InvalidID
	// entries mark empty sections. blockLight and skyLight hold
	// SectionsPerChunk*LightArraySize bytes each.
	CreateChunk(x, z int32, palettes [SectionsPerChunk]PaletteID, storages [SectionsPerChunk]StorageID,
		blockLight, skyLight []byte) error

	// BakeChunk asks the renderer to build the meshes of a created chunk.
	BakeChunk(x, z int32) error
}
