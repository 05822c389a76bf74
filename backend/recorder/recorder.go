// Package recorder provides a headless gpucore.Native that records every
// call and keeps a CPU model of the objects it was asked to create.
//
// The recorder is what the bridge runs against when no GPU is present: it is
// the reference backend of the test suite, and its call log can be exported
// as a compressed trace for offline inspection.
package recorder

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/glcompat/gpucore"
)

// Call operation names.
const (
	OpCreateTexture        = "create_texture"
	OpUploadFullImage      = "upload_full_image"
	OpUploadSubImage       = "upload_sub_image"
	OpDropTexture          = "drop_texture"
	OpCreateBuffer         = "create_buffer"
	OpDropBuffer           = "drop_buffer"
	OpUsePipeline          = "use_pipeline"
	OpAttachTexture        = "attach_texture"
	OpSetTransform         = "set_transform"
	OpSetVertexData        = "set_vertex_data"
	OpSetIndexData         = "set_index_data"
	OpDraw                 = "draw"
	OpDrawIndexed          = "draw_indexed"
	OpCreatePalette        = "create_palette"
	OpDestroyPalette       = "destroy_palette"
	OpCreatePaletteStorage = "create_palette_storage"
	OpDestroyStorage       = "destroy_palette_storage"
	OpCreateChunk          = "create_chunk"
	OpBakeChunk            = "bake_chunk"
)

// Call is one recorded native call. Only the fields relevant to Op are set.
type Call struct {
	Op      string           `json:"op"`
	ID      uint64           `json:"id,omitempty"`
	Label   string           `json:"label,omitempty"`
	Format  gpucore.FormatID `json:"format,omitempty"`
	Usage   uint32           `json:"usage,omitempty"`
	X       int32            `json:"x,omitempty"`
	Y       int32            `json:"y,omitempty"`
	Width   uint32           `json:"width,omitempty"`
	Height  uint32           `json:"height,omitempty"`
	Count   uint32           `json:"count,omitempty"`
	Params  []int32          `json:"params,omitempty"`
	Bytes   []byte           `json:"bytes,omitempty"`
	Pixels  []uint32         `json:"pixels,omitempty"`
	Indices []uint32         `json:"indices,omitempty"`
	Matrix  []float32        `json:"matrix,omitempty"`
	Handles []uint64         `json:"handles,omitempty"`
}

// DrawCall is the complete state of one Draw or DrawIndexed call.
type DrawCall struct {
	Pipeline  gpucore.PipelineID
	Textures  map[uint32]gpucore.TextureID
	Transform [16]float32
	Vertices  []byte
	Indices   []uint32
	Indexed   bool
	Count     uint32
}

// Texture is the CPU model of a recorded texture.
type Texture struct {
	Format gpucore.FormatID
	Width  uint32
	Height uint32
	Pixels []byte
}

// Storage is the CPU model of a recorded packed palette storage.
type Storage struct {
	Words           []uint64
	ElementsPerWord int32
	BitsPerElement  int32
	MaxValue        uint64
	IndexScale      int32
	IndexOffset     int32
	IndexShift      int32
	Size            int32
}

// Chunk is the CPU model of a created chunk column.
type Chunk struct {
	Palettes   [gpucore.SectionsPerChunk]gpucore.PaletteID
	Storages   [gpucore.SectionsPerChunk]gpucore.StorageID
	BlockLight []byte
	SkyLight   []byte
	Baked      bool
}

type drawState struct {
	pipeline  gpucore.PipelineID
	textures  map[uint32]gpucore.TextureID
	transform [16]float32
	vertices  []byte
	indices   []uint32
}

// Recorder implements gpucore.Native.
//
// Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	nextID uint64

	calls []Call
	draws []DrawCall
	state drawState

	textures map[gpucore.TextureID]*Texture
	buffers  map[gpucore.BufferID][]byte
	palettes map[gpucore.PaletteID][]gpucore.BlockState
	storages map[gpucore.StorageID]*Storage
	chunks   map[[2]int32]*Chunk

	failures map[string]error
}

var _ gpucore.Native = (*Recorder)(nil)

// New returns an empty recorder.
func New() *Recorder {
	r := &Recorder{
		textures: make(map[gpucore.TextureID]*Texture),
		buffers:  make(map[gpucore.BufferID][]byte),
		palettes: make(map[gpucore.PaletteID][]gpucore.BlockState),
		storages: make(map[gpucore.StorageID]*Storage),
		chunks:   make(map[[2]int32]*Chunk),
		failures: make(map[string]error),
	}
	r.state.textures = make(map[uint32]gpucore.TextureID)
	// Start ID generation at 1 (0 is invalid)
	r.nextID = 1
	return r
}

func (r *Recorder) newIDLocked() uint64 {
	id := r.nextID
	r.nextID++
	return id
}

// FailOn makes every later call of op return err. A nil err clears it.
// Only calls that return an error can be failed.
func (r *Recorder) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = err
}

func (r *Recorder) failLocked(op string) error {
	if err, ok := r.failures[op]; ok {
		return fmt.Errorf("recorder: %s: %w", op, err)
	}
	return nil
}

func (r *Recorder) recordLocked(c Call) {
	r.calls = append(r.calls, c)
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Ops returns the operation names of the call log in order.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.calls))
	for i, c := range r.calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was called.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Draws returns every draw issued so far with the state it used.
func (r *Recorder) Draws() []DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.draws)
}

// Reset clears the call and draw logs. Live objects are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.draws = nil
}
