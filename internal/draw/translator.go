package draw

import (
	"fmt"
	"sync"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/glcompat/gpucore"
)

// TextureSlot is the bind group slot textured pipelines sample from.
const TextureSlot = 0

// TextureSource resolves the texture bound to the active unit.
type TextureSource interface {
	ActiveTexture() (gpucore.TextureID, error)
}

// Batch is one client draw call.
type Batch struct {
	// Vertices are uploaded verbatim.
	Vertices []byte

	// Recycle hands Vertices back to the translator's pool after the draw.
	// Set it only for slices obtained from Translator.VertexBuffer.
	Recycle bool

	VertexCount uint32
	Format      VertexFormat
	Topology    Topology
	Projection  f32.Mat4
	ModelView   f32.Mat4
}

// Stats counts translated draws.
type Stats struct {
	Submitted uint64
	Indexed   uint64
	Skipped   uint64
}

// Translator converts batches into native draw calls.
//
// A Translator is owned by the render goroutine and is not safe for
// concurrent use.
type Translator struct {
	native gpucore.Native

	vertexPool sync.Pool // *[]byte
	indexPool  sync.Pool // *[]uint32

	stats Stats
}

// NewTranslator creates a translator issuing calls on native.
func NewTranslator(native gpucore.Native) *Translator {
	return &Translator{native: native}
}

// VertexBuffer returns a pooled byte slice of length n. Submitting it in a
// Batch with Recycle set returns it to the pool after the draw.
func (t *Translator) VertexBuffer(n int) []byte {
	if p, ok := t.vertexPool.Get().(*[]byte); ok && cap(*p) >= n {
		return (*p)[:n]
	}
	return make([]byte, n)
}

func (t *Translator) releaseVertices(b []byte) {
	if cap(b) == 0 {
		return
	}
	b = b[:0]
	t.vertexPool.Put(&b)
}

// Draw translates one batch.
//
// Unsupported layouts fail with gpucore.ErrSkipDraw and unsupported
// topologies with gpucore.ErrUnsupportedTopology before any native call is
// made; both are expected and non-fatal. A textured layout with nothing bound
// to the active unit fails with the error of src.
func (t *Translator) Draw(b Batch, src TextureSource) error {
	if b.Recycle {
		defer t.releaseVertices(b.Vertices)
	}

	pipeline, err := SelectPipeline(b.Format)
	if err != nil {
		t.stats.Skipped++
		return err
	}
	if b.Topology != TopologyQuads && b.Topology != TopologyTriangles {
		t.stats.Skipped++
		return fmt.Errorf("topology %v: %w", b.Topology, gpucore.ErrUnsupportedTopology)
	}

	var texture gpucore.TextureID
	if pipeline.Textured() {
		if texture, err = src.ActiveTexture(); err != nil {
			t.stats.Skipped++
			return err
		}
	}

	t.native.UsePipeline(pipeline)
	if pipeline.Textured() {
		t.native.AttachTexture(TextureSlot, texture)
	}
	t.native.SetTransform(ColumnMajor(Mul(b.Projection, b.ModelView)))
	t.native.SetVertexData(b.Vertices)

	switch b.Topology {
	case TopologyQuads:
		indices := t.quadIndices(b.VertexCount)
		t.native.SetIndexData(indices)
		t.native.DrawIndexed(b.VertexCount + b.VertexCount/2)
		t.releaseIndices(indices)
		t.stats.Indexed++
	case TopologyTriangles:
		t.native.Draw(b.VertexCount)
	}
	t.stats.Submitted++
	return nil
}

// quadIndices returns a pooled buffer holding QuadIndices(count).
func (t *Translator) quadIndices(count uint32) []uint32 {
	var buf []uint32
	if p, ok := t.indexPool.Get().(*[]uint32); ok {
		buf = (*p)[:0]
	}
	return AppendQuadIndices(buf, count)
}

func (t *Translator) releaseIndices(b []uint32) {
	b = b[:0]
	t.indexPool.Put(&b)
}

// Stats returns the draw counters.
func (t *Translator) Stats() Stats {
	return t.stats
}

// AppendQuadIndices appends count*6 indices, two triangles per quad:
// quad i contributes {4i, 4i+1, 4i+3, 4i+1, 4i+2, 4i+3}.
func AppendQuadIndices(dst []uint32, count uint32) []uint32 {
	dst = growIndices(dst, int(count)*6)
	for i := uint32(0); i < count; i++ {
		v := i * 4
		dst = append(dst, v, v+1, v+3, v+1, v+2, v+3)
	}
	return dst
}

func growIndices(dst []uint32, n int) []uint32 {
	if cap(dst)-len(dst) >= n {
		return dst
	}
	out := make([]uint32, len(dst), len(dst)+n)
	copy(out, dst)
	return out
}
