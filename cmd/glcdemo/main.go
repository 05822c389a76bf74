// Command glcdemo drives the compatibility layer against one backend:
// texture uploads, a quad batch, a buffer object and a chunk column.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glcompat"
	"github.com/gogpu/glcompat/backend"
	"github.com/gogpu/glcompat/chunk"
	"github.com/gogpu/glcompat/gpucore"
)

// frameTarget is implemented by backends that render into an offscreen view.
type frameTarget interface {
	NewTarget(width, height uint32) (hal.TextureView, error)
	Flush(view hal.TextureView) error
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		backendArg = flag.String("backend", "", "backend override (native, recorder)")
		tracePath  = flag.String("trace", "", "write a zstd call trace (recorder backend)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	glcompat.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := glcompat.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *backendArg != "" {
		cfg.Backend = *backendArg
		cfg.Normalize()
	}
	if *tracePath != "" {
		cfg.Trace = *tracePath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	b, err := cfg.OpenBackend()
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer func() { _ = b.Close() }()

	ctx := glcompat.NewContext(b, cfg.Options()...)

	uploadTextures(ctx)
	drawQuads(ctx)
	uploadBuffer(ctx)
	uploadChunk(ctx)

	if ft, ok := b.(frameTarget); ok {
		view, err := ft.NewTarget(256, 256)
		if err != nil {
			log.Fatalf("Failed to create target: %v", err)
		}
		if err := ft.Flush(view); err != nil {
			log.Fatalf("Failed to flush frame: %v", err)
		}
	}

	if err := ctx.Close(); err != nil {
		log.Fatalf("Failed to close context: %v", err)
	}

	if rec, ok := backend.Recorder(b); ok && cfg.Trace != "" {
		if err := rec.SaveTrace(cfg.Trace); err != nil {
			log.Fatalf("Failed to save trace: %v", err)
		}
		log.Printf("Trace saved to %s (%d calls)\n", cfg.Trace, len(rec.Calls()))
	}

	log.Printf("Demo finished on %s backend\n", b.Name())
}

// uploadTextures specifies a 64x64 image, patches it through an unpack
// window and tries a shrinking respecification.
func uploadTextures(ctx *glcompat.Context) {
	tex := ctx.GenTexture()
	ctx.SetActiveUnit(0)
	ctx.BindTexture(tex)

	if err := ctx.SpecifyImage(tex, 0, glcompat.FormatRGBA, 64, 64, checkerboard(64, 64)); err != nil {
		log.Fatalf("SpecifyImage: %v", err)
	}

	// 8x8 patch taken from the middle of a 32-pixel-wide client image.
	src := make([]byte, 32*16*4)
	for i := range src {
		src[i] = byte(i)
	}
	ctx.SetParameter(glcompat.UnpackRowLength, 32)
	ctx.SetParameter(glcompat.UnpackSkipPixels, 4)
	ctx.SetParameter(glcompat.UnpackSkipRows, 2)
	if err := ctx.SubUpload(tex, 0, 16, 16, 8, 8, glcompat.FormatBGRA, src); err != nil {
		log.Fatalf("SubUpload: %v", err)
	}
	ctx.SetParameter(glcompat.UnpackRowLength, 0)
	ctx.SetParameter(glcompat.UnpackSkipPixels, 0)
	ctx.SetParameter(glcompat.UnpackSkipRows, 0)

	// Rejected unless strict mode is on.
	if err := ctx.SpecifyImage(tex, 0, glcompat.FormatRGBA, 16, 16, nil); err != nil {
		log.Printf("Shrink rejected: %v\n", err)
	}
}

func checkerboard(w, h int) []byte {
	out := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			v := byte(0x20)
			if (x/8+y/8)%2 == 0 {
				v = 0xe0
			}
			i := (y*w + x) * 4
			out[i], out[i+1], out[i+2], out[i+3] = v, v, v, 0xff
		}
	}
	return out
}

// drawQuads submits two colored quads in the position+color layout.
func drawQuads(ctx *glcompat.Context) {
	const stride = 16
	quads := [][4]float32{{10, 10, 60, 60}, {80, 20, 200, 120}}
	buf := ctx.VertexBuffer(len(quads) * 4 * stride)
	off := 0
	for i, q := range quads {
		color := uint32(0xff0000ff) >> (8 * uint(i))
		corners := [4][2]float32{{q[0], q[1]}, {q[0], q[3]}, {q[2], q[3]}, {q[2], q[1]}}
		for _, c := range corners {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(c[0]))
			binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(c[1]))
			binary.LittleEndian.PutUint32(buf[off+8:], 0)
			binary.LittleEndian.PutUint32(buf[off+12:], color|0xff000000)
			off += stride
		}
	}
	err := ctx.Draw(glcompat.Batch{
		Vertices:    buf,
		Recycle:     true,
		VertexCount: uint32(len(quads) * 4),
		Format:      glcompat.VertexFormatPositionColor,
		Topology:    glcompat.TopologyQuads,
		Projection:  glcompat.Ortho(0, 256, 256, 0, -1, 1),
		ModelView:   glcompat.Identity(),
	})
	if err != nil {
		log.Fatalf("Draw: %v", err)
	}
}

// uploadBuffer stores a small index buffer, patches it and deletes it.
func uploadBuffer(ctx *glcompat.Context) {
	buf := ctx.GenBuffer()
	indices := make([]byte, 6*4)
	for i, v := range []uint32{0, 1, 3, 1, 2, 3} {
		binary.LittleEndian.PutUint32(indices[i*4:], v)
	}
	if err := ctx.BufferData(buf, glcompat.BufferUsageIndex|glcompat.BufferUsageMapWrite, 0, indices); err != nil {
		log.Fatalf("BufferData: %v", err)
	}
	if err := ctx.BufferSubData(buf, 0, []byte{4, 0, 0, 0}); err != nil {
		log.Fatalf("BufferSubData: %v", err)
	}
	if err := ctx.DeleteBuffer(buf); err != nil {
		log.Fatalf("DeleteBuffer: %v", err)
	}
}

// uploadChunk fills the bottom four sections of column (0, 0) with layered
// terrain and waits for the bake.
func uploadChunk(ctx *glcompat.Context) {
	layers := []gpucore.BlockState{
		gpucore.NewBlockState(7, 0),
		gpucore.NewBlockState(1, 0),
		gpucore.NewBlockState(3, 0),
		gpucore.NewBlockState(2, 1),
	}
	var sections [gpucore.SectionsPerChunk]*chunk.Section
	for i, state := range layers {
		states := make([]gpucore.BlockState, gpucore.SectionCells)
		for j := range states {
			states[j] = state
		}
		s, err := chunk.Encode(states)
		if err != nil {
			log.Fatalf("Encode section %d: %v", i, err)
		}
		sections[i] = s
	}

	bridge := ctx.Chunks()
	if err := bridge.UploadChunk(0, 0, sections); err != nil {
		log.Fatalf("UploadChunk: %v", err)
	}
	bridge.Wait()
	if st := bridge.State(0, 0); st != chunk.StateBaked {
		log.Fatalf("chunk (0, 0) is %v after upload", st)
	}
}
