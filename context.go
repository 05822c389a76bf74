package glcompat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/glcompat/chunk"
	"github.com/gogpu/glcompat/gpucore"
	"github.com/gogpu/glcompat/internal/draw"
	"github.com/gogpu/glcompat/internal/pixel"
	"github.com/gogpu/glcompat/internal/registry"
	"github.com/gogpu/glcompat/internal/resource"
)

// Stats counts the calls a Context translated.
type Stats struct {
	Textures        int
	Buffers         int
	FullUploads     uint64
	SubUploads      uint64
	RejectedShrinks uint64
	BufferUploads   uint64
	Ignored         uint64

	DrawsSubmitted uint64
	DrawsIndexed   uint64
	DrawsSkipped   uint64

	ShadowBytes     uint64
	ShadowEvictions uint64

	Chunks chunk.Stats
}

// TextureInfo describes the record behind a texture handle.
type TextureInfo struct {
	Width     uint32
	Height    uint32
	Specified bool
}

// Context replaces the global state of the legacy API: texture names and
// records, bound units, pixel-store parameters and buffer objects. It owns
// the backend textures and buffers it creates and the chunk bridge.
//
// A Context is used from the render goroutine only and is not safe for
// concurrent use. The chunk bridge returned by Chunks is.
type Context struct {
	opts   options
	native gpucore.Native

	registry   *registry.Registry
	params     pixel.Params
	resources  *resource.Manager
	owners     map[uint32]resource.Texture
	buffers    map[uint32]*bufferObject
	translator *draw.Translator
	bridge     *chunk.Bridge

	dense      []uint32
	nextBuffer uint32
	stats      Stats

	closed bool
}

// NewContext creates a context issuing calls on native. The context does not
// take ownership of native.
func NewContext(native gpucore.Native, opts ...Option) *Context {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Context{
		opts:       o,
		native:     native,
		registry:   registry.New(),
		params:     pixel.DefaultParams(),
		resources:  resource.NewManager(native, resource.Config{ShadowBudgetMB: o.shadowBudgetMB}),
		owners:     make(map[uint32]resource.Texture),
		buffers:    make(map[uint32]*bufferObject),
		translator: draw.NewTranslator(native),
		bridge:     chunk.NewBridge(native, chunk.Config{Workers: o.workers, QueueDepth: o.queueDepth}),
	}
	Logger().Info("glcompat: context created",
		"strict", o.strict, "alignment", o.alignment, "workers", o.workers)
	return c
}

// ignorable reports errors the legacy API drops without telling the client.
func ignorable(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrUnsupportedTopology) ||
		errors.Is(err, ErrSkipDraw) ||
		errors.Is(err, ErrNoActiveBinding) ||
		errors.Is(err, ErrCallerMisuse)
}

// report logs an ignorable error and drops it unless the context is strict.
// Other errors are returned unchanged.
func (c *Context) report(op string, err error, attrs ...any) error {
	if err == nil || !ignorable(err) {
		return err
	}
	c.stats.Ignored++
	Logger().Debug("glcompat: "+op+" ignored", append(attrs, "err", err)...)
	if c.opts.strict {
		return err
	}
	return nil
}

// GenTexture returns a new texture handle. Handles are dense and never
// reused.
func (c *Context) GenTexture() uint32 {
	return c.registry.Generate()
}

// SetActiveUnit selects the texture unit BindTexture and draws use.
func (c *Context) SetActiveUnit(unit uint32) {
	c.registry.SetActiveUnit(unit)
}

// BindTexture binds handle to the active unit. The handle does not have to
// exist yet.
func (c *Context) BindTexture(handle uint32) {
	c.registry.Bind(c.registry.ActiveUnit(), handle)
}

// ResolveActive returns the handle bound to the active unit.
func (c *Context) ResolveActive() (uint32, error) {
	return c.registry.ResolveActive()
}

// Texture returns the record behind handle.
func (c *Context) Texture(handle uint32) (TextureInfo, bool) {
	rec, ok := c.registry.Record(handle)
	if !ok {
		return TextureInfo{}, false
	}
	return TextureInfo{Width: rec.Width, Height: rec.Height, Specified: rec.Specified()}, true
}

// imageFormat maps a client format to the backend format of a full
// specification.
func imageFormat(format uint32) (gpucore.FormatID, error) {
	switch format {
	case FormatRGBA, FormatBGRA:
		return gpucore.FormatRGBA8, nil
	case FormatRed:
		return gpucore.FormatR8, nil
	case FormatRedInteger:
		return gpucore.FormatR8Int, nil
	case FormatDepthComponent:
		return gpucore.FormatDepth32, nil
	default:
		return 0, fmt.Errorf("image format %#x: %w", format, ErrUnsupportedFormat)
	}
}

// SpecifyImage (re)specifies the full image of a texture. Only level 0 is
// emulated. A specification that would shrink either dimension is rejected
// and the record is left unchanged. data holds width*height texels of the
// backend format; nil uploads zeros.
func (c *Context) SpecifyImage(handle uint32, level int32, format, width, height uint32, data []byte) error {
	if c.closed {
		return ErrClosed
	}
	if level != 0 {
		Logger().Debug("glcompat: mip level ignored", "texture", handle, "level", level)
		return nil
	}
	backendFormat, err := imageFormat(format)
	if err != nil {
		return c.report("specify image", err, "texture", handle)
	}
	grew, err := c.registry.Resize(handle, width, height)
	if err != nil {
		c.stats.RejectedShrinks++
		return c.report("specify image", err, "texture", handle, "width", width, "height", height)
	}

	owner, ok := c.owners[handle]
	rec, _ := c.registry.Record(handle)
	if ok && (grew || rec.Format != backendFormat) {
		if err := owner.Close(); err != nil {
			return fmt.Errorf("texture %d: release old storage: %w", handle, err)
		}
		delete(c.owners, handle)
		ok = false
	}
	if !ok {
		owner, err = c.resources.CreateTexture(backendFormat, width, height)
		if err != nil {
			c.registry.SetBackend(handle, backendFormat, gpucore.InvalidID)
			return fmt.Errorf("texture %d: %w", handle, err)
		}
		id, err := owner.ID()
		if err != nil {
			return err
		}
		c.owners[handle] = owner
		c.registry.SetBackend(handle, backendFormat, id)
	}

	if err := owner.WriteFull(data); err != nil {
		return fmt.Errorf("texture %d: full upload: %w", handle, err)
	}
	c.stats.FullUploads++
	return nil
}

// SetParameter sets a pixel-store parameter. Unknown names are ignored.
func (c *Context) SetParameter(name uint32, value int32) {
	if !c.params.Set(name, value) {
		Logger().Debug("glcompat: unknown pixel-store parameter", "name", fmt.Sprintf("%#x", name), "value", value)
	}
}

// Parameters returns the current pixel-store parameters as row length,
// skip pixels, skip rows and alignment.
func (c *Context) Parameters() (rowLength, skipPixels, skipRows, alignment int32) {
	return c.params.RowLength, c.params.SkipPixels, c.params.SkipRows, c.params.Alignment
}

// SubUpload writes a width x height rectangle at (offsetX, offsetY) of the
// texture, reading the source through the pixel-store parameters. Only level
// 0 and 4-byte RGBA/BGRA sources are emulated; BGRA is not swizzled.
// A rectangle outside the texture, or a source too short for the window,
// fails with ErrOutOfBounds.
func (c *Context) SubUpload(handle uint32, level int32, offsetX, offsetY, width, height, format uint32, data []byte) error {
	if c.closed {
		return ErrClosed
	}
	if level != 0 {
		Logger().Debug("glcompat: mip level ignored", "texture", handle, "level", level)
		return nil
	}
	if !pixel.Supported(format) {
		return c.report("sub upload", fmt.Errorf("sub upload format %#x: %w", format, ErrUnsupportedFormat),
			"texture", handle)
	}
	rec, _ := c.registry.Record(handle)
	if uint64(offsetX)+uint64(width) > uint64(rec.Width) || uint64(offsetY)+uint64(height) > uint64(rec.Height) {
		return fmt.Errorf("texture %d: %dx%d at (%d,%d) exceeds %dx%d: %w",
			handle, width, height, offsetX, offsetY, rec.Width, rec.Height, ErrOutOfBounds)
	}
	if width == 0 || height == 0 {
		return nil
	}
	owner, ok := c.owners[handle]
	if !ok {
		return c.report("sub upload", fmt.Errorf("texture %d has no storage: %w", handle, ErrCallerMisuse))
	}

	dense, err := pixel.Densify(c.dense, data, int(width), int(height), c.params, c.opts.alignment)
	c.dense = dense
	if err != nil {
		return fmt.Errorf("texture %d: %w", handle, err)
	}
	if err := owner.WriteRect(offsetX, offsetY, width, height, dense, c.params); err != nil {
		return fmt.Errorf("texture %d: %w", handle, err)
	}
	c.stats.SubUploads++
	return nil
}

// ReadTexture returns the last contents written to a texture, as the backend
// format's tightly packed texels.
func (c *Context) ReadTexture(handle uint32) ([]byte, error) {
	owner, ok := c.owners[handle]
	if !ok {
		return nil, fmt.Errorf("texture %d has no storage: %w", handle, ErrCallerMisuse)
	}
	return owner.ReadShadow()
}

// DeleteTexture releases the backend storage of handle. The handle itself
// is never reused and keeps its dimensions.
func (c *Context) DeleteTexture(handle uint32) {
	c.registry.Delete(handle)
	owner, ok := c.owners[handle]
	if !ok {
		return
	}
	delete(c.owners, handle)
	if rec, ok := c.registry.Record(handle); ok {
		c.registry.SetBackend(handle, rec.Format, gpucore.InvalidID)
	}
	if err := owner.Close(); err != nil {
		Logger().Warn("glcompat: texture release failed", "texture", handle, "err", err)
	}
}

// activeTexture resolves the active unit to a backend texture for the draw
// translator. A bound handle without storage resolves to InvalidID, which
// backends sample as an opaque white texture.
type activeTexture struct{ c *Context }

func (a activeTexture) ActiveTexture() (gpucore.TextureID, error) {
	handle, err := a.c.registry.ResolveActive()
	if err != nil {
		return gpucore.InvalidID, err
	}
	owner, ok := a.c.owners[handle]
	if !ok {
		Logger().Debug("glcompat: drawing with unspecified texture", "texture", handle)
		return gpucore.InvalidID, nil
	}
	return owner.ID()
}

// VertexBuffer returns a pooled vertex byte slice of length n. Pass it in a
// Batch with Recycle set to hand it back after the draw.
func (c *Context) VertexBuffer(n int) []byte {
	return c.translator.VertexBuffer(n)
}

// Draw translates one client draw call.
func (c *Context) Draw(b Batch) error {
	if c.closed {
		return ErrClosed
	}
	err := c.translator.Draw(b, activeTexture{c})
	return c.report("draw", err, "format", b.Format, "topology", b.Topology, "vertices", b.VertexCount)
}

// Chunks returns the chunk bridge of the context.
func (c *Context) Chunks() *chunk.Bridge {
	return c.bridge
}

// Stats returns a snapshot of the counters.
func (c *Context) Stats() Stats {
	st := c.stats
	st.Textures = c.registry.Len()
	for _, obj := range c.buffers {
		if obj.live() {
			st.Buffers++
		}
	}
	ds := c.translator.Stats()
	st.DrawsSubmitted = ds.Submitted
	st.DrawsIndexed = ds.Indexed
	st.DrawsSkipped = ds.Skipped
	rs := c.resources.Stats()
	st.ShadowBytes = rs.UsedBytes
	st.ShadowEvictions = rs.Evictions
	st.Chunks = c.bridge.Stats()
	return st
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("textures", s.Textures),
		slog.Int("buffers", s.Buffers),
		slog.Uint64("full_uploads", s.FullUploads),
		slog.Uint64("sub_uploads", s.SubUploads),
		slog.Uint64("rejected_shrinks", s.RejectedShrinks),
		slog.Uint64("draws", s.DrawsSubmitted),
		slog.Uint64("draws_skipped", s.DrawsSkipped),
		slog.Uint64("chunks_baked", s.Chunks.Baked),
	)
}

// Close drains the chunk bridge and releases every backend object the
// context owns. The backend itself stays open. Close is safe to call
// multiple times.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.bridge.Close()
	c.resources.Close()
	clear(c.owners)
	Logger().Info("glcompat: context closed", "stats", c.Stats())
	return nil
}
