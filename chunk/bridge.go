package chunk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/glcompat/gpucore"
	"github.com/gogpu/glcompat/internal/parallel"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("chunk: bridge closed")

// State is the upload state of a chunk column.
type State int

const (
	// StateUnbaked: nothing published, or the last publish failed.
	StateUnbaked State = iota
	// StateUploading: an upload is queued or running.
	StateUploading
	// StateBaked: the latest upload was published and baked.
	StateBaked
)

func (s State) String() string {
	switch s {
	case StateUnbaked:
		return "unbaked"
	case StateUploading:
		return "uploading"
	case StateBaked:
		return "baked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Coord is a chunk column coordinate.
type Coord struct {
	X, Z int32
}

// key packs the coordinate into the pool key so one column always lands on
// the same worker queue.
func (c Coord) key() uint64 {
	return uint64(uint32(c.X))<<32 | uint64(uint32(c.Z))
}

// SectionKey addresses one section: Y is the section slot in
// [0, gpucore.SectionsPerChunk).
type SectionKey struct {
	X, Y, Z int32
}

type handles struct {
	palette gpucore.PaletteID
	storage gpucore.StorageID
}

type column struct {
	state    State
	pending  int
	sections [gpucore.SectionsPerChunk]handles

	// published is set once the backend holds a chunk for this column;
	// blockLight and skyLight are the arrays it was last published with.
	published  bool
	blockLight []byte
	skyLight   []byte

	// retired holds superseded handles the backend may still reference
	// because the publish that replaced them failed.
	retired []handles
}

// arrays returns the handle arrays of the owned sections.
func (col *column) arrays() (palettes [gpucore.SectionsPerChunk]gpucore.PaletteID, storages [gpucore.SectionsPerChunk]gpucore.StorageID) {
	for i, h := range col.sections {
		palettes[i], storages[i] = h.palette, h.storage
	}
	return palettes, storages
}

// owned returns every handle the column owns, live and retired.
func (col *column) owned() []handles {
	return append(col.sections[:], col.retired...)
}

// Config sizes the bridge's worker pool. Zero values select the pool
// defaults.
type Config struct {
	Workers    int
	QueueDepth int
}

// Stats reports bridge activity.
type Stats struct {
	Columns  int
	Sections int
	Uploads  uint64
	Baked    uint64
	Failures uint64
	Released uint64
}

// Bridge uploads chunk sections to a backend and owns the resulting handles.
//
// Uploads run on a bounded worker pool with one serial queue per chunk
// coordinate, so uploads and unloads of the same column apply in submission
// order while different columns proceed in parallel. A handle is owned by
// the bridge from creation until it is superseded by a newer upload of the
// same section, its column is unloaded, or the bridge is closed; it is then
// destroyed exactly once.
//
// Bridge is safe for concurrent use.
type Bridge struct {
	native gpucore.Native
	pool   *parallel.WorkerPool

	mu      sync.Mutex
	columns map[Coord]*column
	stats   Stats
	closed  bool
}

// NewBridge creates a bridge issuing chunk calls on native.
func NewBridge(native gpucore.Native, cfg Config) *Bridge {
	return &Bridge{
		native:  native,
		pool:    parallel.NewWorkerPool(cfg.Workers, cfg.QueueDepth),
		columns: make(map[Coord]*column),
	}
}

func (b *Bridge) columnLocked(c Coord) *column {
	col, ok := b.columns[c]
	if !ok {
		col = &column{}
		b.columns[c] = col
	}
	return col
}

// transfer hands one section to the backend as a palette and a storage
// handle. Nothing is left allocated on failure.
func (b *Bridge) transfer(s *Section) (handles, error) {
	if err := s.Validate(); err != nil {
		return handles{}, err
	}
	pal, err := b.native.CreatePalette(s.Palette.Entries())
	if err != nil {
		return handles{}, fmt.Errorf("create palette: %w", err)
	}
	st := s.Storage
	sid, err := b.native.CreatePaletteStorage(st.words, st.elementsPerWord, st.bitsPerElement, st.maxValue,
		st.indexScale, st.indexOffset, st.indexShift, st.size)
	if err != nil {
		b.native.DestroyPalette(pal)
		return handles{}, fmt.Errorf("create palette storage: %w", err)
	}
	return handles{palette: pal, storage: sid}, nil
}

// release destroys the given handles and counts them.
func (b *Bridge) release(hs ...handles) {
	var n uint64
	for _, h := range hs {
		if h.palette != gpucore.InvalidID {
			b.native.DestroyPalette(h.palette)
			n++
		}
		if h.storage != gpucore.InvalidID {
			b.native.DestroyPaletteStorage(h.storage)
			n++
		}
	}
	if n == 0 {
		return
	}
	b.mu.Lock()
	b.stats.Released += n
	b.mu.Unlock()
}

// UploadSection transfers one section and records the handles as the owner
// of key. It runs on the column's queue after any upload or unload of the
// same column queued before it, and returns once the section is applied.
//
// If the column has a published chunk, the chunk is republished with the new
// handles (CreateChunk followed by BakeChunk) before the superseded handles
// are destroyed. When that publish fails the new handles stay owned, the
// error is returned, and the superseded handles are kept until a later
// publish succeeds or the column is unloaded.
//
// A malformed section fails with ErrMalformed and leaves ownership
// unchanged.
func (b *Bridge) UploadSection(key SectionKey, s *Section) (gpucore.PaletteID, gpucore.StorageID, error) {
	if key.Y < 0 || key.Y >= gpucore.SectionsPerChunk {
		return 0, 0, fmt.Errorf("section %d: %w", key.Y, ErrMalformed)
	}
	if s == nil {
		return 0, 0, fmt.Errorf("nil section: %w", ErrMalformed)
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return 0, 0, ErrClosed
	}

	type result struct {
		h   handles
		err error
	}
	done := make(chan result, 1)
	c := Coord{X: key.X, Z: key.Z}
	if !b.pool.Submit(c.key(), func() {
		h, err := b.section(c, int(key.Y), s)
		done <- result{h: h, err: err}
	}) {
		return 0, 0, ErrClosed
	}
	r := <-done
	return r.h.palette, r.h.storage, r.err
}

func (b *Bridge) section(c Coord, slot int, s *Section) (handles, error) {
	h, err := b.transfer(s)
	if err != nil {
		return handles{}, err
	}

	b.mu.Lock()
	col := b.columnLocked(c)
	old := col.sections[slot]
	col.sections[slot] = h
	b.stats.Uploads++
	if !col.published {
		b.mu.Unlock()
		b.release(old)
		return h, nil
	}
	palettes, storages := col.arrays()
	blockLight := withSection(col.blockLight, slot, s.BlockLight)
	skyLight := withSection(col.skyLight, slot, s.SkyLight)
	b.mu.Unlock()

	err = b.publish(c, palettes, storages, blockLight, skyLight)
	b.settle(c, err, blockLight, skyLight, old)
	if err != nil {
		b.mu.Lock()
		b.stats.Failures++
		b.mu.Unlock()
		slogger().Warn("chunk: republish failed", "x", c.X, "z", c.Z, "section", slot, "err", err)
		return h, fmt.Errorf("republish chunk (%d,%d): %w", c.X, c.Z, err)
	}
	b.mu.Lock()
	b.stats.Baked++
	b.mu.Unlock()
	return h, nil
}

// withSection returns a copy of a column light array with one section slot
// replaced. Nil light zero-fills the slot.
func withSection(light []byte, slot int, section []byte) []byte {
	out := make([]byte, gpucore.SectionsPerChunk*gpucore.LightArraySize)
	copy(out, light)
	dst := out[slot*gpucore.LightArraySize : (slot+1)*gpucore.LightArraySize]
	clear(dst)
	copy(dst, section)
	return out
}

// publish hands the complete arrays of a column to the backend.
func (b *Bridge) publish(c Coord, palettes [gpucore.SectionsPerChunk]gpucore.PaletteID,
	storages [gpucore.SectionsPerChunk]gpucore.StorageID, blockLight, skyLight []byte) error {
	if err := b.native.CreateChunk(c.X, c.Z, palettes, storages, blockLight, skyLight); err != nil {
		return err
	}
	return b.native.BakeChunk(c.X, c.Z)
}

// settle disposes of superseded handles after a publish attempt. A
// successful publish releases them together with any retired handles;
// a failed one retires them, since the backend may still reference them.
func (b *Bridge) settle(c Coord, err error, blockLight, skyLight []byte, superseded ...handles) {
	b.mu.Lock()
	col := b.columnLocked(c)
	if err != nil {
		for _, h := range superseded {
			if h != (handles{}) {
				col.retired = append(col.retired, h)
			}
		}
		b.mu.Unlock()
		return
	}
	release := append(col.retired, superseded...)
	col.retired = nil
	col.published = true
	col.blockLight, col.skyLight = blockLight, skyLight
	b.mu.Unlock()

	b.release(release...)
}

// UploadChunk queues an upload of a whole column. Nil entries are empty
// sections. The call returns once the work is queued; it blocks only while
// the column's queue is full.
//
// The queued task transfers every section, then publishes the complete
// handle and light arrays with CreateChunk followed by BakeChunk. Malformed
// sections are logged and uploaded as empty. Handles of the previous upload
// are destroyed after the new arrays are published, or kept until a later
// publish succeeds if this one fails.
func (b *Bridge) UploadChunk(x, z int32, sections [gpucore.SectionsPerChunk]*Section) error {
	c := Coord{X: x, Z: z}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	col := b.columnLocked(c)
	col.pending++
	col.state = StateUploading
	b.mu.Unlock()

	if !b.pool.Submit(c.key(), func() { b.upload(c, sections) }) {
		b.mu.Lock()
		col.pending--
		if col.pending == 0 {
			col.state = StateUnbaked
		}
		b.mu.Unlock()
		return ErrClosed
	}
	return nil
}

func (b *Bridge) upload(c Coord, sections [gpucore.SectionsPerChunk]*Section) {
	log := slogger()

	var (
		fresh    [gpucore.SectionsPerChunk]handles
		palettes [gpucore.SectionsPerChunk]gpucore.PaletteID
		storages [gpucore.SectionsPerChunk]gpucore.StorageID
		failures uint64
	)
	blockLight := make([]byte, gpucore.SectionsPerChunk*gpucore.LightArraySize)
	skyLight := make([]byte, gpucore.SectionsPerChunk*gpucore.LightArraySize)

	for i, s := range sections {
		if s == nil {
			continue
		}
		h, err := b.transfer(s)
		if err != nil {
			log.Warn("chunk: section uploaded as empty", "x", c.X, "z", c.Z, "section", i, "err", err)
			failures++
			continue
		}
		fresh[i] = h
		palettes[i], storages[i] = h.palette, h.storage
		copy(blockLight[i*gpucore.LightArraySize:], s.BlockLight)
		copy(skyLight[i*gpucore.LightArraySize:], s.SkyLight)
	}

	b.mu.Lock()
	col := b.columnLocked(c)
	old := col.sections
	col.sections = fresh
	b.mu.Unlock()

	err := b.publish(c, palettes, storages, blockLight, skyLight)
	b.settle(c, err, blockLight, skyLight, old[:]...)

	b.mu.Lock()
	b.stats.Uploads++
	b.stats.Failures += failures
	col.pending--
	switch {
	case err != nil:
		b.stats.Failures++
		if col.pending == 0 {
			col.state = StateUnbaked
		}
	case col.pending == 0:
		col.state = StateBaked
		b.stats.Baked++
	default:
		b.stats.Baked++
	}
	b.mu.Unlock()

	if err != nil {
		log.Warn("chunk: publish failed", "x", c.X, "z", c.Z, "err", err)
		return
	}
	log.Debug("chunk: baked", "x", c.X, "z", c.Z, "failed_sections", failures)
}

// Unload queues the release of every handle owned by the column. It runs
// after any upload of the same column queued before it.
func (b *Bridge) Unload(x, z int32) error {
	c := Coord{X: x, Z: z}
	if !b.pool.Submit(c.key(), func() { b.unload(c) }) {
		return ErrClosed
	}
	return nil
}

func (b *Bridge) unload(c Coord) {
	b.mu.Lock()
	col, ok := b.columns[c]
	if !ok {
		b.mu.Unlock()
		return
	}
	old := col.owned()
	col.sections = [gpucore.SectionsPerChunk]handles{}
	col.retired = nil
	col.published = false
	col.blockLight, col.skyLight = nil, nil
	if col.pending == 0 {
		delete(b.columns, c)
	}
	b.mu.Unlock()

	b.release(old...)
}

// State returns the upload state of a column. Unknown columns are unbaked.
func (b *Bridge) State(x, z int32) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if col, ok := b.columns[Coord{X: x, Z: z}]; ok {
		return col.state
	}
	return StateUnbaked
}

// Owned returns the handles owned for a section, or zeros.
func (b *Bridge) Owned(key SectionKey) (gpucore.PaletteID, gpucore.StorageID) {
	if key.Y < 0 || key.Y >= gpucore.SectionsPerChunk {
		return 0, 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if col, ok := b.columns[Coord{X: key.X, Z: key.Z}]; ok {
		h := col.sections[key.Y]
		return h.palette, h.storage
	}
	return 0, 0
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stats
	st.Columns = len(b.columns)
	for _, col := range b.columns {
		for _, h := range col.sections {
			if h.palette != gpucore.InvalidID {
				st.Sections++
			}
		}
	}
	return st
}

// Wait blocks until every queued upload and unload has finished.
func (b *Bridge) Wait() {
	b.pool.Wait()
}

// Close finishes queued work, stops the workers and destroys every handle
// still owned. Close is safe to call multiple times.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.pool.Close()

	b.mu.Lock()
	columns := b.columns
	b.columns = make(map[Coord]*column)
	b.mu.Unlock()

	for _, col := range columns {
		b.release(col.owned()...)
	}
	slogger().Info("chunk: bridge closed", "columns", len(columns))
}
