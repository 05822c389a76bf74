package chunk

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/gogpu/glcompat/backend/recorder"
	"github.com/gogpu/glcompat/gpucore"
)

func testSection(t *testing.T, states ...gpucore.BlockState) *Section {
	t.Helper()
	cells := make([]gpucore.BlockState, gpucore.SectionCells)
	for i := range cells {
		cells[i] = states[i%len(states)]
	}
	sec, err := Encode(cells)
	if err != nil {
		t.Fatal(err)
	}
	return sec
}

func TestUploadSectionPreservesPaletteOrder(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 2})
	defer b.Close()

	sec := testSection(t, 40, 10, 30, 20)
	pal, st, err := b.UploadSection(SectionKey{X: 0, Y: 4, Z: 0}, sec)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := rec.Palette(pal)
	if !ok {
		t.Fatal("palette not created")
	}
	if !slices.Equal(got, sec.Palette.Entries()) {
		t.Errorf("backend palette = %v, want %v", got, sec.Palette.Entries())
	}
	stored, ok := rec.Storage(st)
	if !ok {
		t.Fatal("storage not created")
	}
	if !slices.Equal(stored.Words, sec.Storage.Words()) || stored.Size != gpucore.SectionCells {
		t.Errorf("backend storage = %+v", stored)
	}

	// Reading a cell through the transferred halves gives the source state.
	back := NewStorageFromWords(stored.Words, stored.ElementsPerWord, stored.BitsPerElement, stored.MaxValue,
		stored.IndexScale, stored.IndexOffset, stored.IndexShift, stored.Size)
	for i := range gpucore.SectionCells {
		if got[back.Get(i)] != sec.Palette.Get(sec.Storage.Get(i)) {
			t.Fatalf("cell %d differs after transfer", i)
		}
	}
}

func TestUploadSectionSupersedes(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 1})
	defer b.Close()

	key := SectionKey{X: 3, Y: 0, Z: -2}
	pal1, st1, err := b.UploadSection(key, testSection(t, 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	pal2, st2, err := b.UploadSection(key, testSection(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.Palette(pal1); ok {
		t.Error("superseded palette still live")
	}
	if _, ok := rec.Storage(st1); ok {
		t.Error("superseded storage still live")
	}
	if p, s := b.Owned(key); p != pal2 || s != st2 {
		t.Errorf("Owned = %d/%d, want %d/%d", p, s, pal2, st2)
	}
	if _, _, pals, sts := rec.Live(); pals != 1 || sts != 1 {
		t.Errorf("live palettes/storages = %d/%d, want 1/1", pals, sts)
	}
}

func TestUploadSectionMalformed(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 1})
	defer b.Close()

	bad := testSection(t, 1, 2)
	bad.Palette = NewPalette(1) // storage refers to index 1
	if _, _, err := b.UploadSection(SectionKey{}, bad); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
	if _, _, err := b.UploadSection(SectionKey{Y: 24}, testSection(t, 1)); !errors.Is(err, ErrMalformed) {
		t.Errorf("out-of-range slot error = %v", err)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("malformed sections reached the backend: %v", rec.Ops())
	}
}

func TestUploadSectionStorageFailureReleasesPalette(t *testing.T) {
	rec := recorder.New()
	boom := errors.New("boom")
	rec.FailOn(recorder.OpCreatePaletteStorage, boom)
	b := NewBridge(rec, Config{Workers: 1})
	defer b.Close()

	if _, _, err := b.UploadSection(SectionKey{}, testSection(t, 1)); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if _, _, pals, _ := rec.Live(); pals != 0 {
		t.Errorf("%d palettes leaked", pals)
	}
}

func TestUploadChunk(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 2})
	defer b.Close()

	var sections [gpucore.SectionsPerChunk]*Section
	sections[0] = testSection(t, 1, 2, 3)
	sections[5] = testSection(t, 9)
	sections[5].SkyLight = make([]byte, gpucore.LightArraySize)
	sections[5].SkyLight[0] = 0xf0
	bad := testSection(t, 1, 2)
	bad.Palette = NewPalette(1)
	sections[7] = bad

	if err := b.UploadChunk(2, -1, sections); err != nil {
		t.Fatal(err)
	}
	b.Wait()

	if got := b.State(2, -1); got != StateBaked {
		t.Errorf("State = %v, want baked", got)
	}
	c, ok := rec.Chunk(2, -1)
	if !ok || !c.Baked {
		t.Fatalf("chunk = %+v, %v", c, ok)
	}
	for i := range gpucore.SectionsPerChunk {
		present := i == 0 || i == 5
		if (c.Palettes[i] != gpucore.InvalidID) != present || (c.Storages[i] != gpucore.InvalidID) != present {
			t.Errorf("section %d handles = %d/%d, present %v", i, c.Palettes[i], c.Storages[i], present)
		}
	}
	if len(c.SkyLight) != gpucore.SectionsPerChunk*gpucore.LightArraySize {
		t.Fatalf("sky light length = %d", len(c.SkyLight))
	}
	if c.SkyLight[5*gpucore.LightArraySize] != 0xf0 || c.SkyLight[0] != 0 {
		t.Error("sky light not placed at its section offset")
	}

	ops := rec.Ops()
	create := slices.Index(ops, recorder.OpCreateChunk)
	if create < 0 || ops[create+1] != recorder.OpBakeChunk {
		t.Errorf("ops = %v, want create_chunk followed by bake_chunk", ops)
	}
	if slices.Contains(ops[create:], recorder.OpCreatePalette) {
		t.Error("palette created after the chunk was published")
	}

	st := b.Stats()
	if st.Columns != 1 || st.Sections != 2 || st.Failures != 1 || st.Baked != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestReuploadReleasesAfterPublish(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 1})
	defer b.Close()

	var first, second [gpucore.SectionsPerChunk]*Section
	first[0] = testSection(t, 1)
	second[0] = testSection(t, 2)

	_ = b.UploadChunk(0, 0, first)
	_ = b.UploadChunk(0, 0, second)
	b.Wait()

	c, _ := rec.Chunk(0, 0)
	pal, _ := rec.Palette(c.Palettes[0])
	if !slices.Equal(pal, []gpucore.BlockState{2}) {
		t.Errorf("published palette = %v, want the second upload", pal)
	}
	if _, _, pals, sts := rec.Live(); pals != 1 || sts != 1 {
		t.Errorf("live palettes/storages = %d/%d, want 1/1", pals, sts)
	}

	ops := rec.Ops()
	lastCreate := -1
	for i, op := range ops {
		if op == recorder.OpCreateChunk {
			lastCreate = i
		}
	}
	if firstDestroy := slices.Index(ops, recorder.OpDestroyPalette); firstDestroy < lastCreate {
		t.Errorf("old palette destroyed before the replacement was published: %v", ops)
	}
}

func TestUnloadReleasesEverything(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 4})
	defer b.Close()

	var sections [gpucore.SectionsPerChunk]*Section
	for i := range sections {
		sections[i] = testSection(t, gpucore.BlockState(i), 100)
	}
	_ = b.UploadChunk(1, 1, sections)
	_ = b.Unload(1, 1)
	b.Wait()

	if _, _, pals, sts := rec.Live(); pals != 0 || sts != 0 {
		t.Errorf("live palettes/storages after unload = %d/%d", pals, sts)
	}
	if b.State(1, 1) != StateUnbaked {
		t.Errorf("state after unload = %v", b.State(1, 1))
	}
	if st := b.Stats(); st.Released != 2*gpucore.SectionsPerChunk || st.Columns != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestPublishFailureLeavesUnbaked(t *testing.T) {
	rec := recorder.New()
	rec.FailOn(recorder.OpCreateChunk, errors.New("device lost"))
	b := NewBridge(rec, Config{Workers: 1})
	defer b.Close()

	var sections [gpucore.SectionsPerChunk]*Section
	sections[0] = testSection(t, 1)
	_ = b.UploadChunk(0, 0, sections)
	b.Wait()

	if b.State(0, 0) != StateUnbaked {
		t.Errorf("state = %v, want unbaked", b.State(0, 0))
	}
	if rec.Count(recorder.OpBakeChunk) != 0 {
		t.Error("bake issued after a failed publish")
	}
}

func TestConcurrentColumns(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 4, QueueDepth: 2})

	var wg sync.WaitGroup
	for x := range int32(8) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := range 3 {
				var sections [gpucore.SectionsPerChunk]*Section
				sections[round] = testSection(t, gpucore.BlockState(x), gpucore.BlockState(round))
				if err := b.UploadChunk(x, 0, sections); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	b.Wait()

	for x := range int32(8) {
		if b.State(x, 0) != StateBaked {
			t.Errorf("column %d state = %v", x, b.State(x, 0))
		}
		c, _ := rec.Chunk(x, 0)
		if c.Palettes[2] == gpucore.InvalidID || c.Palettes[0] != gpucore.InvalidID {
			t.Errorf("column %d did not end with the last upload", x)
		}
	}
	if _, _, pals, _ := rec.Live(); pals != 8 {
		t.Errorf("live palettes = %d, want 8", pals)
	}

	b.Close()
	if _, _, pals, sts := rec.Live(); pals != 0 || sts != 0 {
		t.Errorf("live palettes/storages after Close = %d/%d", pals, sts)
	}
	if err := b.UploadChunk(0, 0, [gpucore.SectionsPerChunk]*Section{}); !errors.Is(err, ErrClosed) {
		t.Errorf("UploadChunk after Close = %v", err)
	}
	if _, _, err := b.UploadSection(SectionKey{}, testSection(t, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("UploadSection after Close = %v", err)
	}
	if err := b.Unload(0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Unload after Close = %v", err)
	}
}

func TestUploadSectionRepublishesColumn(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 2})
	defer b.Close()

	var sections [gpucore.SectionsPerChunk]*Section
	sections[0] = testSection(t, 1)
	sections[0].BlockLight = make([]byte, gpucore.LightArraySize)
	sections[0].BlockLight[0] = 0x0f
	sections[3] = testSection(t, 2)
	sections[3].BlockLight = make([]byte, gpucore.LightArraySize)
	sections[3].BlockLight[0] = 0xff
	if err := b.UploadChunk(0, 0, sections); err != nil {
		t.Fatal(err)
	}
	b.Wait()
	before, _ := rec.Chunk(0, 0)
	oldPal, oldSt := before.Palettes[3], before.Storages[3]

	pal, st, err := b.UploadSection(SectionKey{X: 0, Y: 3, Z: 0}, testSection(t, 7, 8))
	if err != nil {
		t.Fatalf("UploadSection: %v", err)
	}

	c, _ := rec.Chunk(0, 0)
	if c.Palettes[3] != pal || c.Storages[3] != st {
		t.Errorf("chunk section 3 = %d/%d, want %d/%d", c.Palettes[3], c.Storages[3], pal, st)
	}
	if c.Palettes[0] != before.Palettes[0] {
		t.Error("republish changed an untouched section")
	}
	if !c.Baked {
		t.Error("republished chunk not baked")
	}
	for i, p := range c.Palettes {
		if p == gpucore.InvalidID {
			continue
		}
		if _, ok := rec.Palette(p); !ok {
			t.Errorf("chunk section %d references destroyed palette %d", i, p)
		}
	}
	if _, ok := rec.Palette(oldPal); ok {
		t.Error("superseded palette still live")
	}
	if _, ok := rec.Storage(oldSt); ok {
		t.Error("superseded storage still live")
	}
	if c.BlockLight[0] != 0x0f || c.BlockLight[3*gpucore.LightArraySize] != 0 {
		t.Error("block light not rebuilt for the replaced section only")
	}

	// The old palette is destroyed only after the column was republished.
	ops := rec.Calls()
	lastCreate, destroy := -1, -1
	for i, call := range ops {
		switch {
		case call.Op == recorder.OpCreateChunk:
			lastCreate = i
		case call.Op == recorder.OpDestroyPalette && call.ID == uint64(oldPal):
			destroy = i
		}
	}
	if destroy < lastCreate {
		t.Errorf("palette %d destroyed at call %d, before the republish at %d", oldPal, destroy, lastCreate)
	}
	if _, _, pals, sts := rec.Live(); pals != 2 || sts != 2 {
		t.Errorf("live palettes/storages = %d/%d, want 2/2", pals, sts)
	}
	if st := b.Stats(); st.Baked != 2 || st.Released != 2 {
		t.Errorf("stats = %+v, want two bakes and two released handles", st)
	}
}

func TestUploadSectionRepublishFailureKeepsOldHandles(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 1})
	defer b.Close()

	var sections [gpucore.SectionsPerChunk]*Section
	sections[1] = testSection(t, 1)
	_ = b.UploadChunk(5, 5, sections)
	b.Wait()
	published, _ := rec.Chunk(5, 5)

	lost := errors.New("device lost")
	rec.FailOn(recorder.OpCreateChunk, lost)
	key := SectionKey{X: 5, Y: 1, Z: 5}
	pal, _, err := b.UploadSection(key, testSection(t, 2))
	if !errors.Is(err, lost) {
		t.Fatalf("error = %v, want %v", err, lost)
	}
	if p, _ := b.Owned(key); p != pal {
		t.Errorf("Owned palette = %d, want %d", p, pal)
	}
	if _, ok := rec.Palette(published.Palettes[1]); !ok {
		t.Fatal("palette of the published chunk destroyed after a failed republish")
	}

	rec.FailOn(recorder.OpCreateChunk, nil)
	pal3, _, err := b.UploadSection(key, testSection(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	c, _ := rec.Chunk(5, 5)
	if c.Palettes[1] != pal3 {
		t.Errorf("chunk palette = %d, want %d", c.Palettes[1], pal3)
	}
	if _, _, pals, sts := rec.Live(); pals != 1 || sts != 1 {
		t.Errorf("live palettes/storages = %d/%d, want 1/1", pals, sts)
	}

	_ = b.Unload(5, 5)
	b.Wait()
	if _, _, pals, sts := rec.Live(); pals != 0 || sts != 0 {
		t.Errorf("live palettes/storages after unload = %d/%d", pals, sts)
	}
}

func TestUploadSectionOrderedAfterQueuedChunk(t *testing.T) {
	rec := recorder.New()
	b := NewBridge(rec, Config{Workers: 4})
	defer b.Close()

	for round := range 20 {
		x := int32(round)
		var sections [gpucore.SectionsPerChunk]*Section
		sections[2] = testSection(t, 1, 2)
		if err := b.UploadChunk(x, 0, sections); err != nil {
			t.Fatal(err)
		}
		// No Wait: the section must apply after the queued chunk upload.
		pal, st, err := b.UploadSection(SectionKey{X: x, Y: 2, Z: 0}, testSection(t, 9))
		if err != nil {
			t.Fatal(err)
		}
		c, ok := rec.Chunk(x, 0)
		if !ok {
			t.Fatalf("column %d not published before UploadSection returned", x)
		}
		if c.Palettes[2] != pal || c.Storages[2] != st {
			t.Errorf("column %d section 2 = %d/%d, want %d/%d", x, c.Palettes[2], c.Storages[2], pal, st)
		}
		if _, ok := rec.Palette(c.Palettes[2]); !ok {
			t.Errorf("column %d publishes destroyed palette %d", x, c.Palettes[2])
		}
	}
	if _, _, pals, _ := rec.Live(); pals != 20 {
		t.Errorf("live palettes = %d, want 20", pals)
	}
}
