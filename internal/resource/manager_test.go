package resource

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/glcompat/backend/recorder"
	"github.com/gogpu/glcompat/gpucore"
	"github.com/gogpu/glcompat/internal/pixel"
)

func TestSlabGenerations(t *testing.T) {
	var s slab[int]
	a := s.insert(1)
	if a == 0 {
		t.Fatal("insert returned the zero Ref")
	}
	if _, ok := s.remove(a); !ok {
		t.Fatal("remove of live ref failed")
	}
	b := s.insert(2)
	if b.Index() != a.Index() {
		t.Fatalf("slot not reused: %d vs %d", b.Index(), a.Index())
	}
	if b.Generation() == a.Generation() {
		t.Fatal("reused slot kept its generation")
	}
	if _, ok := s.get(a); ok {
		t.Error("stale ref resolved after reuse")
	}
	if v, ok := s.get(b); !ok || v != 2 {
		t.Errorf("get(b) = %d, %v", v, ok)
	}
	if _, ok := s.remove(a); ok {
		t.Error("stale ref removed the new occupant")
	}
	if s.live != 1 {
		t.Errorf("live = %d, want 1", s.live)
	}
}

func TestTextureDoubleClose(t *testing.T) {
	rec := recorder.New()
	m := NewManager(rec, Config{})

	tex, err := m.CreateTexture(gpucore.FormatRGBA8, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := tex.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	err = tex.Close()
	if !errors.Is(err, gpucore.ErrCallerMisuse) {
		t.Errorf("second Close error = %v, want ErrCallerMisuse", err)
	}
	if n := rec.Count(recorder.OpDropTexture); n != 1 {
		t.Errorf("DropTexture called %d times, want 1", n)
	}
	if _, err := tex.ID(); !errors.Is(err, gpucore.ErrCallerMisuse) {
		t.Errorf("ID after Close error = %v", err)
	}
}

func TestBufferDoubleClose(t *testing.T) {
	rec := recorder.New()
	m := NewManager(rec, Config{})

	buf, err := m.CreateBuffer("uniforms", gpucore.BufferUsageUniform|gpucore.BufferUsageMapWrite, 64, nil)
	if err != nil {
		t.Fatal(err)
	}
	calls := rec.Calls()
	if got := gpucore.BufferUsage(calls[0].Usage); got&gpucore.BufferUsageMap != 0 {
		t.Errorf("backend usage %#x still carries map flags", got)
	}
	if err := buf.Close(); err != nil {
		t.Fatal(err)
	}
	if err := buf.Close(); !errors.Is(err, gpucore.ErrCallerMisuse) {
		t.Errorf("second Close error = %v, want ErrCallerMisuse", err)
	}
	if n := rec.Count(recorder.OpDropBuffer); n != 1 {
		t.Errorf("DropBuffer called %d times, want 1", n)
	}
}

func TestStaleOwnerAfterReuse(t *testing.T) {
	rec := recorder.New()
	m := NewManager(rec, Config{})

	a, _ := m.CreateTexture(gpucore.FormatR8, 2, 2)
	_ = a.Close()
	b, _ := m.CreateTexture(gpucore.FormatR8, 2, 2)

	if err := a.Close(); !errors.Is(err, gpucore.ErrCallerMisuse) {
		t.Fatalf("stale Close error = %v", err)
	}
	if _, err := b.ID(); err != nil {
		t.Errorf("stale Close affected the new owner: %v", err)
	}
}

func TestBufferShadow(t *testing.T) {
	rec := recorder.New()
	m := NewManager(rec, Config{})

	buf, err := m.CreateBuffer("init", gpucore.BufferUsageVertex, 0, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Write(2, []byte{9, 9}); err != nil {
		t.Fatal(err)
	}
	got, _ := buf.Bytes()
	if !bytes.Equal(got, []byte{1, 2, 9, 9}) {
		t.Errorf("shadow = %v", got)
	}
	if err := buf.Write(3, []byte{1, 2}); !errors.Is(err, gpucore.ErrOutOfBounds) {
		t.Errorf("overflowing write error = %v", err)
	}
}

func TestTextureShadowMirrorsUploads(t *testing.T) {
	rec := recorder.New()
	m := NewManager(rec, Config{})

	tex, _ := m.CreateTexture(gpucore.FormatRGBA8, 3, 2)
	if err := tex.WriteFull(nil); err != nil {
		t.Fatal(err)
	}
	p := pixel.DefaultParams()
	if err := tex.WriteRect(1, 1, 2, 1, []uint32{0xaabbccdd, 0x01020304}, p); err != nil {
		t.Fatal(err)
	}
	shadow, err := tex.ReadShadow()
	if err != nil {
		t.Fatal(err)
	}
	id, _ := tex.ID()
	model, _ := rec.Texture(id)
	if !bytes.Equal(shadow, model.Pixels) {
		t.Errorf("shadow %x differs from backend %x", shadow, model.Pixels)
	}

	err = tex.WriteRect(2, 0, 2, 1, []uint32{1, 2}, p)
	if !errors.Is(err, gpucore.ErrOutOfBounds) {
		t.Errorf("WriteRect overflow error = %v", err)
	}
}

func TestShadowBudgetEviction(t *testing.T) {
	rec := recorder.New()
	m := NewManager(rec, Config{ShadowBudgetMB: 1})

	// Each 512x256 RGBA texture shadows 512 KB; the third evicts the first.
	var texs []Texture
	for range 3 {
		tex, err := m.CreateTexture(gpucore.FormatRGBA8, 512, 256)
		if err != nil {
			t.Fatal(err)
		}
		texs = append(texs, tex)
	}
	if _, err := texs[0].ReadShadow(); !errors.Is(err, ErrShadowEvicted) {
		t.Errorf("oldest shadow error = %v, want ErrShadowEvicted", err)
	}
	if _, err := texs[2].ReadShadow(); err != nil {
		t.Errorf("newest shadow error = %v", err)
	}
	st := m.Stats()
	if st.Evictions != 1 || st.Objects != 3 || st.UsedBytes > st.BudgetBytes {
		t.Errorf("stats = %v", st)
	}
	// Evicted owners still upload.
	if err := texs[0].WriteFull(nil); err != nil {
		t.Errorf("WriteFull on evicted shadow: %v", err)
	}
}

func TestManagerClose(t *testing.T) {
	rec := recorder.New()
	m := NewManager(rec, Config{ShadowBudgetMB: -1})
	_, _ = m.CreateTexture(gpucore.FormatRGBA8, 1, 1)
	_, _ = m.CreateBuffer("b", gpucore.BufferUsageIndex, 16, nil)

	m.Close()
	m.Close()

	if tex, buf, _, _ := rec.Live(); tex != 0 || buf != 0 {
		t.Errorf("live textures/buffers after Close = %d/%d", tex, buf)
	}
	if _, err := m.CreateTexture(gpucore.FormatRGBA8, 1, 1); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("create after Close error = %v", err)
	}
	if m.Stats().UsedBytes != 0 {
		t.Errorf("used bytes after Close = %d", m.Stats().UsedBytes)
	}
}

func TestZeroOwners(t *testing.T) {
	var tex Texture
	var buf Buffer
	if tex.Valid() {
		t.Error("zero Texture reports Valid")
	}
	if err := tex.Close(); !errors.Is(err, gpucore.ErrCallerMisuse) {
		t.Errorf("zero Texture Close = %v", err)
	}
	if err := buf.Close(); !errors.Is(err, gpucore.ErrCallerMisuse) {
		t.Errorf("zero Buffer Close = %v", err)
	}
}
