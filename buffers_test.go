package glcompat

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/glcompat/backend/recorder"
)

func TestBufferLifecycle(t *testing.T) {
	ctx, rec := newTestContext(t)

	h := ctx.GenBuffer()
	if h != 1 || ctx.GenBuffer() != 2 {
		t.Fatalf("GenBuffer handles start at %d", h)
	}
	if err := ctx.BufferData(h, BufferUsageVertex|BufferUsageMapWrite, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	first, err := ctx.BufferID(h)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := rec.Buffer(first); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("backend buffer = %v", got)
	}
	if usage := BufferUsage(rec.Calls()[0].Usage); usage != BufferUsageVertex {
		t.Errorf("backend usage = %#x, want vertex only", usage)
	}

	if err := ctx.BufferSubData(h, 2, []byte{9, 9}); err != nil {
		t.Fatal(err)
	}
	mapped, err := ctx.MapBuffer(h)
	if err != nil || !bytes.Equal(mapped, []byte{1, 2, 9, 9}) {
		t.Errorf("MapBuffer = %v, %v", mapped, err)
	}
	second, _ := ctx.BufferID(h)
	if got, ok := rec.Buffer(second); !ok || !bytes.Equal(got, []byte{1, 2, 9, 9}) {
		t.Errorf("rebuilt backend buffer = %v, %v", got, ok)
	}
	if _, ok := rec.Buffer(first); ok {
		t.Error("replaced backend buffer still live")
	}

	if err := ctx.BufferSubData(h, 3, []byte{1, 2}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("overflowing write error = %v, want ErrOutOfBounds", err)
	}
	if st := ctx.Stats(); st.Buffers != 1 || st.BufferUploads != 2 {
		t.Errorf("stats = buffers %d, uploads %d", st.Buffers, st.BufferUploads)
	}
}

func TestBufferMapOnlyStaysOnCPU(t *testing.T) {
	ctx, rec := newTestContext(t)
	h := ctx.GenBuffer()
	if err := ctx.BufferData(h, BufferUsageMapRead, 8, nil); err != nil {
		t.Fatal(err)
	}
	if err := ctx.BufferSubData(h, 0, []byte{7}); err != nil {
		t.Fatal(err)
	}
	if n := rec.Count(recorder.OpCreateBuffer); n != 1 {
		t.Errorf("CreateBuffer called %d times, want 1", n)
	}
	mapped, _ := ctx.MapBuffer(h)
	if len(mapped) != 8 || mapped[0] != 7 {
		t.Errorf("MapBuffer = %v", mapped)
	}
}

func TestBufferDataReplacesStorage(t *testing.T) {
	ctx, rec := newTestContext(t)
	h := ctx.GenBuffer()
	_ = ctx.BufferData(h, BufferUsageIndex, 16, nil)
	_ = ctx.BufferData(h, BufferUsageIndex, 32, nil)
	if n := rec.Count(recorder.OpDropBuffer); n != 1 {
		t.Errorf("DropBuffer called %d times, want 1", n)
	}
	if _, buffers, _, _ := rec.Live(); buffers != 1 {
		t.Errorf("live backend buffers = %d, want 1", buffers)
	}
	mapped, _ := ctx.MapBuffer(h)
	if len(mapped) != 32 {
		t.Errorf("buffer size = %d, want 32", len(mapped))
	}
}

func TestDeleteBufferTwice(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		wantErr error
	}{
		{"release", false, nil},
		{"strict", true, ErrCallerMisuse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, rec := newTestContext(t, WithStrict(tt.strict))
			h := ctx.GenBuffer()
			if err := ctx.BufferData(h, BufferUsageUniform, 64, nil); err != nil {
				t.Fatal(err)
			}
			if err := ctx.DeleteBuffer(h); err != nil {
				t.Fatalf("first DeleteBuffer: %v", err)
			}
			err := ctx.DeleteBuffer(h)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("second DeleteBuffer error = %v, want %v", err, tt.wantErr)
			}
			if n := rec.Count(recorder.OpDropBuffer); n != 1 {
				t.Errorf("DropBuffer called %d times, want 1", n)
			}
			if _, err := ctx.MapBuffer(h); !errors.Is(err, ErrCallerMisuse) {
				t.Errorf("MapBuffer after delete error = %v", err)
			}
			if ctx.Stats().Buffers != 0 {
				t.Error("deleted buffer still counted")
			}
		})
	}
}

func TestDeleteBufferWithoutStorage(t *testing.T) {
	ctx, rec := newTestContext(t, WithStrict(true))
	if err := ctx.DeleteBuffer(ctx.GenBuffer()); err != nil {
		t.Errorf("DeleteBuffer of an empty handle = %v", err)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("backend calls = %v", rec.Ops())
	}
}

func TestCloseDropsBuffers(t *testing.T) {
	ctx, rec := newTestContext(t)
	for range 3 {
		_ = ctx.BufferData(ctx.GenBuffer(), BufferUsageVertex, 4, nil)
	}
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if _, buffers, _, _ := rec.Live(); buffers != 0 {
		t.Errorf("live backend buffers after Close = %d", buffers)
	}
	if err := ctx.BufferData(1, BufferUsageVertex, 4, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("BufferData after Close = %v", err)
	}
}
