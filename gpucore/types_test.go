package gpucore

import "testing"

func TestBlockStatePacking(t *testing.T) {
	tests := []struct {
		block, augment uint16
	}{
		{0, 0},
		{1, 0},
		{0, 1},
		{0xffff, 0xffff},
		{0x1234, 0xabcd},
	}
	for _, tt := range tests {
		s := NewBlockState(tt.block, tt.augment)
		if s.Block() != tt.block || s.Augment() != tt.augment {
			t.Errorf("NewBlockState(%#x, %#x) = %#x, split to (%#x, %#x)",
				tt.block, tt.augment, uint32(s), s.Block(), s.Augment())
		}
	}
}

func TestFormatBytesPerTexel(t *testing.T) {
	tests := []struct {
		f    FormatID
		want int
	}{
		{FormatRGBA8, 4},
		{FormatR8, 1},
		{FormatR8Int, 1},
		{FormatDepth32, 4},
		{FormatID(42), 0},
	}
	for _, tt := range tests {
		if got := tt.f.BytesPerTexel(); got != tt.want {
			t.Errorf("%v.BytesPerTexel() = %d, want %d", tt.f, got, tt.want)
		}
	}
}

func TestLightArraySize(t *testing.T) {
	if LightArraySize != 2048 {
		t.Errorf("LightArraySize = %d, want 2048", LightArraySize)
	}
}

func TestPipelineLayouts(t *testing.T) {
	for id := PipelineID(0); id < PipelineCount; id++ {
		if id.VertexStride() == 0 {
			t.Errorf("pipeline %d has no stride", id)
		}
	}
	if PipelineID(PipelineCount).VertexStride() != 0 {
		t.Error("unknown pipeline has a stride")
	}
	if PipelinePositionColor.Textured() || !PipelineText.Textured() {
		t.Error("Textured() mismatch")
	}
}
