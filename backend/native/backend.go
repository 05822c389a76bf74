package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/glcompat/gpucore"
)

// Stats counts live objects and frame activity.
type Stats struct {
	Textures int
	Buffers  int
	Palettes int
	Storages int
	Chunks   int
	Baked    uint64
	Draws    uint64
	Dropped  uint64
	Frames   uint64
}

// Backend implements gpucore.Native on a HAL device.
//
// All methods are safe for concurrent use; one mutex serializes access to
// the device. The device and queue are borrowed and are not destroyed by
// Close.
type Backend struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	opts   options
	nextID uint64

	textures map[gpucore.TextureID]*texture
	buffers  map[gpucore.BufferID]*buffer
	palettes map[gpucore.PaletteID]*palette
	storages map[gpucore.StorageID]*storage
	chunks   map[[2]int32]*chunk
	targets  []*texture

	transformLayout hal.BindGroupLayout
	textureLayout   hal.BindGroupLayout
	sampler         hal.Sampler
	fallback        *texture
	pipelines       [gpucore.PipelineCount]*pipeline

	state    drawState
	frame    []drawCmd
	pending  []func()
	inflight []retired

	stats  Stats
	closed bool
}

var _ gpucore.Native = (*Backend)(nil)

// New creates a backend on device and queue.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := &Backend{
		device:   device,
		queue:    queue,
		opts:     o,
		nextID:   1,
		textures: make(map[gpucore.TextureID]*texture),
		buffers:  make(map[gpucore.BufferID]*buffer),
		palettes: make(map[gpucore.PaletteID]*palette),
		storages: make(map[gpucore.StorageID]*storage),
		chunks:   make(map[[2]int32]*chunk),
	}
	b.state.reset()

	if err := b.createSharedResources(); err != nil {
		b.destroySharedResources()
		return nil, err
	}
	slogger().Info("native: backend ready", "target_format", o.targetFormat, "spirv", o.spirv)
	return b, nil
}

// NewFromProvider creates a backend on a device shared by a host. The
// provider must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. The provider's surface format, when known,
// becomes the target format unless an option overrides it.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("HalDevice is not hal.Device: %w", ErrNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("HalQueue is not hal.Queue: %w", ErrNotHAL)
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{WithTargetFormat(f)}, opts...)
	}
	return New(device, queue, opts...)
}

// NewNoop creates a backend on a fresh hal/noop device. The returned
// function destroys the device and must be called after Close.
func NewNoop(opts ...Option) (*Backend, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, fmt.Errorf("noop instance has no adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("open noop device: %w", err)
	}
	closeDevice := func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	b, err := New(open.Device, open.Queue, opts...)
	if err != nil {
		closeDevice()
		return nil, nil, err
	}
	return b, closeDevice, nil
}

func (b *Backend) newIDLocked() uint64 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Backend) label(name string) string {
	return b.opts.label + "_" + name
}

// createSharedResources creates the bind group layouts, the sampler and the
// 1x1 white texture bound when a draw references no usable texture.
func (b *Backend) createSharedResources() error {
	var err error
	b.transformLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: b.label("transform_layout"),
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create transform layout: %w", err)
	}

	b.textureLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: b.label("texture_layout"),
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create texture layout: %w", err)
	}

	// Legacy clients expect nearest filtering with clamped edges.
	b.sampler, err = b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        b.label("sampler"),
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	b.fallback, err = b.newTexture("fallback_texture", gpucore.FormatRGBA8, 1, 1, gpucore.TextureUsageSampled)
	if err != nil {
		return fmt.Errorf("create fallback texture: %w", err)
	}
	return b.writeTexture(b.fallback, 0, 0, 1, 1, []byte{0xff, 0xff, 0xff, 0xff})
}

func (b *Backend) destroySharedResources() {
	for i, p := range b.pipelines {
		if p != nil {
			p.destroy(b.device)
			b.pipelines[i] = nil
		}
	}
	if b.fallback != nil {
		b.fallback.destroy(b.device)
		b.fallback = nil
	}
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.textureLayout != nil {
		b.device.DestroyBindGroupLayout(b.textureLayout)
		b.textureLayout = nil
	}
	if b.transformLayout != nil {
		b.device.DestroyBindGroupLayout(b.transformLayout)
		b.transformLayout = nil
	}
}

// Stats returns a snapshot of the counters.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stats
	st.Textures = len(b.textures)
	st.Buffers = len(b.buffers)
	st.Palettes = len(b.palettes)
	st.Storages = len(b.storages)
	st.Chunks = len(b.chunks)
	return st
}

// Close waits for the device to go idle and destroys every object the
// backend created. Close is safe to call multiple times.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.device.WaitIdle()

	b.discardFrameLocked()
	for _, r := range b.inflight {
		r.run()
	}
	b.inflight = nil

	for id, t := range b.textures {
		t.destroy(b.device)
		delete(b.textures, id)
	}
	for id, buf := range b.buffers {
		b.device.DestroyBuffer(buf.buf)
		delete(b.buffers, id)
	}
	for id, p := range b.palettes {
		b.device.DestroyBuffer(p.buf)
		delete(b.palettes, id)
	}
	for id, s := range b.storages {
		b.device.DestroyBuffer(s.buf)
		delete(b.storages, id)
	}
	for key, c := range b.chunks {
		b.device.DestroyBuffer(c.light)
		delete(b.chunks, key)
	}
	for _, t := range b.targets {
		t.destroy(b.device)
	}
	b.targets = nil
	b.destroySharedResources()

	slogger().Info("native: backend closed", "frames", b.stats.Frames, "draws", b.stats.Draws)
	if err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}
