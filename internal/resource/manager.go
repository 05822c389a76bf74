// Package resource owns backend textures and buffers on behalf of emulated
// handles.
//
// Every backend object is held by exactly one owner entry in a
// generation-indexed slab. Closing an owner drops the backend object once;
// closing it again is reported as gpucore.ErrCallerMisuse and never reaches
// the backend. While alive, an owner keeps a CPU shadow of its last written
// contents for read-back emulation. Shadows are charged against a budget and
// evicted least recently written first when the budget is exceeded.
package resource

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/glcompat/gpucore"
)

// Resource errors.
var (
	// ErrShadowEvicted is returned when reading a shadow that was dropped to
	// stay within the shadow budget.
	ErrShadowEvicted = errors.New("glcompat: shadow copy evicted")

	// ErrManagerClosed is returned when creating objects after Close.
	ErrManagerClosed = errors.New("glcompat: resource manager closed")
)

// DefaultShadowBudgetMB is the shadow budget used when Config leaves it zero.
const DefaultShadowBudgetMB = 256

// Config configures a Manager.
type Config struct {
	// ShadowBudgetMB bounds the total size of CPU shadows. Zero selects
	// DefaultShadowBudgetMB, a negative value disables the bound.
	ShadowBudgetMB int
}

// Stats reports shadow memory usage.
type Stats struct {
	Objects     int
	BudgetBytes uint64
	UsedBytes   uint64
	Evictions   uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("Shadows[%d objects, %d/%d KB, %d evictions]",
		s.Objects, s.UsedBytes/1024, s.BudgetBytes/1024, s.Evictions)
}

type kind uint8

const (
	kindTexture kind = iota
	kindBuffer
)

type object struct {
	kind    kind
	texture gpucore.TextureID
	buffer  gpucore.BufferID

	format gpucore.FormatID
	width  uint32
	height uint32

	shadow  []byte
	evicted bool
	element *list.Element
}

// Manager owns backend objects created through it.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	native gpucore.Native

	objects slab[*object]

	budgetBytes uint64 // 0 means unbounded
	usedBytes   uint64
	lru         *list.List // of Ref, most recently written at front
	evictions   uint64

	closed bool
}

// NewManager creates a Manager that creates and drops objects on native.
func NewManager(native gpucore.Native, config Config) *Manager {
	mb := config.ShadowBudgetMB
	if mb == 0 {
		mb = DefaultShadowBudgetMB
	}
	var budget uint64
	if mb > 0 {
		budget = uint64(mb) * 1024 * 1024
	}
	return &Manager{
		native:      native,
		budgetBytes: budget,
		lru:         list.New(),
	}
}

// CreateTexture creates a sampled texture and its zeroed shadow.
func (m *Manager) CreateTexture(format gpucore.FormatID, width, height uint32) (Texture, error) {
	id, err := m.native.CreateTexture(format, width, height, gpucore.TextureUsageSampled)
	if err != nil {
		return Texture{}, fmt.Errorf("create texture %dx%d %v: %w", width, height, format, err)
	}
	obj := &object{
		kind:    kindTexture,
		texture: id,
		format:  format,
		width:   width,
		height:  height,
		shadow:  make([]byte, int(width)*int(height)*format.BytesPerTexel()),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.native.DropTexture(id)
		return Texture{}, ErrManagerClosed
	}
	ref := m.registerLocked(obj)
	m.mu.Unlock()

	return Texture{m: m, ref: ref}, nil
}

// CreateBuffer creates a buffer. Map usages are kept on the shadow only and
// stripped from the backend usage. When data is non-nil the buffer starts
// with a copy of it and size is taken from len(data).
func (m *Manager) CreateBuffer(label string, usage gpucore.BufferUsage, size uint64, data []byte) (Buffer, error) {
	if data != nil {
		size = uint64(len(data))
	}
	id, err := m.native.CreateBuffer(label, usage&^gpucore.BufferUsageMap, size, data)
	if err != nil {
		return Buffer{}, fmt.Errorf("create buffer %q: %w", label, err)
	}
	obj := &object{
		kind:   kindBuffer,
		buffer: id,
		shadow: make([]byte, size),
	}
	copy(obj.shadow, data)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.native.DropBuffer(id)
		return Buffer{}, ErrManagerClosed
	}
	ref := m.registerLocked(obj)
	m.mu.Unlock()

	return Buffer{m: m, ref: ref}, nil
}

func (m *Manager) registerLocked(obj *object) Ref {
	ref := m.objects.insert(obj)
	m.chargeLocked(ref, obj)
	return ref
}

// chargeLocked accounts obj's shadow and evicts older shadows if the budget
// is exceeded. The newest shadow is never evicted by its own charge.
func (m *Manager) chargeLocked(ref Ref, obj *object) {
	m.usedBytes += uint64(len(obj.shadow))
	obj.element = m.lru.PushFront(ref)
	m.evictLocked(ref)
}

func (m *Manager) touchLocked(ref Ref, obj *object) {
	if obj.element != nil {
		m.lru.MoveToFront(obj.element)
	}
	m.evictLocked(ref)
}

func (m *Manager) evictLocked(keep Ref) {
	if m.budgetBytes == 0 {
		return
	}
	for m.usedBytes > m.budgetBytes {
		back := m.lru.Back()
		if back == nil {
			return
		}
		ref := back.Value.(Ref)
		if ref == keep {
			return
		}
		obj, ok := m.objects.get(ref)
		m.lru.Remove(back)
		if !ok {
			continue
		}
		m.usedBytes -= uint64(len(obj.shadow))
		obj.shadow = nil
		obj.evicted = true
		obj.element = nil
		m.evictions++
	}
}

func (m *Manager) uncharge(obj *object) {
	if obj.element != nil {
		m.lru.Remove(obj.element)
		obj.element = nil
	}
	m.usedBytes -= uint64(len(obj.shadow))
	obj.shadow = nil
}

func (m *Manager) lookup(ref Ref) (*object, error) {
	obj, ok := m.objects.get(ref)
	if !ok {
		return nil, fmt.Errorf("object %d.%d was already released: %w",
			ref.Index(), ref.Generation(), gpucore.ErrCallerMisuse)
	}
	return obj, nil
}

// release drops the backend object owned by ref exactly once.
func (m *Manager) release(ref Ref) error {
	m.mu.Lock()
	obj, ok := m.objects.remove(ref)
	if ok {
		m.uncharge(obj)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("object %d.%d was already dropped: %w",
			ref.Index(), ref.Generation(), gpucore.ErrCallerMisuse)
	}
	m.drop(obj)
	return nil
}

func (m *Manager) drop(obj *object) {
	switch obj.kind {
	case kindTexture:
		m.native.DropTexture(obj.texture)
	case kindBuffer:
		m.native.DropBuffer(obj.buffer)
	}
}

// Stats returns current shadow usage.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Objects:     m.objects.live,
		BudgetBytes: m.budgetBytes,
		UsedBytes:   m.usedBytes,
		Evictions:   m.evictions,
	}
}

// Close drops every live object and refuses further creation.
// Close is safe to call multiple times.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var owned []*object
	m.objects.each(func(ref Ref, obj *object) {
		owned = append(owned, obj)
	})
	for _, obj := range owned {
		m.uncharge(obj)
	}
	m.objects = slab[*object]{}
	m.mu.Unlock()

	for _, obj := range owned {
		m.drop(obj)
	}
}
