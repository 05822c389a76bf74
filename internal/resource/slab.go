package resource

// Ref names one slot of a slab together with the generation it was issued
// for. A Ref whose generation no longer matches the slot is stale. The zero
// Ref is never issued.
type Ref uint64

func makeRef(index, gen uint32) Ref { return Ref(uint64(index)<<32 | uint64(gen)) }

// Index returns the slot index.
func (r Ref) Index() uint32 { return uint32(r >> 32) }

// Generation returns the generation the ref was issued for.
func (r Ref) Generation() uint32 { return uint32(r) }

type slabSlot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// slab is a generation-indexed arena. Freed slots are reused with a bumped
// generation so stale refs are detected by a single comparison.
type slab[T any] struct {
	slots []slabSlot[T]
	free  []uint32
	live  int
}

func (s *slab[T]) insert(v T) Ref {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slabSlot[T]{})
	}
	slot := &s.slots[idx]
	slot.gen++
	slot.live = true
	slot.val = v
	s.live++
	return makeRef(idx, slot.gen)
}

func (s *slab[T]) get(r Ref) (T, bool) {
	var zero T
	idx := r.Index()
	if idx >= uint32(len(s.slots)) {
		return zero, false
	}
	slot := &s.slots[idx]
	if !slot.live || slot.gen != r.Generation() {
		return zero, false
	}
	return slot.val, true
}

func (s *slab[T]) remove(r Ref) (T, bool) {
	v, ok := s.get(r)
	if !ok {
		return v, false
	}
	slot := &s.slots[r.Index()]
	var zero T
	slot.live = false
	slot.val = zero
	s.free = append(s.free, r.Index())
	s.live--
	return v, true
}

// each calls fn for every live slot.
func (s *slab[T]) each(fn func(Ref, T)) {
	for i := range s.slots {
		if s.slots[i].live {
			fn(makeRef(uint32(i), s.slots[i].gen), s.slots[i].val)
		}
	}
}
