// Package registry emulates legacy texture object names and binding points.
//
// The registry is pure bookkeeping: it never calls the backend. Handles are
// dense integers handed out in creation order and are never reused, so two
// emulated texture objects can never alias the same record.
package registry

import (
	"fmt"

	"github.com/gogpu/glcompat/gpucore"
)

// Texture is the record behind one client-visible texture handle.
// A zero Width/Height record is a placeholder that was generated or bound but
// not yet specified.
type Texture struct {
	Width   uint32
	Height  uint32
	Format  gpucore.FormatID
	Backend gpucore.TextureID
}

// Specified reports whether the texture has been given an image.
func (t Texture) Specified() bool {
	return t.Backend != gpucore.InvalidID
}

// Registry tracks texture records and the bound-unit state.
//
// A Registry is owned by a single render goroutine and is not safe for
// concurrent use.
type Registry struct {
	textures []Texture

	active uint32
	units  map[uint32]uint32
}

// New returns an empty registry with unit 0 active and nothing bound.
func New() *Registry {
	return &Registry{units: make(map[uint32]uint32)}
}

// Generate allocates a placeholder record and returns its handle.
// The handle equals the number of records before the call.
func (r *Registry) Generate() uint32 {
	h := uint32(len(r.textures))
	r.textures = append(r.textures, Texture{})
	return h
}

// Ensure makes sure a record exists for handle, growing the table with
// placeholders if the client used a name it never generated. Later calls to
// Generate continue after the largest handle seen.
func (r *Registry) Ensure(handle uint32) *Texture {
	for uint32(len(r.textures)) <= handle {
		r.textures = append(r.textures, Texture{})
	}
	return &r.textures[handle]
}

// Record returns a copy of the record for handle.
func (r *Registry) Record(handle uint32) (Texture, bool) {
	if handle >= uint32(len(r.textures)) {
		return Texture{}, false
	}
	return r.textures[handle], true
}

// Resize applies a full re-specification of handle's dimensions.
// Dimensions may only grow; a shrink in either direction fails with
// gpucore.ErrCallerMisuse and leaves the record unchanged.
func (r *Registry) Resize(handle, width, height uint32) (grew bool, err error) {
	t := r.Ensure(handle)
	if width < t.Width || height < t.Height {
		return false, fmt.Errorf("texture %d: %dx%d to %dx%d would shrink it: %w",
			handle, t.Width, t.Height, width, height, gpucore.ErrCallerMisuse)
	}
	grew = width != t.Width || height != t.Height
	t.Width = width
	t.Height = height
	return grew, nil
}

// SetBackend stores the backend object currently holding handle's pixels.
func (r *Registry) SetBackend(handle uint32, format gpucore.FormatID, id gpucore.TextureID) {
	t := r.Ensure(handle)
	t.Format = format
	t.Backend = id
}

// Delete accepts a delete request. Handles are never recycled, so this is a
// no-op; the backend object lives until its owner closes it.
func (r *Registry) Delete(uint32) {}

// Len returns the number of records, which is also the next generated handle.
func (r *Registry) Len() int {
	return len(r.textures)
}

// Bind sets the texture bound to unit. The handle is not validated: legacy
// clients bind names before specifying them.
func (r *Registry) Bind(unit, handle uint32) {
	r.units[unit] = handle
}

// SetActiveUnit selects the unit that Bind-less calls operate on.
func (r *Registry) SetActiveUnit(unit uint32) {
	r.active = unit
}

// ActiveUnit returns the currently active unit.
func (r *Registry) ActiveUnit() uint32 {
	return r.active
}

// ResolveActive returns the handle bound to the active unit.
func (r *Registry) ResolveActive() (uint32, error) {
	h, ok := r.units[r.active]
	if !ok {
		return 0, fmt.Errorf("unit %d: %w", r.active, gpucore.ErrNoActiveBinding)
	}
	return h, nil
}
