package backend

import (
	"errors"

	"github.com/gogpu/glcompat/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered
	// or its factory failed.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// BackendNative is the HAL backend on a gogpu/wgpu device.
	BackendNative = "native"
	// BackendRecorder is the in-memory backend that records every call.
	BackendRecorder = "recorder"
)

// Backend is a native call surface the bridge can drive.
//
// Backends are registered via Register() and are selected via Get() or
// Default().
type Backend interface {
	gpucore.Native

	// Name returns the backend identifier (e.g., "native", "recorder").
	Name() string

	// Close releases every object the backend owns.
	// The backend should not be used after Close is called.
	Close() error
}
