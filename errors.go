package glcompat

import (
	"errors"

	"github.com/gogpu/glcompat/gpucore"
)

// Errors reported by a Context. They are the gpucore sentinels, so errors
// from the backend packages match them with errors.Is as well.
var (
	// ErrCallerMisuse reports a call sequence the legacy API forbids:
	// shrinking a texture, closing an owned object twice, using a released
	// handle.
	ErrCallerMisuse = gpucore.ErrCallerMisuse

	// ErrUnsupportedFormat is returned for pixel formats that are not emulated.
	ErrUnsupportedFormat = gpucore.ErrUnsupportedFormat

	// ErrUnsupportedTopology is returned for primitive modes other than
	// quads and triangles.
	ErrUnsupportedTopology = gpucore.ErrUnsupportedTopology

	// ErrSkipDraw is returned for vertex layouts without a backend pipeline.
	ErrSkipDraw = gpucore.ErrSkipDraw

	// ErrOutOfBounds is returned when an upload does not fit the texture or
	// reads past the end of its source.
	ErrOutOfBounds = gpucore.ErrOutOfBounds

	// ErrNoActiveBinding is returned when the active unit was never bound.
	ErrNoActiveBinding = gpucore.ErrNoActiveBinding

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("glcompat: context closed")

	// ErrInvalidConfig is returned for configuration values that cannot be
	// applied.
	ErrInvalidConfig = errors.New("glcompat: invalid config")
)
