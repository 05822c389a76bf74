package gpucore

import "errors"

// Error taxonomy shared by every layer of the bridge. Callers test for these
// with errors.Is; producers wrap them with call-specific context.
var (
	// ErrCallerMisuse reports a call sequence the legacy API forbids:
	// shrinking a texture, closing an owned object twice, using a released
	// handle.
	ErrCallerMisuse = errors.New("glcompat: caller misuse")

	// ErrUnsupportedFormat is returned for pixel formats the bridge does not
	// emulate. It is never fatal.
	ErrUnsupportedFormat = errors.New("glcompat: unsupported format")

	// ErrUnsupportedTopology is returned for primitive topologies other than
	// quads and triangles. It is never fatal.
	ErrUnsupportedTopology = errors.New("glcompat: unsupported topology")

	// ErrSkipDraw is returned when a draw uses a vertex layout without a
	// backend pipeline. It is never fatal.
	ErrSkipDraw = errors.New("glcompat: draw skipped")

	// ErrOutOfBounds is returned when an upload does not fit the texture or
	// the source buffer.
	ErrOutOfBounds = errors.New("glcompat: out of bounds")

	// ErrNoActiveBinding is returned when the active texture unit was never
	// bound.
	ErrNoActiveBinding = errors.New("glcompat: no texture bound to active unit")

	// ErrUnknownHandle is returned by backends for IDs they never issued or
	// already dropped.
	ErrUnknownHandle = errors.New("glcompat: unknown handle")
)
