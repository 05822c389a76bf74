package native

import "errors"

// Package errors.
var (
	// ErrNilDevice is returned when the backend is created without a device or queue.
	ErrNilDevice = errors.New("native: HAL device or queue is nil")

	// ErrNotHAL is returned when a device provider does not expose HAL types.
	ErrNotHAL = errors.New("native: provider does not expose HAL device and queue")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("native: backend closed")

	// ErrEmptyUpload is returned when an upload carries no texels.
	ErrEmptyUpload = errors.New("native: upload is empty")

	// ErrNilView is returned when Flush has no target view.
	ErrNilView = errors.New("native: flush target view is nil")
)
