package backend

import (
	"github.com/gogpu/glcompat/backend/native"
	"github.com/gogpu/glcompat/backend/recorder"
)

// init registers the built-in backends on package import.
func init() {
	Register(BackendNative, newNative)
	Register(BackendRecorder, func() (Backend, error) {
		return &recorderBackend{Recorder: recorder.New()}, nil
	})
}

// nativeBackend owns a headless noop HAL device. Hosts that own a real
// device construct native.Backend directly.
type nativeBackend struct {
	*native.Backend
	closeDevice func()
}

func newNative() (Backend, error) {
	b, closeDevice, err := native.NewNoop()
	if err != nil {
		return nil, err
	}
	return &nativeBackend{Backend: b, closeDevice: closeDevice}, nil
}

func (b *nativeBackend) Name() string { return BackendNative }

func (b *nativeBackend) Close() error {
	err := b.Backend.Close()
	if b.closeDevice != nil {
		b.closeDevice()
		b.closeDevice = nil
	}
	return err
}

type recorderBackend struct {
	*recorder.Recorder
}

func (recorderBackend) Name() string { return BackendRecorder }

func (recorderBackend) Close() error { return nil }

// Wrap adapts an existing native.Backend or recorder.Recorder to Backend.
// Other gpucore.Native values are returned as Backend if they already
// implement it, and nil otherwise.
func Wrap(n any) Backend {
	switch v := n.(type) {
	case Backend:
		return v
	case *native.Backend:
		return &nativeBackend{Backend: v}
	case *recorder.Recorder:
		return &recorderBackend{Recorder: v}
	default:
		return nil
	}
}

// Recorder returns the recorder behind b, if b is the recorder backend.
func Recorder(b Backend) (*recorder.Recorder, bool) {
	r, ok := b.(*recorderBackend)
	if !ok {
		return nil, false
	}
	return r.Recorder, true
}
