// Package backend provides the pluggable native backends the bridge drives.
//
// A backend implements gpucore.Native: the fixed call surface of the
// retained-mode renderer. Two backends are built in and registered on
// import:
//
//   - "native": the HAL backend (package native) on a headless gogpu/wgpu
//     noop device. Hosts with a real device create native.Backend with
//     native.New or native.NewFromProvider and pass it to Wrap.
//   - "recorder": an in-memory backend that keeps every call and the state
//     the calls produce. It is the backend of the tests and of trace capture.
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	b, err := backend.Get(backend.BackendRecorder)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
package backend
