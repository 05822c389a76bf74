// Package native implements gpucore.Native on a gogpu/wgpu HAL device.
//
// Textures, buffers, palettes and packed storages become wgpu objects as soon
// as they are created. Draw calls are collected into a frame: each one gets
// its own vertex, index and uniform buffers and is replayed into a single
// render pass by Flush. Frame resources are released once the queue reports
// the submission complete.
//
// The backend runs on any hal.Device. Tests and the demo use the hal/noop
// device, which accepts every call without touching a GPU:
//
//	b, closeDevice, err := native.NewNoop()
//	if err != nil {
//		return err
//	}
//	defer closeDevice()
//	defer b.Close()
//
// Hosts that already own a device share it through a gpucontext.DeviceProvider
// with NewFromProvider.
package native
