package native

import "github.com/gogpu/gputypes"

// Option configures a Backend.
type Option func(*options)

type options struct {
	targetFormat gputypes.TextureFormat
	spirv        bool
	clear        *gputypes.Color
	label        string
}

func defaultOptions() options {
	return options{
		targetFormat: gputypes.TextureFormatBGRA8Unorm,
		label:        "glcompat",
	}
}

// WithTargetFormat sets the color format of the views passed to Flush.
// The default is BGRA8Unorm.
func WithTargetFormat(format gputypes.TextureFormat) Option {
	return func(o *options) {
		if format != gputypes.TextureFormatUndefined {
			o.targetFormat = format
		}
	}
}

// WithSPIRV compiles the pipeline shaders to SPIR-V with naga instead of
// handing WGSL to the device. Devices without a WGSL front end need it.
func WithSPIRV(enabled bool) Option {
	return func(o *options) {
		o.spirv = enabled
	}
}

// WithClearColor makes every frame pass clear the target first. Without it
// the pass loads the existing contents.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clear = &c
	}
}

// WithLabel sets the prefix of debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
