package glcompat

import "github.com/gogpu/glcompat/internal/pixel"

// AlignmentMode selects how the unpack alignment affects source rows.
type AlignmentMode = pixel.AlignmentMode

const (
	// AlignmentIgnore accepts the alignment parameter without padding source
	// rows. This is the default and matches the legacy bridge.
	AlignmentIgnore = pixel.AlignmentIgnore

	// AlignmentPadRows rounds each source row up to the alignment in bytes.
	AlignmentPadRows = pixel.AlignmentPadRows
)

// Option configures a Context during creation.
//
// Example:
//
//	ctx := glcompat.NewContext(b,
//	    glcompat.WithStrict(true),
//	    glcompat.WithWorkers(4),
//	)
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	strict         bool
	alignment      AlignmentMode
	workers        int
	queueDepth     int
	shadowBudgetMB int
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		alignment: AlignmentIgnore,
		workers:   0, // GOMAXPROCS
	}
}

// WithStrict makes ignorable call failures return their error instead of
// being logged and dropped.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithAlignmentMode sets how SubUpload applies the unpack alignment.
func WithAlignmentMode(mode AlignmentMode) Option {
	return func(o *options) {
		o.alignment = mode
	}
}

// WithWorkers sets the number of chunk upload workers. Zero or less uses
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithQueueDepth sets the per-worker chunk upload queue depth. A full queue
// blocks UploadChunk.
func WithQueueDepth(n int) Option {
	return func(o *options) {
		o.queueDepth = n
	}
}

// WithShadowBudget bounds the CPU shadow copies of textures and buffers, in
// megabytes. Zero keeps the default of 256 MB, a negative value disables the
// bound.
func WithShadowBudget(mb int) Option {
	return func(o *options) {
		o.shadowBudgetMB = mb
	}
}
