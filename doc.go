// Package glcompat translates the calls of a legacy immediate-mode GL client
// into the call surface of a retained-mode GPU backend.
//
// # Overview
//
// A [Context] holds the state the legacy API keeps globally: texture names
// and their records, the bound texture units, and the pixel-store (unpack)
// parameters. Texture, pixel-store and draw calls are translated
// synchronously, in the order the client made them, into calls on a
// [gpucore.Native]. Chunk columns are transferred out of band by the
// [chunk.Bridge] returned from [Context.Chunks].
//
// # Quick Start
//
//	b, err := backend.Get(backend.BackendRecorder)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	ctx := glcompat.NewContext(b)
//	defer ctx.Close()
//
//	tex := ctx.GenTexture()
//	ctx.BindTexture(tex)
//	_ = ctx.SpecifyImage(tex, 0, glcompat.FormatRGBA, 16, 16, nil)
//	ctx.SetParameter(glcompat.UnpackRowLength, 20)
//	_ = ctx.SubUpload(tex, 0, 0, 0, 4, 4, glcompat.FormatRGBA, pixels)
//
// # Errors
//
// Calls the legacy API would silently ignore (unsupported formats and
// topologies, vertex layouts without a pipeline, a shrinking
// re-specification, drawing a textured layout with nothing bound) are logged
// at debug level and return nil. [WithStrict] makes them return their
// error instead. Out-of-bounds uploads always fail with [ErrOutOfBounds].
//
// # Logging
//
// The package logs through log/slog and is silent by default. [SetLogger]
// configures the logger of this package and of its sub-packages.
package glcompat
