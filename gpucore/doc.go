// Package gpucore defines the native call surface of the compatibility bridge.
//
// The bridge never talks to a GPU API directly. Every translated legacy call
// ends up as a call on the [Native] interface, which is the Go rendition of
// the fixed foreign-function boundary exposed by the retained-mode backend.
//
//	+--------------------+      +---------------------+
//	|  legacy GL client  | ---> |  glcompat.Context   |
//	+--------------------+      +----------+----------+
//	                                       |
//	                            +----------v----------+
//	                            |   gpucore.Native    |
//	                            +----------+----------+
//	                                       |
//	                +----------------------+-------------------+
//	                |                                          |
//	     +----------v----------+                   +-----------v---------+
//	     |  backend/recorder   |                   |   backend/native    |
//	     |  (headless, trace)  |                   |  (gogpu/wgpu HAL)   |
//	     +---------------------+                   +---------------------+
//
// # Resource IDs
//
// All backend objects are identified by opaque uint64 IDs. The zero value
// [InvalidID] never names a live object; it is also the "absent section"
// marker in chunk handle arrays.
//
// # Calling convention
//
// Calls are one-way unless they return a value. Implementations may queue
// draw state internally, but must observe calls in the order they were made.
package gpucore
