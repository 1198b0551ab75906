// Package engine owns the ffmpeg-backed transcode engine used by the mixdown
// pipeline.
//
// An Engine is an explicit handle: it starts Uninitialized and is brought up
// lazily by EnsureReady, which resolves and probes the ffmpeg binary and
// creates a private staging directory guarded by a file lock. Concurrent
// EnsureReady calls share a single load attempt. A failed load leaves the
// engine Failed and the next call retries; Terminate tears everything down and
// returns the handle to Uninitialized.
//
// Blobs are exchanged with the engine by name through Stage, ReadFile, and
// Unstage. Run executes one filters.Graph inside the staging directory. Runs
// are serialized per engine.
package engine
