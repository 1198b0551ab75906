// Package filters builds the ffmpeg filter graphs used by the mixdown pipeline.
//
// The voice chain is a fixed, ordered list of stages (lead-in delay, dynamics,
// band limiting, hall echo, tonal shaping, output gain) registered by StageID,
// so the order lives in one slice and each stage renders itself from the
// reverb and gain settings. Graph values describe a complete engine invocation
// (inputs, filter_complex, encoder flags) and render to ffmpeg argv.
//
// Everything here is pure: no I/O, no engine state.
package filters
