// Package mixdown runs the narration pipeline: it stages the voice on the
// transcode engine, optionally renders a 30 second binaural bed, applies the
// hall chain and per-stream gains, and checks the engine's output is
// 44.1 kHz 16-bit stereo PCM before handing it back.
package mixdown
