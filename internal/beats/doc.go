// Package beats holds the binaural-beat frequency table shared by the offline
// bed renderer and the live preview oscillator.
//
// Every profile uses the same carrier tone. The left ear receives the carrier
// and the right ear receives the carrier plus the profile's beat frequency, so
// the perceived beat is the difference between the ears.
//
// The table is immutable: callers look profiles up by name with Parse and read
// tones with Tones. Nothing in this package performs I/O.
package beats
