// Command mantra renders narrated affirmation tracks and previews binaural
// beat profiles.
//
// Subcommands cover the offline mixdown (render), the live oscillator
// (preview), the beat catalog (profiles), render history (library), engine
// staging maintenance (staging), environment checks (status), and
// configuration bootstrap (config).
package main
