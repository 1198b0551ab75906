// Package library keeps the local render history in SQLite.
//
// Each mixdown the CLI performs is recorded when it starts and updated when
// it finishes, so `mantra library list` can show what was rendered, with
// which settings, and why a render failed.
package library
