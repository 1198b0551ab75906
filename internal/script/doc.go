// Package script builds the text sent to speech synthesis: built-in
// affirmation presets, sentence splitting, and pause markup between lines.
package script
