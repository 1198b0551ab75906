// Package audio holds the immutable audio blob passed between the speech
// collaborator, the mixdown pipeline, and disk, plus the WAV and MP3 helpers
// needed to inspect and normalise those blobs.
package audio
