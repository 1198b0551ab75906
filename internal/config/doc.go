// Package config reads mantra's TOML settings file.
//
// Load starts from Default, decodes the file over it, expands ~ in paths,
// applies the ELEVENLABS_API_KEY and MANTRA_FFMPEG fallbacks, and validates
// the mixdown defaults against the same ranges the renderer enforces. A
// missing file is not an error: defaults are used and Load reports that the
// file did not exist.
//
// CreateSample writes the embedded sample_config.toml for `mantra config init`.
package config
