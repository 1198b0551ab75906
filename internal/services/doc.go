// Package services defines shared utilities consumed by the mixdown pipeline,
// the transcode engine, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp render IDs, step names, and correlation
//     identifiers for logging.
//   - The typed error taxonomy (invalid input, engine load, engine execution,
//     mixdown) with sentinel markers usable through errors.Is, plus Classify
//     which reduces any failure to the kind stored in render history.
//   - Wrap for integrations that only need a marker plus context.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
