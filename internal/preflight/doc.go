// Package preflight provides readiness checks for external services
// and filesystem paths that mantra depends on.
//
// These checks run in two contexts:
//   - The transcode engine calls CheckDirectoryAccess on the staging root
//     before creating its private directory, so a bad mount fails the load
//     with a readable reason instead of a raw ffmpeg error.
//   - The CLI "mantra status" command runs RunAll plus the ffmpeg and
//     speech synthesis checks to display overall health.
package preflight
