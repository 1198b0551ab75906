// Package deps locates and probes the external binaries mantra executes.
package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const defaultFFmpeg = "ffmpeg"

// Status reports whether an external binary can be executed.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// ResolveFFmpegPath returns the ffmpeg command to execute. An explicit
// configured value wins, then the MANTRA_FFMPEG environment variable, then
// plain "ffmpeg" resolved through PATH.
func ResolveFFmpegPath(configured string) string {
	if cmd := strings.TrimSpace(configured); cmd != "" {
		return cmd
	}
	if cmd := strings.TrimSpace(os.Getenv("MANTRA_FFMPEG")); cmd != "" {
		return cmd
	}
	return defaultFFmpeg
}

// LookupFFmpeg resolves the ffmpeg binary to an absolute path.
func LookupFFmpeg(configured string) Status {
	cmd := ResolveFFmpegPath(configured)
	result := Status{
		Name:        "FFmpeg",
		Command:     cmd,
		Description: "Required for mixdown",
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", cmd)
		return result
	}
	if info, statErr := os.Stat(resolved); statErr != nil || !isExecutable(info) {
		result.Detail = fmt.Sprintf("binary %q is not executable", resolved)
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

// FFmpegVersion runs "ffmpeg -version" and returns the first output line.
func FFmpegVersion(ctx context.Context, command string) (string, error) {
	out, err := exec.CommandContext(ctx, command, "-hide_banner", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg -version: %w", err)
	}
	return ParseVersion(out)
}

// ParseVersion extracts the version line from "ffmpeg -version" output,
// without the trailing copyright notice.
func ParseVersion(output []byte) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "ffmpeg version") {
		return "", fmt.Errorf("ffmpeg -version: unexpected output %q", line)
	}
	line, _, _ = strings.Cut(line, " Copyright")
	return strings.TrimSpace(line), nil
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
