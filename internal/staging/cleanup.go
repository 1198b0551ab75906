package staging

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"mantra/internal/engine"
	"mantra/internal/logging"
)

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes one engine staging directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Files   int
	// Active is true while a live engine holds the directory's lock.
	Active bool
}

// ListDirectories returns the engine directories under stagingDir. Other
// entries are ignored.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), engine.DirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		size, files := dirUsage(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Files:   files,
			Active:  isActive(dirPath),
		})
	}
	return dirs, nil
}

// CleanStale removes engine directories older than maxAge that no running
// engine holds. A maxAge of zero removes every inactive directory.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	dirs, err := ListDirectories(stagingDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if maxAge > 0 && !dir.ModTime.Before(cutoff) {
			continue
		}
		removed, err := removeIfInactive(dir.Path)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale staging directory", "staging_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		case !removed:
			result.Skipped = append(result.Skipped, dir.Path)
			logger.Debug("staging directory in use; skipped", logging.String("path", dir.Path))
		default:
			result.Removed = append(result.Removed, dir.Path)
			logger.Info("removed stale staging directory",
				logging.String("path", dir.Path),
				logging.Duration("age", time.Since(dir.ModTime)),
				logging.Int64("bytes", dir.Size),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}

// isActive reports whether another process or engine holds dir's lock.
func isActive(dir string) bool {
	lockPath := filepath.Join(dir, engine.LockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		return false
	}
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil || !locked {
		return true
	}
	_ = fl.Unlock()
	return false
}

// removeIfInactive takes the directory's lock for the duration of the
// removal so a starting engine cannot claim it halfway through.
func removeIfInactive(dir string) (bool, error) {
	lockPath := filepath.Join(dir, engine.LockFileName)
	if _, err := os.Stat(lockPath); err == nil {
		fl := flock.New(lockPath)
		locked, err := fl.TryLock()
		if err != nil {
			return false, err
		}
		if !locked {
			return false, nil
		}
		defer func() { _ = fl.Unlock() }()
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, err
	}
	return true, nil
}

func dirUsage(path string) (int64, int) {
	var size int64
	var files int
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() == engine.LockFileName {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files
}
