package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	logFilePrefix = "mantra-"
	logFileSuffix = ".log"
	logDateLayout = "20060102"
)

// LogFileName returns the daily log file name for t, e.g. mantra-20261017.log.
func LogFileName(t time.Time) string {
	return logFilePrefix + t.Format(logDateLayout) + logFileSuffix
}

// PruneLogs removes daily log files in dir whose date is more than
// retentionDays before now. The file for today is always kept. A
// retentionDays value of 0 disables pruning. It returns the removed paths.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) ([]string, error) {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	today := LogFileName(now)
	cutoff := now.AddDate(0, 0, -retentionDays)
	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == today {
			continue
		}
		day, ok := logFileDate(name)
		if !ok || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on paths.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed = append(removed, path)
	}
	if len(removed) > 0 && logger != nil {
		logger.Debug("logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("count", len(removed)),
			Int("retention_days", retentionDays),
		)
	}
	return removed, nil
}

func logFileDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, logFilePrefix), logFileSuffix)
	day, err := time.ParseInLocation(logDateLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
