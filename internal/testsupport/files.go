package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile fills path with size bytes of a repeating pattern, creating
// parent directories. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// StagingDir creates root/name holding one staged payload of size bytes and
// backdates the directory by age, mimicking an engine directory left behind
// by an interrupted render.
func StagingDir(t testing.TB, root, name string, age time.Duration, size int64) string {
	t.Helper()

	dir := filepath.Join(root, name)
	WriteFile(t, filepath.Join(dir, "render-input.wav"), size)
	if age > 0 {
		old := time.Now().Add(-age)
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", dir, err)
		}
	}
	return dir
}
