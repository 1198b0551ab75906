package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteFileAtomic writes data to a temp file beside path, syncs it and
// renames it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	committed = true
	return nil
}

// WriteFileVerified writes data atomically, then reads it back and compares
// SHA-256 digests. The file is removed on mismatch.
func WriteFileVerified(path string, data []byte, mode os.FileMode) error {
	if err := WriteFileAtomic(path, data, mode); err != nil {
		return err
	}
	written, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	if len(written) != len(data) {
		_ = os.Remove(path)
		return fmt.Errorf("verify %s: size mismatch: wrote %d bytes, found %d", path, len(data), len(written))
	}
	want := sha256.Sum256(data)
	got := sha256.Sum256(written)
	if !bytes.Equal(want[:], got[:]) {
		_ = os.Remove(path)
		return fmt.Errorf("verify %s: hash mismatch", path)
	}
	return nil
}

// UniquePath returns dir/name+ext, or dir/name-N+ext for the smallest N >= 2
// that does not exist yet.
func UniquePath(dir, name, ext string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("unique path: empty name")
	}
	candidate := filepath.Join(dir, name+ext)
	for n := 2; ; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("unique path: %w", err)
		}
		if n > 9999 {
			return "", fmt.Errorf("unique path: too many files named %s in %s", name, dir)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", name, n, ext))
	}
}
