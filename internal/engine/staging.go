package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mantra/internal/logging"
	"mantra/internal/services"
)

// StagedName builds the staged file name for one role of an invocation.
// Prefixing every name with the invocation id keeps concurrent mixdowns on
// one engine from colliding.
func StagedName(invocation, role string) string {
	return invocation + "-" + role
}

// ValidateName rejects names that would escape the staging directory or
// touch the engine's lock file.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &services.InvalidInputError{Field: "staged name", Value: `""`, Reason: "must not be empty"}
	case name == "." || name == "..":
		return &services.InvalidInputError{Field: "staged name", Value: name, Reason: "must name a file"}
	case strings.ContainsAny(name, `/\`):
		return &services.InvalidInputError{Field: "staged name", Value: name, Reason: "must not contain path separators"}
	case name == LockFileName:
		return &services.InvalidInputError{Field: "staged name", Value: name, Reason: "reserved"}
	}
	return nil
}

// Stage writes data under name in the staging directory, replacing any
// existing file of that name.
func (e *Engine) Stage(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	_, dir, err := e.ready()
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return nil
}

// ReadFile returns the contents of a staged file.
func (e *Engine) ReadFile(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	_, dir, err := e.ready()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether name is currently staged.
func (e *Engine) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	_, dir, err := e.ready()
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.Mode().IsRegular()
}

// Unstage removes name from the staging directory. Removal is best effort:
// an absent name is a no-op and failures are logged, never returned.
func (e *Engine) Unstage(ctx context.Context, name string) {
	logger := logging.WithContext(ctx, e.logger)
	if err := ValidateName(name); err != nil {
		logging.WarnWithContext(logger, "unstage skipped", "unstage_invalid_name",
			logging.String("name", name),
			logging.Error(err),
		)
		return
	}
	_, dir, err := e.ready()
	if err != nil {
		return
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "unstage failed; file remains in staging", "unstage_failed",
			logging.String("name", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "file is removed when the engine terminates"),
		)
	}
}
