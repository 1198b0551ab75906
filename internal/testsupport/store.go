package testsupport

import (
	"testing"

	"mantra/internal/config"
	"mantra/internal/library"
)

// MustOpenLibrary opens the render history for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
