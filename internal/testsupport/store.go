package testsupport

import (
	"testing"

	"kinetic/internal/catalog"
	"kinetic/internal/config"
	"kinetic/internal/objectstore"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenObjects opens the content-addressed object store for tests.
func MustOpenObjects(t testing.TB, cfg *config.Config) *objectstore.Store {
	t.Helper()

	objects, err := objectstore.Open(cfg.ObjectStoreDir())
	if err != nil {
		t.Fatalf("objectstore.Open: %v", err)
	}
	return objects
}
