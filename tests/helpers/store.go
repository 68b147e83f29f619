package helpers

import (
	"testing"

	"github.com/Shodexco/aiproductmanager/internal/adapter/artifact"
	"github.com/Shodexco/aiproductmanager/internal/repository"
)

// NewTestSQLiteStore returns an in-memory run store whose artifacts live in a temp dir.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	fs, err := artifact.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create artifact store: %v", err)
	}

	s, err := store.NewSQLiteStore(":memory:", fs, 0)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
