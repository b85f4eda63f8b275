package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Backend persists whole documents by name. Save always replaces the
// complete document.
type Backend interface {
	// Load returns the stored document, or an error wrapping ErrNotExist.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save replaces the stored document.
	Save(ctx context.Context, name string, data []byte) error

	// Close releases the backend's resources.
	Close() error
}

// NewBackend creates a Backend based on the backend name.
//
// Supported backends:
//
//	"json"   - one JSON file per document, relative to dataDir (default)
//	"sqlite" - SQLite database at dataDir/documents.db
//	"badger" - Badger key-value store in dataDir/badger
//	"memory" - In-memory (ephemeral, for testing)
//
// logger receives the log output of backends that produce their own.
func NewBackend(kind, dataDir string, logger *slog.Logger) (Backend, error) {
	switch kind {
	case "json", "":
		return NewJSONFileBackend(dataDir), nil
	case "sqlite":
		b, err := NewSqliteBackend(filepath.Join(dataDir, "documents.db"))
		if err != nil {
			return nil, err
		}
		return b, nil
	case "badger":
		b, err := NewBadgerBackend(filepath.Join(dataDir, "badger"), logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, badger, memory)", kind)
	}
}
