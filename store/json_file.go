package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFileBackend stores each document as a JSON file.
//
// Relative document names resolve against dir:
//
//	dir/
//	  users.json            # "users.json" document
//	  configurations.json   # "configurations.json" document
type JSONFileBackend struct {
	dir string
}

func NewJSONFileBackend(dir string) *JSONFileBackend {
	return &JSONFileBackend{dir: dir}
}

func (b *JSONFileBackend) path(name string) string {
	if filepath.IsAbs(name) || b.dir == "" {
		return name
	}
	return filepath.Join(b.dir, name)
}

func (b *JSONFileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %w", ErrNotExist, err)
		}
		return nil, err
	}
	return data, nil
}

// Save rewrites the file in a single synchronous write.
func (b *JSONFileBackend) Save(_ context.Context, name string, data []byte) error {
	return os.WriteFile(b.path(name), data, 0o644)
}

func (b *JSONFileBackend) Close() error { return nil }
