// Package configuration manages connection configuration records: a name,
// a hostname, a port and the user who owns the record, plus any other fields
// a client sends.
package configuration

import (
	"context"
	"log/slog"

	"github.com/stevemurr/simple-config-server/store"
)

// Repository stores configuration records keyed by name.
type Repository struct {
	store *store.Store[store.Doc]
}

// NewRepository creates a repository over the named configuration document,
// stored as {"configurations": [...]}.
func NewRepository(fileName string, backend store.Backend, logger *slog.Logger) *Repository {
	return &Repository{
		store: store.New[store.Doc](store.Options{
			FileName:    fileName,
			IDField:     "name",
			ParentField: "configurations",
		}, backend, logger),
	}
}

func (r *Repository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *Repository) Find(ctx context.Context, opts store.FindOptions) ([]store.Doc, error) {
	return r.store.Find(ctx, opts)
}

func (r *Repository) FindByID(ctx context.Context, name string) (store.Doc, bool, error) {
	return r.store.FindByID(ctx, name)
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

func (r *Repository) Save(ctx context.Context, rec store.Doc) (bool, error) {
	return r.store.Save(ctx, rec)
}

func (r *Repository) Remove(ctx context.Context, name string) (bool, error) {
	return r.store.Remove(ctx, name)
}
