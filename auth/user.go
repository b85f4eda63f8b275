// Package auth authenticates users against the user document.
package auth

import (
	"context"
	"log/slog"

	"github.com/stevemurr/simple-config-server/store"
)

// User is a stored account.
//
// JSON format of the user document:
//
//	{
//	  "users": [
//	    { "name": "admin", "password": "secret" }
//	  ]
//	}
type User struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

func (u User) Get(field string) any {
	switch field {
	case "name":
		return u.Name
	case "password":
		return u.Password
	}
	return nil
}

// UserRepository looks users up by name.
type UserRepository struct {
	store *store.Store[User]
}

// NewUserRepository creates a repository over the named user document.
func NewUserRepository(fileName string, backend store.Backend, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		store: store.New[User](store.Options{
			FileName:    fileName,
			IDField:     "name",
			ParentField: "users",
		}, backend, logger),
	}
}

// Init loads the user document.
func (r *UserRepository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

// FindByName returns the user called name.
func (r *UserRepository) FindByName(ctx context.Context, name string) (User, bool, error) {
	return r.store.FindByID(ctx, name)
}

// Save creates or replaces a user.
func (r *UserRepository) Save(ctx context.Context, u User) (bool, error) {
	return r.store.Save(ctx, u)
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// SessionKey is the session value holding the logged in User.
const SessionKey = "user"

type userKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the authenticated user stored in ctx.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}
