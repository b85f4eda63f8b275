package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserFinder looks users up by name.
type UserFinder interface {
	FindByName(ctx context.Context, name string) (User, bool, error)
}

// Authenticator checks credentials against a UserFinder.
type Authenticator struct {
	users  UserFinder
	logger *slog.Logger
}

func NewAuthenticator(users UserFinder, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		users:  users,
		logger: logger.With(slog.String("component", "authenticator")),
	}
}

// Authenticate returns the user when password matches. Stored passwords may
// be bcrypt hashes or plain text.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, ok, err := a.users.FindByName(ctx, username)
	if err != nil {
		return User{}, err
	}
	if !ok || !passwordMatches(user.Password, password) {
		a.logger.InfoContext(ctx, "authentication failed", slog.String("username", username))
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// An empty stored password never matches.
func passwordMatches(stored, given string) bool {
	if stored == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
