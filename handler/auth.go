package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stevemurr/simple-config-server/auth"
	"github.com/stevemurr/simple-config-server/dispatch"
	"github.com/stevemurr/simple-config-server/middleware"
	"github.com/stevemurr/simple-config-server/session"
)

// Authenticator checks a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (auth.User, error)
}

// AuthController serves login, logout and the current user. A successful
// login opens a session whose id is the access token clients send back in
// the access token header.
type AuthController struct {
	baseURL       string
	header        string
	sessions      *session.Manager
	authenticator Authenticator
	logger        *slog.Logger
}

func NewAuthController(baseURL, header string, sessions *session.Manager, a Authenticator, logger *slog.Logger) *AuthController {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthController{
		baseURL:       baseURL,
		header:        header,
		sessions:      sessions,
		authenticator: a,
		logger:        logger.With(slog.String("component", "auth_controller")),
	}
}

// Register adds the controller's routes to d.
func (c *AuthController) Register(d *dispatch.Dispatcher) {
	d.Route(c.baseURL+"/login", http.MethodPost, dispatch.HandlerFunc(c.login))
	d.Route(c.baseURL+"/logout", http.MethodPost, dispatch.HandlerFunc(c.logout))
	d.Route(c.baseURL+"/me", http.MethodGet, dispatch.HandlerFunc(c.currentUser))
}

func (c *AuthController) login(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	// a login attempt always invalidates the token it was sent with
	c.clearAccessToken(r)

	body, ok := r.PayloadObject()
	if !ok {
		w.SetStatus(http.StatusBadRequest)
		return w.End("")
	}
	username, _ := body["username"].(string)
	password, _ := body["password"].(string)

	user, err := c.authenticator.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			c.logger.ErrorContext(r.Context(), "authentication error",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
		w.SetStatus(http.StatusForbidden)
		return w.End("")
	}

	s := c.sessions.Create()
	s.Set(auth.SessionKey, user)
	return w.SendJSON(map[string]string{
		"username": user.Name,
		c.header:   s.ID,
	}, http.StatusOK)
}

func (c *AuthController) logout(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	c.clearAccessToken(r)
	w.SetStatus(http.StatusNoContent)
	return w.End("")
}

func (c *AuthController) currentUser(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	if user, ok := middleware.SessionUser(c.sessions, r.Header.Get(c.header)); ok {
		return w.SendJSON(map[string]string{"username": user.Name}, http.StatusOK)
	}
	w.SetStatus(http.StatusForbidden)
	return w.End("")
}

func (c *AuthController) clearAccessToken(r *dispatch.Request) {
	if token := r.Header.Get(c.header); token != "" {
		c.sessions.Remove(token)
	}
}
