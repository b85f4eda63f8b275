package middleware

import (
	"net/http"

	"github.com/stevemurr/simple-config-server/auth"
	"github.com/stevemurr/simple-config-server/dispatch"
	"github.com/stevemurr/simple-config-server/session"
)

// AccessChecker lets a request through only when the access token in header
// names a session with a logged in user. The user is attached to the request
// context; anything else gets 403.
func AccessChecker(sessions *session.Manager, header string) dispatch.Handler {
	return dispatch.HandlerFunc(func(w *dispatch.Response, r *dispatch.Request, next dispatch.Next) error {
		if user, ok := SessionUser(sessions, r.Header.Get(header)); ok {
			r.SetContext(auth.WithUser(r.Context(), user))
			next()
			return nil
		}
		w.SetStatus(http.StatusForbidden)
		return w.End("")
	})
}

// SessionUser returns the user logged in under token.
func SessionUser(sessions *session.Manager, token string) (auth.User, bool) {
	if token == "" {
		return auth.User{}, false
	}
	s, ok := sessions.Get(token)
	if !ok {
		return auth.User{}, false
	}
	user, ok := s.Get(auth.SessionKey).(auth.User)
	return user, ok
}
