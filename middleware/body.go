package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stevemurr/simple-config-server/dispatch"
)

// DefaultBodyLimit is the body size accepted when no limit is given.
const DefaultBodyLimit = 1000000

// RegisterBodyParser adds BodyParser to d for POST and PUT requests.
func RegisterBodyParser(d *dispatch.Dispatcher, limit int64) {
	h := BodyParser(limit)
	d.Add(nil, http.MethodPost, h)
	d.Add(nil, http.MethodPut, h)
}

// BodyParser reads the request body and decodes it as JSON into
// Request.Payload. A blank body leaves Payload nil. Bodies larger than limit
// get 413 and malformed JSON gets 400.
func BodyParser(limit int64) dispatch.Handler {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}

	return dispatch.HandlerFunc(func(w *dispatch.Response, r *dispatch.Request, next dispatch.Next) error {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.Header().Set("Connection", "close")
				w.SetStatus(http.StatusRequestEntityTooLarge)
				return w.End("")
			}
			w.SetStatus(http.StatusInternalServerError)
			return w.End("")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if len(bytes.TrimSpace(body)) > 0 {
			var payload any
			if err := json.Unmarshal(body, &payload); err != nil {
				w.SetStatus(http.StatusBadRequest)
				return w.End("Invalid JSON")
			}
			r.Payload = payload
		}
		next()
		return nil
	})
}
