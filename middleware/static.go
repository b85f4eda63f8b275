package middleware

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/stevemurr/simple-config-server/dispatch"
)

// SendFile responds with the HTML file at path, read on every request.
func SendFile(path string) dispatch.Handler {
	return dispatch.HandlerFunc(func(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
		content, err := os.ReadFile(path)
		if err != nil {
			w.SetStatus(http.StatusInternalServerError)
			return w.End("")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.SetStatus(http.StatusOK)
		_, err = w.Write(content)
		return err
	})
}

// NotFound answers 404. Register it last.
func NotFound(logger *slog.Logger) dispatch.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return dispatch.HandlerFunc(func(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
		logger.InfoContext(r.Context(), "not found",
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
		)
		w.SetStatus(http.StatusNotFound)
		return w.End("Not Found")
	})
}
