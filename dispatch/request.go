package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Request is the per-dispatch view of an incoming request.
type Request struct {
	*http.Request

	// Path is the request path with the query string removed, lowercased.
	Path string

	// Matches holds the captures of the pattern that selected the current
	// handler. It is reset for every route tried.
	Matches []string

	// Payload is the decoded JSON body, when a body parser ran. The raw
	// body stays available as Request.Body.
	Payload any
}

// NewRequest wraps r and normalizes its path.
func NewRequest(r *http.Request) *Request {
	return &Request{
		Request: r,
		Path:    normalizePath(r),
	}
}

func normalizePath(r *http.Request) string {
	path := r.URL.Path
	if path == "" {
		path = r.RequestURI
		if pos := strings.IndexByte(path, '?'); pos >= 0 {
			path = path[:pos]
		}
	}
	return strings.ToLower(path)
}

// Match returns capture i of the current route, or "" when absent.
func (r *Request) Match(i int) string {
	if i < 0 || i >= len(r.Matches) {
		return ""
	}
	return r.Matches[i]
}

// PayloadObject returns the payload when it is a JSON object.
func (r *Request) PayloadObject() (map[string]any, bool) {
	m, ok := r.Payload.(map[string]any)
	return m, ok
}

// SetContext replaces the request context for the rest of the chain.
func (r *Request) SetContext(ctx context.Context) {
	r.Request = r.Request.WithContext(ctx)
}

// Response wraps the ResponseWriter so handlers can set a status before
// writing and so the dispatcher can tell whether a response was produced.
type Response struct {
	middleware.WrapResponseWriter
	status int
}

// NewResponse wraps w.
func NewResponse(w http.ResponseWriter, protoMajor int) *Response {
	return &Response{WrapResponseWriter: middleware.NewWrapResponseWriter(w, protoMajor)}
}

// SetStatus sets the status code sent with the first write.
func (w *Response) SetStatus(code int) {
	w.status = code
}

// Status returns the status written, or the pending status if nothing has
// been written yet.
func (w *Response) Status() int {
	if code := w.WrapResponseWriter.Status(); code != 0 {
		return code
	}
	return w.status
}

// Written reports whether the header has been sent.
func (w *Response) Written() bool {
	return w.WrapResponseWriter.Status() != 0
}

func (w *Response) writeHeader() {
	if w.Written() {
		return
	}
	code := w.status
	if code == 0 {
		code = http.StatusOK
	}
	w.WrapResponseWriter.WriteHeader(code)
}

// WriteHeader sends the header immediately.
func (w *Response) WriteHeader(code int) {
	w.status = code
	w.writeHeader()
}

func (w *Response) Write(p []byte) (int, error) {
	w.writeHeader()
	return w.WrapResponseWriter.Write(p)
}

// End sends the header and an optional body.
func (w *Response) End(body string) error {
	w.writeHeader()
	if body == "" {
		return nil
	}
	_, err := w.WrapResponseWriter.Write([]byte(body))
	return err
}

// SendJSON writes v as a JSON body with the given status (200 when 0).
// Strings and byte slices are written unchanged.
func (w *Response) SendJSON(v any, status int) error {
	var body []byte
	switch x := v.(type) {
	case string:
		body = []byte(x)
	case []byte:
		body = x
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		body = b
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.status = status
	w.writeHeader()
	_, err := w.WrapResponseWriter.Write(body)
	return err
}
