// Package dispatch routes HTTP requests through an ordered chain of handlers.
//
// Routes are tried strictly in registration order. The first route whose
// method and pattern match runs; it may hand the request on to the next
// matching route by calling next. A handler that returns an error or panics
// stops the chain and the dispatcher's error handler produces the response.
// When no route matches, dispatch stops without writing anything, so a
// catch-all registered last is expected to produce the not-found response.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Next resumes dispatch at the route after the current one.
type Next func()

// Handler handles a request routed by a Dispatcher.
type Handler interface {
	Serve(w *Response, r *Request, next Next) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(w *Response, r *Request, next Next) error

func (f HandlerFunc) Serve(w *Response, r *Request, next Next) error {
	return f(w, r, next)
}

// Wrap adapts a terminal net/http handler. It never calls next.
func Wrap(h http.Handler) Handler {
	return HandlerFunc(func(w *Response, r *Request, _ Next) error {
		h.ServeHTTP(w, r.Request)
		return nil
	})
}

// ErrorHandler produces the response for a failed handler.
type ErrorHandler func(err error, w *Response, r *Request)

// PanicError is the error passed to the ErrorHandler when a handler panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

type route struct {
	pattern Pattern
	method  string
	handler Handler
	index   int
}

func (rt *route) match(r *Request) bool {
	r.Matches = nil
	if rt.method != "" && rt.method != r.Method {
		return false
	}
	if rt.pattern == nil {
		return true
	}
	captures, ok := rt.pattern.Match(r.Path)
	if !ok {
		return false
	}
	r.Matches = captures
	return true
}

// Dispatcher is an http.Handler over an ordered route table. Routes must be
// added before the dispatcher starts serving.
type Dispatcher struct {
	routes  []*route
	logger  *slog.Logger
	onError ErrorHandler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used by the default error handler.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Dispatcher) { d.onError = h }
}

// New creates an empty Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(slog.String("component", "dispatcher"))
	if d.onError == nil {
		d.onError = d.defaultError
	}
	return d
}

// Add appends a route. A nil pattern matches every path and an empty method
// matches every method.
func (d *Dispatcher) Add(pattern Pattern, method string, h Handler) {
	d.routes = append(d.routes, &route{
		pattern: pattern,
		method:  method,
		handler: h,
		index:   len(d.routes),
	})
}

// Use appends a route matching every request.
func (d *Dispatcher) Use(h Handler) {
	d.Add(nil, "", h)
}

// Route appends a route for one literal path.
func (d *Dispatcher) Route(path, method string, h Handler) {
	d.Add(Exact(path), method, h)
}

// Len returns the number of routes.
func (d *Dispatcher) Len() int {
	return len(d.routes)
}

// ServeHTTP dispatches the request from the first route.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.Dispatch(NewResponse(w, r.ProtoMajor), NewRequest(r))
}

// Dispatch runs an already wrapped request through the route table.
func (d *Dispatcher) Dispatch(w *Response, r *Request) {
	c := &cursor{d: d, w: w, r: r}
	c.run(0)
}

// cursor walks the route table for one request.
type cursor struct {
	d *Dispatcher
	w *Response
	r *Request
}

func (c *cursor) run(from int) {
	rt := c.find(from)
	if rt == nil {
		return
	}
	next := func() { c.run(rt.index + 1) }
	if err := c.invoke(rt, next); err != nil {
		c.d.onError(err, c.w, c.r)
	}
}

func (c *cursor) find(from int) *route {
	for i := from; i < len(c.d.routes); i++ {
		if rt := c.d.routes[i]; rt.match(c.r) {
			return rt
		}
	}
	return nil
}

func (c *cursor) invoke(rt *route, next Next) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return rt.handler.Serve(c.w, c.r, next)
}

func (d *Dispatcher) defaultError(err error, w *Response, r *Request) {
	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	var perr *PanicError
	if errors.As(err, &perr) {
		attrs = append(attrs, slog.String("stack", string(perr.Stack)))
	}
	d.logger.ErrorContext(r.Context(), "error handling route", attrs...)

	if w.Written() {
		return
	}
	w.SetStatus(http.StatusInternalServerError)
	w.End("Error")
}
