// Package listopt parses the sort and pagination query parameters of list
// requests.
//
// Recognized parameters:
//
//	sort   comma separated field names, "-" prefix for descending, "+" (or
//	       no prefix) for ascending
//	limit  maximum number of records (non-negative integer)
//	start  offset of the first record (non-negative integer)
package listopt

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/stevemurr/simple-config-server/sortutil"
	"github.com/stevemurr/simple-config-server/store"
)

var (
	ErrInvalidQuery = errors.New("invalid query string")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrInvalidStart = errors.New("invalid start")
	ErrInvalidSort  = errors.New("invalid sort")
)

// ParseRequest parses the options from the request URL.
func ParseRequest(r *http.Request) (store.FindOptions, error) {
	if r == nil || r.URL == nil {
		return store.FindOptions{}, nil
	}
	return parseQuery(r.URL.RawQuery)
}

// Parse parses the options from a URL, a path with a query string, or a
// bare query string. Parameters that are absent are left unset.
func Parse(rawURL string) (store.FindOptions, error) {
	if pos := strings.IndexByte(rawURL, '?'); pos >= 0 {
		rawURL = rawURL[pos+1:]
	}
	return parseQuery(rawURL)
}

func parseQuery(query string) (store.FindOptions, error) {
	var opts store.FindOptions
	if query == "" {
		return opts, nil
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	if v := params.Get("limit"); v != "" {
		if opts.Limit, err = nonNegative(v); err != nil {
			return store.FindOptions{}, fmt.Errorf("%w: %q", ErrInvalidLimit, v)
		}
	}
	if v := params.Get("start"); v != "" {
		if opts.Start, err = nonNegative(v); err != nil {
			return store.FindOptions{}, fmt.Errorf("%w: %q", ErrInvalidStart, v)
		}
	}
	if v := params.Get("sort"); v != "" {
		if opts.Sort, err = parseSort(v); err != nil {
			return store.FindOptions{}, err
		}
	}
	return opts, nil
}

func nonNegative(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative")
	}
	return n, nil
}

func parseSort(s string) ([]sortutil.Key, error) {
	fields := strings.Split(s, ",")
	keys := make([]sortutil.Key, 0, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field)
		order := 1
		switch {
		case strings.HasPrefix(name, "-"):
			order = -1
			name = name[1:]
		case strings.HasPrefix(name, "+"):
			name = name[1:]
		}
		if name == "" {
			return nil, fmt.Errorf("%w: empty field in %q", ErrInvalidSort, s)
		}
		keys = append(keys, sortutil.Key{Name: name, Order: order})
	}
	return keys, nil
}
