// Package store keeps an indexed, in-memory copy of a JSON record collection
// and writes the whole collection back to its backend on every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/stevemurr/simple-config-server/sortutil"
)

// ErrNotExist is returned by a Backend that holds no document under the
// requested name.
var ErrNotExist = errors.New("document does not exist")

// Record is anything the store can index and sort.
type Record interface {
	Get(field string) any
}

// Options configures a Store.
type Options struct {
	// FileName names the persisted document (a file path for the JSON
	// backend, a key for the others).
	FileName string
	// IDField is the record field used as the unique key.
	IDField string
	// ParentField, when set, nests the record array under this property of
	// the persisted JSON object.
	ParentField string
}

// FindOptions selects and orders the records returned by Find.
// Non-positive Start and Limit are ignored.
type FindOptions struct {
	Sort  []sortutil.Key
	Start int
	Limit int
}

// Error describes a failed store operation.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store is a single collection of records of type T.
//
// The collection is loaded from the backend on first use. Reads return
// copies taken under a read lock. Save and Remove hold the write lock while
// they mutate the collection and persist it, so mutations never interleave.
// A failed persist rolls the in-memory mutation back.
type Store[T Record] struct {
	opts    Options
	backend Backend
	logger  *slog.Logger

	once    sync.Once
	loadErr error

	mu      sync.RWMutex
	records []T
	index   map[string]int
}

// New creates a store over backend. The document is not read until the
// first operation (or Init).
func New[T Record](opts Options, backend Backend, logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{
		opts:    opts,
		backend: backend,
		logger: logger.With(
			slog.String("component", "store"),
			slog.String("document", opts.FileName),
		),
	}
}

// NewFile creates a store backed directly by a JSON file.
func NewFile[T Record](fileName, idField, parentField string, logger *slog.Logger) *Store[T] {
	return New[T](Options{
		FileName:    fileName,
		IDField:     idField,
		ParentField: parentField,
	}, NewJSONFileBackend(""), logger)
}

// Init loads the document if it has not been loaded yet. The outcome is
// remembered: a store that failed to load keeps returning the same error.
func (s *Store[T]) Init(ctx context.Context) error {
	s.once.Do(func() {
		s.loadErr = s.load(ctx)
	})
	return s.loadErr
}

func (s *Store[T]) load(ctx context.Context) error {
	data, err := s.backend.Load(ctx, s.opts.FileName)
	if err != nil {
		s.logger.Error("failed to load document", slog.String("error", err.Error()))
		return &Error{Op: "load", Name: s.opts.FileName, Err: err}
	}
	records, err := decodeDocument[T](data, s.opts.ParentField)
	if err != nil {
		s.logger.Error("failed to parse document", slog.String("error", err.Error()))
		return &Error{Op: "load", Name: s.opts.FileName, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.index = make(map[string]int, len(records))
	for i, rec := range records {
		key := IDKey(rec.Get(s.opts.IDField))
		if _, dup := s.index[key]; dup {
			s.logger.Warn("duplicate record id", slog.String("id", key), slog.Int("position", i))
		}
		s.index[key] = i
	}
	s.logger.Debug("document loaded", slog.Int("records", len(records)))
	return nil
}

// FindByID returns the record whose id field equals id.
func (s *Store[T]) FindByID(ctx context.Context, id any) (T, bool, error) {
	var zero T
	if err := s.Init(ctx); err != nil {
		return zero, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[IDKey(id)]
	if !ok {
		return zero, false, nil
	}
	return snapshot(s.records[i]), true, nil
}

// Find returns a copy of the collection, sorted and windowed by opts.
func (s *Store[T]) Find(ctx context.Context, opts FindOptions) ([]T, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	records := make([]T, len(s.records))
	for i, rec := range s.records {
		records[i] = snapshot(rec)
	}
	s.mu.RUnlock()
	sortutil.Sort(records, opts.Sort...)

	start := max(opts.Start, 0)
	limit := len(records)
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	if start > 0 || limit < len(records) {
		start = min(start, len(records))
		end := len(records)
		if limit < end-start {
			end = start + limit
		}
		records = records[start:end]
	}
	return records, nil
}

// Count returns the number of records.
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	if err := s.Init(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Save inserts rec, or replaces the record with the same id in place.
// It reports whether an existing record was updated.
func (s *Store[T]) Save(ctx context.Context, rec T) (bool, error) {
	if err := s.Init(ctx); err != nil {
		return false, err
	}
	key := IDKey(rec.Get(s.opts.IDField))
	rec = snapshot(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[key]; ok {
		prev := s.records[i]
		s.records[i] = rec
		if err := s.persist(ctx, "save"); err != nil {
			s.records[i] = prev
			return false, err
		}
		return true, nil
	}

	s.records = append(s.records, rec)
	last := len(s.records) - 1
	s.index[key] = last
	if err := s.persist(ctx, "save"); err != nil {
		var zero T
		s.records[last] = zero
		s.records = s.records[:last]
		delete(s.index, key)
		return false, err
	}
	return false, nil
}

// Remove deletes the record with the given id. It reports false, without
// touching the backend, when no such record exists.
func (s *Store[T]) Remove(ctx context.Context, id any) (bool, error) {
	if err := s.Init(ctx); err != nil {
		return false, err
	}
	key := IDKey(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return false, nil
	}
	removed := s.records[i]
	s.records = slices.Delete(s.records, i, i+1)
	delete(s.index, key)
	s.reindex(i)

	if err := s.persist(ctx, "remove"); err != nil {
		s.records = slices.Insert(s.records, i, removed)
		s.reindex(i)
		return false, err
	}
	return true, nil
}

// snapshot returns a private copy of rec when the record type can clone
// itself (Doc does), so callers never share state with the store.
func snapshot[T Record](rec T) T {
	if c, ok := any(rec).(interface{ Clone() T }); ok {
		return c.Clone()
	}
	return rec
}

// reindex rewrites the index entries of every record from position from on.
func (s *Store[T]) reindex(from int) {
	for j := from; j < len(s.records); j++ {
		s.index[IDKey(s.records[j].Get(s.opts.IDField))] = j
	}
}

// persist must be called with the write lock held.
func (s *Store[T]) persist(ctx context.Context, op string) error {
	data, err := encodeDocument(s.records, s.opts.ParentField)
	if err == nil {
		err = s.backend.Save(ctx, s.opts.FileName, data)
	}
	if err != nil {
		s.logger.Error("failed to write document", slog.String("op", op), slog.String("error", err.Error()))
		return &Error{Op: op, Name: s.opts.FileName, Err: err}
	}
	return nil
}

// IDKey converts an id value to its index key. Numbers use their shortest
// decimal form, so 1 and "1" address the same record.
func IDKey(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
