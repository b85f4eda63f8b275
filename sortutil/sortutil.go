// Package sortutil orders records by one or more field keys.
//
// Values are compared with sort semantics: nil sorts first, numbers compare
// numerically, times chronologically, and everything else by its string form
// using English collation.
package sortutil

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Getter exposes a record's field values by name.
type Getter interface {
	Get(field string) any
}

// Key is a single sort key. Order -1 sorts descending; any other value
// sorts ascending.
type Key struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// Asc returns an ascending key for name.
func Asc(name string) Key { return Key{Name: name, Order: 1} }

// Desc returns a descending key for name.
func Desc(name string) Key { return Key{Name: name, Order: -1} }

func (k Key) direction() int {
	if k.Order == -1 {
		return -1
	}
	return 1
}

// collate.Collator keeps internal buffers and is not safe for concurrent use.
var collators = sync.Pool{
	New: func() any { return collate.New(language.English) },
}

// Compare returns a negative number if a < b, positive if a > b and 0 if
// they are equal.
func Compare(a, b any) int {
	if a == nil {
		if b == nil {
			return 0
		}
		return -1
	}
	if b == nil {
		return 1
	}

	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}

	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}

	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(fmt.Sprint(a), fmt.Sprint(b))
}

// CompareBy compares two records key by key and returns the first non-zero
// result.
func CompareBy[T Getter](a, b T, keys ...Key) int {
	for _, k := range keys {
		if r := Compare(a.Get(k.Name), b.Get(k.Name)); r != 0 {
			return r * k.direction()
		}
	}
	return 0
}

// Sort orders items in place. The sort is stable, so records with equal
// keys keep their input order.
func Sort[T Getter](items []T, keys ...Key) {
	if len(keys) == 0 || len(items) < 2 {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		return CompareBy(a, b, keys...)
	})
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
