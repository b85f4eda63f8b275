package store

import (
	"context"
	"errors"
	"fmt"
)

// Seed copies the document name from src into dst when dst does not hold
// it yet. It reports whether a copy was made. A document missing from both
// backends is an error wrapping ErrNotExist.
func Seed(ctx context.Context, dst, src Backend, name string) (bool, error) {
	_, err := dst.Load(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotExist) {
		return false, err
	}

	data, err := src.Load(ctx, name)
	if err != nil {
		return false, fmt.Errorf("seed %s: %w", name, err)
	}
	if err := dst.Save(ctx, name, data); err != nil {
		return false, fmt.Errorf("seed %s: %w", name, err)
	}
	return true, nil
}
