package profile

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a store has no profile for the requested person.
var ErrNotFound = errors.New("student profile not found")

// Store loads student profiles from an external profile source.
type Store interface {
	Load(ctx context.Context, personID string) (*Student, error)
}
