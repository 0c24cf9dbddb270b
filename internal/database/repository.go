package database

import (
	"context"
	"errors"
)

var (
	// ErrIdentityExists is returned when a name is already enrolled.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrIdentityNotFound is returned when no identity has the given name.
	ErrIdentityNotFound = errors.New("identity not found")
)

// IdentityReader provides read-only access to enrolled identities
type IdentityReader interface {
	// Get retrieves an identity by name (compared normalized)
	Get(ctx context.Context, name string) (*StoredIdentity, error)
	// List returns all identities ordered by name
	List(ctx context.Context) ([]StoredIdentity, error)
	// FindNearest returns the closest identity within maxDistance (Euclidean),
	// or nil when none is close enough
	FindNearest(ctx context.Context, descriptor []float32, maxDistance float64) (*IdentityMatch, error)
	// Count returns the number of enrolled identities
	Count(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to enrolled identities
type IdentityWriter interface {
	// Create enrolls a new identity; a normalized name collision is ErrIdentityExists
	Create(ctx context.Context, name string, descriptor []float32) (*StoredIdentity, error)
	// Delete removes an identity by name; an unknown name is ErrIdentityNotFound
	Delete(ctx context.Context, name string) error
}

// IdentityStore is the full storage surface the server needs.
type IdentityStore interface {
	IdentityReader
	IdentityWriter
}
