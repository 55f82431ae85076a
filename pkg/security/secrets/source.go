package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Source that does not hold the named secret.
var ErrNotFound = errors.New("secret not found")

// Source retrieves secrets from one backend.
type Source interface {
	// Lookup returns the value of the named secret. A missing secret is
	// reported as an error wrapping ErrNotFound.
	Lookup(ctx context.Context, name string) (string, error)

	// Name identifies the source in logs ("env", "file").
	Name() string
}
