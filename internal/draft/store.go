// Package draft persists in-progress wizard forms so a page reload can
// restore them. Drafts are keyed by a client-chosen key and removed once the
// contract is submitted.
package draft

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// ErrNotFound is returned by Load when no draft exists for the key.
var ErrNotFound = errors.New("draft not found")

// Draft is one saved form.
type Draft struct {
	Key     string
	Values  url.Values
	SavedAt time.Time
}

// Store is the interface for saving and restoring drafts.
type Store interface {
	// Save creates or replaces the draft under d.Key.
	Save(ctx context.Context, d Draft) error

	// Load returns the draft for key, or ErrNotFound.
	Load(ctx context.Context, key string) (Draft, error)

	// Delete removes the draft for key. Deleting a missing draft is not an
	// error.
	Delete(ctx context.Context, key string) error
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
