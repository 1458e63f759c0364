// Package session keeps per-user wizard state between updates. Entries expire
// after a TTL so abandoned wizards do not pile up.
package session

import (
	"context"

	"shopbot/internal/flow"
)

// Store is keyed by telegram user id. Get returns nil with no error when the
// user has no live session.
type Store interface {
	Get(ctx context.Context, userID int64) (*flow.State, error)
	Put(ctx context.Context, userID int64, state *flow.State) error
	Delete(ctx context.Context, userID int64) error
}
