package storage

import (
	"context"
	"errors"

	"github.com/vietddude/reconciler/internal/core/domain"
)

var (
	// ErrStateNotFound is returned when no state was persisted yet
	ErrStateNotFound = errors.New("state not found")
)

// StateRepository persists the TrackerState between runs.
// The state is read once at run start and written once at run end.
type StateRepository interface {
	// Load returns the persisted state or ErrStateNotFound
	Load(ctx context.Context) (*domain.TrackerState, error)

	// Save replaces the persisted state
	Save(ctx context.Context, state *domain.TrackerState) error

	// Close releases the underlying connection
	Close() error
}
