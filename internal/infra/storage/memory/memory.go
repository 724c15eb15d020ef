package memory

import (
	"context"
	"sync"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/storage"
)

// StateRepo keeps the tracker state in process memory.
type StateRepo struct {
	state *domain.TrackerState
	saves int
	mu    sync.RWMutex
}

func NewStateRepo() *StateRepo {
	return &StateRepo{}
}

func (r *StateRepo) Load(ctx context.Context) (*domain.TrackerState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil, storage.ErrStateNotFound
	}
	return r.state.Clone(), nil
}

func (r *StateRepo) Save(ctx context.Context, state *domain.TrackerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state.Clone()
	r.saves++
	return nil
}

// Saves returns how many times Save was called.
func (r *StateRepo) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func (r *StateRepo) Close() error {
	return nil
}
