package chain

import (
	"context"

	"github.com/vietddude/reconciler/internal/core/domain"
)

// Explorer defines the read-only chain data the engine consumes.
// Implementations list full (pagination-bounded) history per address.
type Explorer interface {
	// Logs returns the event logs emitted by address
	Logs(ctx context.Context, address string) ([]domain.EventLog, error)

	// Transactions returns the transactions sent to address
	Transactions(ctx context.Context, address string) ([]domain.Transaction, error)

	// GetChainID returns the chain identifier
	GetChainID() domain.ChainID
}
