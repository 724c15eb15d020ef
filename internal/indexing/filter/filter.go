// Package filter recognizes campaign creation events among factory logs.
package filter

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/reconciler/internal/core/domain"
)

// CreationEvent is one recognized "campaign created" event variant.
type CreationEvent struct {
	Topic common.Hash

	// ContentSource marks the variant whose third data word holds the
	// content-source address.
	ContentSource bool
}

// Filter defines the interface for creation-event matching
type Filter interface {
	// Match returns the creation event a log is an instance of
	Match(log domain.EventLog) (CreationEvent, bool)

	// Size returns the number of recognized events
	Size() int
}
