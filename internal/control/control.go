package control

import (
	"context"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/indexing/filter"
	"github.com/vietddude/reconciler/internal/infra/chain"
	"github.com/vietddude/reconciler/internal/infra/price"
	"github.com/vietddude/reconciler/internal/infra/source"
)

// ChainSources bundles the per-chain inputs of a run.
type ChainSources struct {
	Explorer       chain.Explorer
	Factories      []string
	Filter         filter.Filter
	NativeDecimals int
}

// PlatformSource lists platform campaigns and their submissions
type PlatformSource interface {
	// Campaigns returns the full campaign listing
	Campaigns(ctx context.Context) ([]domain.ExternalCampaign, error)

	// Submissions returns the submissions keyed by a content source
	Submissions(ctx context.Context, contentSource string) ([]domain.Submission, error)
}

// PriceSource resolves the native token spot price
type PriceSource interface {
	// SpotPrice never fails; it reports when a fallback was used
	SpotPrice(ctx context.Context) price.Quote
}

// StatsSource exposes the request statistics of an upstream client
type StatsSource interface {
	Stats() source.Stats
}
