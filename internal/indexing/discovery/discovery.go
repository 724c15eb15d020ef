// Package discovery finds campaign contracts created by factory contracts.
//
// For every configured factory the factory's event logs are scanned for the
// recognized creation events. The campaign address is the last 20 bytes of
// topic[1]. Events flagged as carrying a content source hold the secondary
// address in the third 32-byte word of the data payload. Zero addresses are
// discarded.
package discovery

import (
	"context"
	"log/slog"
	"sort"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/chain"
	"github.com/vietddude/reconciler/internal/infra/chain/evm"
	"github.com/vietddude/reconciler/internal/indexing/filter"
)

// contentSourceWord is the data word holding the content-source address.
const contentSourceWord = 2

// Result of one discovery pass over a chain.
type Result struct {
	Campaigns []domain.OnChainCampaign
	Degraded  []domain.Degradation
}

// Discoverer discovers campaigns on one chain.
type Discoverer struct {
	explorer chain.Explorer
	filter   filter.Filter
	logger   *slog.Logger
}

// New creates a discoverer.
func New(explorer chain.Explorer, f filter.Filter, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		explorer: explorer,
		filter:   f,
		logger:   logger,
	}
}

// Discover scans every factory. A factory whose logs cannot be fetched is
// logged, recorded as degraded and skipped.
func (d *Discoverer) Discover(ctx context.Context, factories []string) Result {
	chainID := d.explorer.GetChainID()
	set := NewSet()
	var res Result

	for _, factory := range factories {
		logs, err := d.explorer.Logs(ctx, factory)
		if err != nil {
			d.logger.Warn("Factory scan failed, skipping",
				"chain", chainID,
				"factory", factory,
				"error", err,
			)
			res.Degraded = append(res.Degraded, domain.Degradation{
				Source:   "explorer:" + string(chainID),
				ChainID:  chainID,
				Campaign: factory,
				Error:    err.Error(),
			})
			continue
		}

		found := Extract(chainID, factory, logs, d.filter)
		for _, c := range found {
			set.Add(c)
		}
		d.logger.Debug("Factory scanned",
			"chain", chainID,
			"factory", factory,
			"logs", len(logs),
			"campaigns", len(found),
		)
	}

	d.logger.Debug("Discovery finished",
		"chain", chainID,
		"factories", len(factories),
		"campaigns", set.Len(),
	)
	res.Campaigns = set.List()
	return res
}

// Extract decodes the campaigns created in logs of one factory.
func Extract(chainID domain.ChainID, factory string, logs []domain.EventLog, f filter.Filter) []domain.OnChainCampaign {
	if norm, ok := evm.NormalizeAddress(factory); ok {
		factory = norm
	}

	var out []domain.OnChainCampaign
	for _, l := range logs {
		ev, ok := f.Match(l)
		if !ok {
			continue
		}
		addr, ok := evm.TopicAddress(l.Topic(1))
		if !ok {
			continue
		}

		c := domain.OnChainCampaign{
			ChainID:         chainID,
			Address:         addr,
			Factory:         factory,
			DiscoveredBlock: l.BlockNumber,
		}
		if ev.ContentSource {
			if src, ok := evm.DataWordAddress(l.Data, contentSourceWord); ok {
				c.ContentSource = src
			}
		}
		out = append(out, c)
	}
	return out
}

// Set de-duplicates campaigns by address, preserving first-sighting order.
type Set struct {
	index map[string]int
	list  []domain.OnChainCampaign
}

func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Add inserts c. A campaign already present is kept as first seen, except
// that a missing content source is filled in.
func (s *Set) Add(c domain.OnChainCampaign) {
	key := c.Key()
	if i, ok := s.index[key]; ok {
		if s.list[i].ContentSource == "" && c.ContentSource != "" {
			s.list[i].ContentSource = c.ContentSource
		}
		return
	}
	s.index[key] = len(s.list)
	s.list = append(s.list, c)
}

func (s *Set) Len() int {
	return len(s.list)
}

// List returns a copy of the campaigns in first-sighting order.
func (s *Set) List() []domain.OnChainCampaign {
	out := make([]domain.OnChainCampaign, len(s.list))
	copy(out, s.list)
	return out
}

// TopN returns the n most recently discovered campaigns, newest first.
// n <= 0 returns all campaigns in their original order.
func TopN(campaigns []domain.OnChainCampaign, n int) []domain.OnChainCampaign {
	if n <= 0 || n >= len(campaigns) {
		return campaigns
	}
	sorted := make([]domain.OnChainCampaign, len(campaigns))
	copy(sorted, campaigns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DiscoveredBlock > sorted[j].DiscoveredBlock
	})
	return sorted[:n]
}
