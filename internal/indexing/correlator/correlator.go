// Package correlator links on-chain campaigns to platform campaigns.
//
// A campaign contract names its platform counterpart by emitting an
// authorization event whose decoded method contains AuthorizedSourceAdded;
// the sourceContract parameter is the correlation key. The key then joins
// the platform listing by content-source address.
package correlator

import (
	"context"
	"strings"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/chain"
	"github.com/vietddude/reconciler/internal/infra/chain/evm"
	"github.com/vietddude/reconciler/internal/infra/source"
)

const (
	authorizationMethod = "AuthorizedSourceAdded"
	sourceParam         = "sourceContract"
)

// FindContentSource returns the correlation key carried by the first
// authorization event in logs.
func FindContentSource(logs []domain.EventLog) (string, bool) {
	for _, l := range logs {
		if !strings.Contains(l.Method, authorizationMethod) {
			continue
		}
		if addr, ok := evm.NormalizeAddress(l.Params[sourceParam]); ok && !evm.IsZeroAddress(addr) {
			return addr, true
		}
	}
	return "", false
}

// Correlator resolves correlation keys from a chain explorer.
type Correlator struct {
	explorer chain.Explorer
}

func New(explorer chain.Explorer) *Correlator {
	return &Correlator{explorer: explorer}
}

// Correlate returns the content source of the campaign at address. An
// available empty value means the campaign has no platform correlation.
func (c *Correlator) Correlate(ctx context.Context, address string) source.Result[string] {
	name := "explorer:" + string(c.explorer.GetChainID())
	logs, err := c.explorer.Logs(ctx, address)
	if err != nil {
		return source.Unavailable[string](name, err)
	}
	src, _ := FindContentSource(logs)
	return source.Ok(src)
}

// Index is the platform listing keyed by lower-case content-source address.
type Index map[string]domain.ExternalCampaign

// NewIndex builds an Index. The first campaign listed for an address wins.
func NewIndex(campaigns []domain.ExternalCampaign) Index {
	idx := make(Index, len(campaigns))
	for _, c := range campaigns {
		key := strings.ToLower(strings.TrimSpace(c.ContentSource))
		if key == "" {
			continue
		}
		if _, ok := idx[key]; !ok {
			idx[key] = c
		}
	}
	return idx
}

// Lookup joins a content-source address to its platform campaign.
func (idx Index) Lookup(contentSource string) (domain.ExternalCampaign, bool) {
	if contentSource == "" {
		return domain.ExternalCampaign{}, false
	}
	c, ok := idx[strings.ToLower(contentSource)]
	return c, ok
}

// Title returns the display title, falling back to a truncated address.
func Title(ext *domain.ExternalCampaign, address string) string {
	if ext != nil && strings.TrimSpace(ext.Title) != "" {
		return ext.Title
	}
	return evm.ShortAddress(address)
}
