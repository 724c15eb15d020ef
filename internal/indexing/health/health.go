// Package health grades a run result by how much of it was degraded.
package health

import "github.com/vietddude/reconciler/internal/core/domain"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// criticalRatio is the share of degraded campaigns that makes a chain critical.
const criticalRatio = 0.5

// ChainHealth contains health metrics for a specific blockchain chain.
type ChainHealth struct {
	ChainID           domain.ChainID `json:"chain_id"`
	Status            SystemStatus   `json:"status"`
	Campaigns         int            `json:"campaigns"`
	DegradedCampaigns int            `json:"degraded_campaigns"`
	DegradedFetches   int            `json:"degraded_fetches"`
	FactoryFailures   int            `json:"factory_failures"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus  SystemStatus                   `json:"system_status"`
	PriceFallback bool                           `json:"price_fallback"`
	Platform      SystemStatus                   `json:"platform"`
	Chains        map[domain.ChainID]ChainHealth `json:"chains"`
}

// Evaluate builds the health report of a run.
func Evaluate(res *domain.RunResult) HealthReport {
	report := HealthReport{
		SystemStatus:  StatusHealthy,
		PriceFallback: res.PriceStale,
		Platform:      StatusHealthy,
		Chains:        make(map[domain.ChainID]ChainHealth),
	}

	campaignChains := make(map[string]domain.ChainID, len(res.Campaigns))
	for _, c := range res.Campaigns {
		h := report.Chains[c.ChainID]
		h.ChainID = c.ChainID
		h.Campaigns++
		if c.Degraded {
			h.DegradedCampaigns++
		}
		report.Chains[c.ChainID] = h
		campaignChains[domain.CampaignKey(c.ChainID, c.Address)] = c.ChainID
	}

	for _, d := range res.Degraded {
		if d.ChainID == "" {
			report.Platform = StatusDegraded
			continue
		}
		h := report.Chains[d.ChainID]
		h.ChainID = d.ChainID
		h.DegradedFetches++
		if _, ok := campaignChains[domain.CampaignKey(d.ChainID, d.Campaign)]; !ok && d.Source != "platform" {
			// Not a reported campaign: a factory scan or a dropped campaign.
			h.FactoryFailures++
		}
		report.Chains[d.ChainID] = h
	}

	for id, h := range report.Chains {
		h.Status = chainStatus(h)
		report.Chains[id] = h
		report.SystemStatus = worst(report.SystemStatus, h.Status)
	}
	report.SystemStatus = worst(report.SystemStatus, report.Platform)
	if report.PriceFallback {
		report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
	}
	return report
}

func chainStatus(h ChainHealth) SystemStatus {
	switch {
	case h.Campaigns == 0 && h.FactoryFailures > 0:
		return StatusCritical
	case h.Campaigns > 0 && float64(h.DegradedCampaigns)/float64(h.Campaigns) >= criticalRatio:
		return StatusCritical
	case h.DegradedFetches > 0 || h.DegradedCampaigns > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func rank(s SystemStatus) int {
	switch s {
	case StatusCritical:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

func worst(a, b SystemStatus) SystemStatus {
	if rank(b) > rank(a) {
		return b
	}
	return a
}
