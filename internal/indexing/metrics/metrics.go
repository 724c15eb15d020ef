package metrics

import (
	"fmt"

	"github.com/vietddude/reconciler/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks completed batch runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"outcome"},
	)

	// SourceRequests tracks upstream requests per source
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_source_requests_total",
			Help: "Total number of upstream requests",
		},
		[]string{"source"},
	)

	// SourceFailures tracks failed upstream requests per source
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_source_failures_total",
			Help: "Total number of failed upstream requests",
		},
		[]string{"source"},
	)

	// CampaignsReported tracks campaigns in the last run per chain
	CampaignsReported = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reconciler_campaigns_reported",
			Help: "Campaigns reported by the last run",
		},
		[]string{"chain"},
	)

	// RevenueUSD tracks total successful revenue in USD
	RevenueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconciler_revenue_usd",
			Help: "Total successful revenue in USD at the last run",
		},
	)

	// GhostWallets tracks paying wallets without a platform user
	GhostWallets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconciler_ghost_wallets",
			Help: "On-chain participants without a platform user",
		},
	)

	// DegradedFetches tracks sub-fetches treated as empty
	DegradedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_degraded_fetches_total",
			Help: "Total number of sub-fetches treated as empty",
		},
		[]string{"source"},
	)

	// ARRUSD tracks ARR estimates by method
	ARRUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reconciler_arr_usd",
			Help: "Annualized run rate estimate in USD",
		},
		[]string{"method"},
	)
)

// ObserveRun records the figures of a finished run.
func ObserveRun(res *domain.RunResult) {
	perChain := make(map[domain.ChainID]int)
	for _, c := range res.Campaigns {
		perChain[c.ChainID]++
	}
	for chain, n := range perChain {
		CampaignsReported.WithLabelValues(string(chain)).Set(float64(n))
	}
	for _, d := range res.Degraded {
		DegradedFetches.WithLabelValues(d.Source).Inc()
	}

	RevenueUSD.Set(res.Stats.RevenueUSD)
	GhostWallets.Set(float64(res.Stats.GhostWallets))

	arr := res.Stats.ARR
	for method, v := range map[domain.ARRMethod]*float64{
		domain.ARRSinceLaunch: arr.SinceLaunch,
		domain.ARRWindow24h:   arr.Window24h,
		domain.ARRWindow7d:    arr.Window7d,
		domain.ARRHourly:      arr.Hourly,
	} {
		if v != nil {
			ARRUSD.WithLabelValues(string(method)).Set(*v)
		}
	}
	ARRUSD.WithLabelValues("selected").Set(arr.ValueUSD)
}

// WriteTextfile flushes the default registry for the node-exporter textfile
// collector. The engine exits after each run so nothing scrapes it directly.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
