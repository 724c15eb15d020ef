package reconcile

import (
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/core/tracker"
)

const (
	daysPerYear = 365

	// minLaunchAgeDays is the minimum age for the since-launch estimate.
	minLaunchAgeDays = 0.5

	// runsPerDay treats the interval between runs as one hour.
	runsPerDay = 24

	window24h = 24 * time.Hour
	window7d  = 7 * 24 * time.Hour
)

// ARRInputs are the aggregate figures the ARR cascade works from.
type ARRInputs struct {
	Now                  time.Time
	TotalRevenueUSD      float64
	EarliestFirstSuccess time.Time
	RunDeltaUSD          float64

	// Snapshots are the pruned series of previous runs.
	Snapshots []domain.RevenueSnapshot
}

// EstimateARR computes every available ARR candidate and selects the first
// one in order: since launch, 24h window, 7d window, hourly fallback.
func EstimateARR(in ARRInputs) domain.ARREstimate {
	est := domain.ARREstimate{Method: domain.ARRNone}

	if !in.EarliestFirstSuccess.IsZero() {
		age := in.Now.Sub(in.EarliestFirstSuccess).Hours() / 24
		if age >= minLaunchAgeDays {
			v := in.TotalRevenueUSD / age * daysPerYear
			est.SinceLaunch = &v
		}
	}

	if snap, ok := tracker.Closest(in.Snapshots, in.Now.Add(-window24h), tracker.WindowTolerance(window24h)); ok {
		v := max(0, in.TotalRevenueUSD-snap.TotalRevenueUSD) * daysPerYear
		est.Window24h = &v
	}

	if snap, ok := tracker.Closest(in.Snapshots, in.Now.Add(-window7d), tracker.WindowTolerance(window7d)); ok {
		v := max(0, in.TotalRevenueUSD-snap.TotalRevenueUSD) / 7 * daysPerYear
		est.Window7d = &v
	}

	if in.RunDeltaUSD > 0 {
		v := in.RunDeltaUSD * runsPerDay * daysPerYear
		est.Hourly = &v
	}

	for _, c := range []struct {
		method domain.ARRMethod
		value  *float64
	}{
		{domain.ARRSinceLaunch, est.SinceLaunch},
		{domain.ARRWindow24h, est.Window24h},
		{domain.ARRWindow7d, est.Window7d},
		{domain.ARRHourly, est.Hourly},
	} {
		if c.value != nil {
			est.Method = c.method
			est.ValueUSD = *c.value
			break
		}
	}
	return est
}
