// Package tracker maintains the state carried between reconciliation runs.
//
// # Purpose
//
// Each run recomputes every campaign from scratch, so the tracker is the only
// memory of what was seen before:
//   - Counters: last observed participants, success/failed value and success
//     transaction count per campaign, used to derive "what changed this run"
//   - Snapshots: a time-ordered series of aggregate revenue, used to compute
//     revenue rates over fixed windows
//
// # Key Features
//
// Monotonic counters - blockchain history never retracts, so a run reporting
// less than the previous one (pagination bound hit, explorer lag, reorg) yields
// a zero delta and the persisted counter keeps its previous value.
//
// Lazy expiry - snapshots older than RetentionWindow are dropped whenever a
// run prunes the series; nothing is removed proactively.
//
// # Quick Start
//
//	state := domain.NewTrackerState()
//	t := tracker.New(state)
//
//	d := t.Observe("8453", "0xabc...", stats)
//	_ = d.Participants // new participants since previous run
//
//	t.Prune(now)
//	prev, ok := tracker.Closest(t.State().Snapshots, now.Add(-24*time.Hour), tracker.WindowTolerance(24*time.Hour))
//	t.Record(now, totalRevenueUSD)
//
//	next := t.State()
package tracker

import (
	"sort"
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
)

// RetentionWindow bounds how long revenue snapshots are kept.
const RetentionWindow = 8 * 24 * time.Hour

// windowToleranceRatio is the allowed timing slack when matching a window.
const windowToleranceRatio = 0.2

// WindowTolerance returns the matching tolerance for a lookback window.
func WindowTolerance(window time.Duration) time.Duration {
	return time.Duration(float64(window) * windowToleranceRatio)
}

// Deltas are the non-negative changes of a campaign since the previous run.
type Deltas struct {
	Participants int
	SuccessTx    int
	SuccessValue domain.Amount
	FirstSeen    bool
}

// Tracker wraps a working copy of a TrackerState.
type Tracker struct {
	state *domain.TrackerState
}

// New returns a tracker over a deep copy of in, so in is never mutated.
func New(in *domain.TrackerState) *Tracker {
	st := in.Clone()
	st.Normalize()
	return &Tracker{state: st}
}

// State returns the working state.
func (t *Tracker) State() *domain.TrackerState {
	return t.state
}

// Observe compares stats with the persisted counters, stores the merged
// counters and returns the clamped deltas.
func (t *Tracker) Observe(
	chain domain.ChainID,
	address string,
	stats domain.OnChainStats,
) Deltas {
	prev, ok := t.state.Counters(chain, address)
	d, merged := Merge(prev, stats)
	d.FirstSeen = !ok
	t.state.SetCounters(chain, address, merged)
	return d
}

// Merge derives the deltas between prev and current and the counters to persist.
// Persisted counters never decrease.
func Merge(prev domain.CampaignCounters, current domain.OnChainStats) (Deltas, domain.CampaignCounters) {
	d := Deltas{
		Participants: Delta(current.Participants, prev.Participants),
		SuccessTx:    Delta(current.SuccessTx, prev.SuccessTx),
		SuccessValue: DeltaAmount(current.SuccessValue, prev.SuccessValue),
	}
	merged := prev.Max(domain.CampaignCounters{
		Participants: current.Participants,
		SuccessValue: current.SuccessValue,
		FailedValue:  current.FailedValue,
		SuccessTx:    current.SuccessTx,
	})
	return d, merged
}

// Delta returns current-previous clamped to zero.
func Delta(current, previous int) int {
	return max(0, current-previous)
}

// DeltaAmount returns current-previous clamped to zero.
func DeltaAmount(current, previous domain.Amount) domain.Amount {
	d := current.Sub(previous)
	if d.Sign() < 0 {
		return domain.Amount{}
	}
	return d
}

// Prune drops snapshots older than RetentionWindow relative to now.
func (t *Tracker) Prune(now time.Time) {
	t.state.Snapshots = Prune(t.state.Snapshots, now, RetentionWindow)
}

// Record appends the aggregate revenue observed at now.
func (t *Tracker) Record(now time.Time, totalRevenueUSD float64) {
	t.state.Snapshots = Append(t.state.Snapshots, domain.RevenueSnapshot{
		Timestamp:       now.UTC(),
		TotalRevenueUSD: totalRevenueUSD,
	})
}

// Prune returns the snapshots not older than retention relative to now.
func Prune(
	snaps []domain.RevenueSnapshot,
	now time.Time,
	retention time.Duration,
) []domain.RevenueSnapshot {
	cutoff := now.Add(-retention)
	kept := make([]domain.RevenueSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// Append inserts snap keeping the series ordered with unique timestamps.
// A snapshot at an existing timestamp replaces the stored value.
func Append(snaps []domain.RevenueSnapshot, snap domain.RevenueSnapshot) []domain.RevenueSnapshot {
	i := sort.Search(len(snaps), func(i int) bool {
		return !snaps[i].Timestamp.Before(snap.Timestamp)
	})
	if i < len(snaps) && snaps[i].Timestamp.Equal(snap.Timestamp) {
		snaps[i] = snap
		return snaps
	}
	snaps = append(snaps, domain.RevenueSnapshot{})
	copy(snaps[i+1:], snaps[i:])
	snaps[i] = snap
	return snaps
}

// Closest returns the snapshot whose timestamp is nearest to target, provided
// the distance does not exceed tolerance.
func Closest(
	snaps []domain.RevenueSnapshot,
	target time.Time,
	tolerance time.Duration,
) (domain.RevenueSnapshot, bool) {
	var (
		best     domain.RevenueSnapshot
		bestDist time.Duration = -1
	)
	for _, s := range snaps {
		dist := s.Timestamp.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if dist > tolerance {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = s, dist
		}
	}
	return best, bestDist >= 0
}
