// Package reconcile joins on-chain and platform stats into per-campaign and
// aggregate metrics.
//
// Reconcile is a pure function of its inputs: the previous TrackerState goes
// in, the run result and the next TrackerState come out. Loading and saving
// state is the caller's concern.
package reconcile

import (
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/core/tracker"
	"github.com/vietddude/reconciler/internal/indexing/correlator"
	"github.com/vietddude/reconciler/internal/infra/source"
)

const (
	// minRateAgeDays is the campaign age below which no daily rate is derived.
	minRateAgeDays = 0.1

	lowApprovalThreshold = 0.5

	// DefaultFunnelTolerance is how many more platform users than on-chain
	// participants are tolerated before flagging a funnel leak.
	DefaultFunnelTolerance = 2

	// DefaultNativeDecimals applies to chains without configured decimals.
	DefaultNativeDecimals = 18
)

// CampaignInput is everything fetched for one campaign during a run.
type CampaignInput struct {
	Campaign domain.OnChainCampaign

	// External is nil when the campaign has no platform counterpart.
	External *domain.ExternalCampaign

	OnChain     source.Result[domain.OnChainStats]
	Submissions source.Result[domain.SubmissionStats]

	// Correlation is the outcome of the authorization event lookup.
	Correlation source.Result[string]
}

// Params are the run-wide inputs of a reconciliation.
type Params struct {
	RunID           string
	Now             time.Time
	PriceUSD        float64
	PriceFallback   bool
	NativeDecimals  map[domain.ChainID]int
	FunnelTolerance int
}

func (p Params) decimals(chain domain.ChainID) int {
	if d, ok := p.NativeDecimals[chain]; ok {
		return d
	}
	return DefaultNativeDecimals
}

// Reconcile computes the run result and the next tracker state. stateIn is
// not modified. No revenue snapshot is recorded when any on-chain fetch was
// unavailable.
func Reconcile(stateIn *domain.TrackerState, inputs []CampaignInput, p Params) (*domain.RunResult, *domain.TrackerState) {
	now := p.Now.UTC()
	tr := tracker.New(stateIn)

	res := &domain.RunResult{
		RunID:       p.RunID,
		GeneratedAt: now,
		PriceUSD:    p.PriceUSD,
		PriceStale:  p.PriceFallback,
		Campaigns:   []domain.CampaignMetrics{},
	}

	var runDeltaUSD float64
	onChainComplete := true
	for _, in := range inputs {
		res.Degraded = append(res.Degraded, degradations(in)...)
		if !in.OnChain.Available() {
			onChainComplete = false
		}

		m, ok := campaignMetrics(tr, in, p, now)
		if !ok {
			continue
		}
		runDeltaUSD += m.NewRevenueUSD
		res.Campaigns = append(res.Campaigns, m)
	}

	res.Stats = Aggregate(res.Campaigns)

	tr.Prune(now)
	res.Stats.ARR = EstimateARR(ARRInputs{
		Now:                  now,
		TotalRevenueUSD:      res.Stats.RevenueUSD,
		EarliestFirstSuccess: res.Stats.EarliestFirstSuccess,
		RunDeltaUSD:          runDeltaUSD,
		Snapshots:            tr.State().Snapshots,
	})
	// A total missing some campaigns would understate the series and
	// inflate later window estimates, so it is not recorded.
	if onChainComplete {
		tr.Record(now, res.Stats.RevenueUSD)
	}

	return res, tr.State()
}

func degradations(in CampaignInput) []domain.Degradation {
	var out []domain.Degradation
	chain, addr := in.Campaign.ChainID, in.Campaign.Address
	if d, ok := in.Correlation.Degradation(chain, addr); ok {
		out = append(out, d)
	}
	if d, ok := in.OnChain.Degradation(chain, addr); ok {
		out = append(out, d)
	}
	if d, ok := in.Submissions.Degradation(chain, addr); ok {
		out = append(out, d)
	}
	return out
}

// campaignMetrics returns false for campaigns with no activity in either
// source; those are left out of the report and of the tracker.
func campaignMetrics(tr *tracker.Tracker, in CampaignInput, p Params, now time.Time) (domain.CampaignMetrics, bool) {
	onChain := in.OnChain.OrEmpty()
	subs := in.Submissions.OrEmpty()

	if onChain.Empty() && subs.Users == 0 && subs.Submissions == 0 {
		return domain.CampaignMetrics{}, false
	}

	c := in.Campaign
	m := domain.CampaignMetrics{
		ChainID:       c.ChainID,
		Address:       c.Address,
		Title:         correlator.Title(in.External, c.Address),
		ContentSource: c.ContentSource,
		Correlated:    in.External != nil,

		Participants:  onChain.Participants,
		PlatformUsers: subs.Users,
		Submissions:   subs.Submissions,
		Approved:      subs.Approved,
		Rejected:      subs.Rejected,
		AvgScore:      subs.AvgScore,

		SuccessTx:      onChain.SuccessTx,
		FailedTx:       onChain.FailedTx,
		SuccessValue:   onChain.SuccessValue,
		FailedValue:    onChain.FailedValue,
		FirstSuccessAt: onChain.FirstSuccessAt,

		Degraded: !in.OnChain.Available() || !in.Submissions.Available() || !in.Correlation.Available(),
	}
	if ext := in.External; ext != nil {
		m.CreatorHandle = ext.CreatorHandle
		m.RewardAmount = ext.RewardAmount
		m.RewardSymbol = ext.RewardSymbol
		m.StartDate = ext.StartDate
		m.EndDate = ext.EndDate
	}

	decimals := p.decimals(c.ChainID)
	m.RevenueNative = onChain.SuccessValue.Units(decimals)
	m.RevenueUSD = m.RevenueNative * p.PriceUSD
	m.FailedFeesNative = onChain.FailedValue.Units(decimals)
	m.FailedFeesUSD = m.FailedFeesNative * p.PriceUSD

	tolerance := p.FunnelTolerance
	if tolerance <= 0 {
		tolerance = DefaultFunnelTolerance
	}
	m.WalletGap, m.GhostWallets, m.FunnelLeak = GhostWallets(m.Participants, m.PlatformUsers, tolerance)

	m.ApprovalRate, m.HasApproval = ApprovalRate(m.Approved, m.SuccessTx)
	m.LowApproval = m.HasApproval && m.ApprovalRate < lowApprovalThreshold

	if !m.FirstSuccessAt.IsZero() {
		m.AgeDays = max(0, now.Sub(m.FirstSuccessAt).Hours()/24)
		if m.AgeDays >= minRateAgeDays {
			m.DailyRevenueUSD = m.RevenueUSD / m.AgeDays
		}
	}
	if in.External != nil {
		m.ProjectedRevenueUSD = m.DailyRevenueUSD * in.External.ScheduledDays()
		m.PeriodRevenueUSD = m.DailyRevenueUSD * in.External.PeriodLengthDays
	}

	// Unavailable on-chain data must not overwrite the persisted counters.
	if in.OnChain.Available() {
		d := tr.Observe(c.ChainID, c.Address, onChain)
		m.NewParticipants = d.Participants
		m.NewSuccessTx = d.SuccessTx
		m.NewRevenue = d.SuccessValue
		m.NewRevenueUSD = d.SuccessValue.Units(decimals) * p.PriceUSD
	}

	return m, true
}

// GhostWallets returns the signed gap between on-chain participants and
// platform users, the gap floored at zero, and whether platform users exceed
// participants by more than tolerance.
func GhostWallets(participants, users, tolerance int) (gap, ghosts int, funnelLeak bool) {
	gap = participants - users
	return gap, max(0, gap), -gap > tolerance
}

// ApprovalRate returns approved/successTx. It is undefined without payments.
func ApprovalRate(approved, successTx int) (float64, bool) {
	if successTx <= 0 {
		return 0, false
	}
	return float64(approved) / float64(successTx), true
}

// Aggregate totals the reported campaigns. ARR is left to EstimateARR.
func Aggregate(campaigns []domain.CampaignMetrics) domain.AggregateStats {
	var s domain.AggregateStats
	for _, m := range campaigns {
		s.Campaigns++
		if m.Correlated {
			s.Correlated++
		}
		s.Participants += m.Participants
		s.PlatformUsers += m.PlatformUsers
		s.Submissions += m.Submissions
		s.Approved += m.Approved
		s.Rejected += m.Rejected
		s.SuccessTx += m.SuccessTx
		s.FailedTx += m.FailedTx
		s.GhostWallets += m.GhostWallets
		if m.FunnelLeak {
			s.FunnelLeaks++
		}
		if m.LowApproval {
			s.LowApproval++
		}

		s.RevenueUSD += m.RevenueUSD
		s.FailedFeesUSD += m.FailedFeesUSD
		s.NewParticipants += m.NewParticipants
		s.NewRevenueUSD += m.NewRevenueUSD
		if m.NewParticipants > 0 || m.NewSuccessTx > 0 || m.NewRevenue.Sign() > 0 {
			s.HadActivity = true
		}

		if !m.FirstSuccessAt.IsZero() && (s.EarliestFirstSuccess.IsZero() || m.FirstSuccessAt.Before(s.EarliestFirstSuccess)) {
			s.EarliestFirstSuccess = m.FirstSuccessAt
		}
	}
	s.ApprovalRate, _ = ApprovalRate(s.Approved, s.SuccessTx)
	return s
}
