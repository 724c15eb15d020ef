package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/indexing/aggregator"
	"github.com/vietddude/reconciler/internal/indexing/correlator"
	"github.com/vietddude/reconciler/internal/indexing/discovery"
	"github.com/vietddude/reconciler/internal/indexing/health"
	"github.com/vietddude/reconciler/internal/indexing/metrics"
	"github.com/vietddude/reconciler/internal/indexing/reconcile"
	"github.com/vietddude/reconciler/internal/infra/source"
	"github.com/vietddude/reconciler/internal/infra/storage"
)

// ErrStateSave is returned when the run completed but its state could not
// be persisted. The run result is still returned alongside it.
var ErrStateSave = errors.New("state save failed")

// Config holds the run settings.
type Config struct {
	Chains          []ChainSources
	Platform        PlatformSource
	Price           PriceSource
	State           storage.StateRepository
	Concurrency     int // <= 0 = unbounded
	TopN            int
	FunnelTolerance int

	// Upstreams are logged with their request statistics after the run.
	Upstreams map[string]StatsSource
}

// Runner executes one batch pass: load state, discover, correlate,
// aggregate, reconcile and save state.
type Runner struct {
	cfg Config
	log *slog.Logger
	now func() time.Time
}

// NewRunner creates a runner.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = -1
	}
	return &Runner{
		cfg: cfg,
		log: logger,
		now: time.Now,
	}
}

// Run performs one pass. Every sub-fetch failure degrades the result; only
// a failed state save is returned as an error, together with the result.
func (r *Runner) Run(ctx context.Context) (*domain.RunResult, error) {
	runID := uuid.NewString()
	start := r.now()
	log := r.log.With("run_id", runID)
	log.Info("Run started", "chains", len(r.cfg.Chains))

	state := r.loadState(ctx, log)
	quote := r.cfg.Price.SpotPrice(ctx)

	var degraded []domain.Degradation

	listing, err := r.cfg.Platform.Campaigns(ctx)
	if err != nil {
		log.Warn("Platform listing unavailable", "source", "platform", "error", err)
		degraded = append(degraded, domain.Degradation{Source: "platform", Error: err.Error()})
	}
	index := correlator.NewIndex(listing)

	inputs, discDegraded := r.collect(ctx, log, index)
	degraded = append(degraded, discDegraded...)

	decimals := make(map[domain.ChainID]int, len(r.cfg.Chains))
	for _, ch := range r.cfg.Chains {
		decimals[ch.Explorer.GetChainID()] = ch.NativeDecimals
	}

	res, next := reconcile.Reconcile(state, inputs, reconcile.Params{
		RunID:           runID,
		Now:             r.now(),
		PriceUSD:        quote.USD,
		PriceFallback:   quote.Fallback,
		NativeDecimals:  decimals,
		FunnelTolerance: r.cfg.FunnelTolerance,
	})
	// Run-level degradations were logged where they occurred.
	for _, d := range res.Degraded {
		log.Warn("Sub-fetch degraded to empty",
			"chain", d.ChainID,
			"campaign", d.Campaign,
			"source", d.Source,
			"error", d.Error,
		)
	}
	res.Degraded = append(degraded, res.Degraded...)

	metrics.ObserveRun(res)
	report := health.Evaluate(res)
	r.logUpstreams(log)

	if err := r.cfg.State.Save(ctx, next); err != nil {
		metrics.RunsTotal.WithLabelValues("state_error").Inc()
		log.Error("Failed to save state", "error", err)
		return res, fmt.Errorf("%w: %w", ErrStateSave, err)
	}

	metrics.RunsTotal.WithLabelValues(string(report.SystemStatus)).Inc()
	log.Info("Run finished",
		"status", report.SystemStatus,
		"campaigns", res.Stats.Campaigns,
		"revenue_usd", res.Stats.RevenueUSD,
		"arr_method", res.Stats.ARR.Method,
		"arr_usd", res.Stats.ARR.ValueUSD,
		"degraded", len(res.Degraded),
		"duration", time.Since(start),
	)
	return res, nil
}

// loadState treats a missing or unreadable state as first-run state.
func (r *Runner) loadState(ctx context.Context, log *slog.Logger) *domain.TrackerState {
	state, err := r.cfg.State.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrStateNotFound):
		log.Info("No persisted state, starting fresh")
		return domain.NewTrackerState()
	case err != nil:
		log.Warn("Failed to load state, starting fresh", "error", err)
		return domain.NewTrackerState()
	}
	log.Debug("State loaded", "campaigns", state.CampaignCount(), "snapshots", len(state.Snapshots))
	return state
}

// collect discovers campaigns on every chain and fetches their data with
// bounded concurrency. Tasks complete in any order; inputs keep discovery
// order.
func (r *Runner) collect(
	ctx context.Context,
	log *slog.Logger,
	index correlator.Index,
) ([]reconcile.CampaignInput, []domain.Degradation) {
	var (
		degraded []domain.Degradation
		slots    []*reconcile.CampaignInput
		byKey    = make(map[string]*reconcile.CampaignInput)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, ch := range r.cfg.Chains {
		disc := discovery.New(ch.Explorer, ch.Filter, log).Discover(ctx, ch.Factories)
		degraded = append(degraded, disc.Degraded...)

		campaigns := discovery.TopN(disc.Campaigns, r.cfg.TopN)
		log.Info("Campaigns discovered",
			"chain", ch.Explorer.GetChainID(),
			"discovered", len(disc.Campaigns),
			"selected", len(campaigns),
		)

		corr := correlator.New(ch.Explorer)
		agg := aggregator.New(ch.Explorer, r.cfg.Platform)

		for _, c := range campaigns {
			if _, ok := byKey[c.Key()]; ok {
				continue
			}
			in := &reconcile.CampaignInput{Campaign: c}
			byKey[c.Key()] = in
			slots = append(slots, in)

			g.Go(func() error {
				fetchCampaign(gctx, in, corr, agg, index)
				return nil
			})
		}
	}
	_ = g.Wait()

	inputs := make([]reconcile.CampaignInput, 0, len(slots))
	for _, in := range slots {
		inputs = append(inputs, *in)
	}
	return inputs, degraded
}

// fetchCampaign fills in. It only writes to in, so tasks share nothing.
func fetchCampaign(
	ctx context.Context,
	in *reconcile.CampaignInput,
	corr *correlator.Correlator,
	agg *aggregator.Aggregator,
	index correlator.Index,
) {
	addr := in.Campaign.Address

	if in.Campaign.ContentSource != "" {
		in.Correlation = source.Ok(in.Campaign.ContentSource)
	} else {
		in.Correlation = corr.Correlate(ctx, addr)
		in.Campaign.ContentSource = in.Correlation.OrEmpty()
	}

	if ext, ok := index.Lookup(in.Campaign.ContentSource); ok {
		in.External = &ext
	}

	in.OnChain = agg.OnChain(ctx, addr)
	if in.Campaign.ContentSource != "" {
		in.Submissions = agg.Submissions(ctx, in.Campaign.ContentSource)
	} else {
		in.Submissions = source.Ok(domain.SubmissionStats{})
	}
}

func (r *Runner) logUpstreams(log *slog.Logger) {
	for name, up := range r.cfg.Upstreams {
		st := up.Stats()
		var avg time.Duration
		if st.Requests > 0 {
			avg = st.TotalLatency / time.Duration(st.Requests)
		}
		log.Debug("Upstream stats",
			"source", name,
			"requests", st.Requests,
			"failures", st.Failures,
			"avg_latency", avg,
		)
	}
}
