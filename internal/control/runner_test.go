package control

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/indexing/filter"
	"github.com/vietddude/reconciler/internal/infra/price"
	"github.com/vietddude/reconciler/internal/infra/storage/memory"
)

const (
	factory   = "0x00000000000000000000000000000000000000fa"
	campaignA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	campaignB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	campaignC = "0xcccccccccccccccccccccccccccccccccccccccc"
	sourceA   = "0x5555555555555555555555555555555555555555"
	sourceB   = "0x6666666666666666666666666666666666666666"
)

// =============================================================================
// Mocks
// =============================================================================

type mockExplorer struct {
	chainID domain.ChainID
	logs    map[string][]domain.EventLog
	txs     map[string][]domain.Transaction
	failTx  map[string]bool
	failLog map[string]bool

	mu    sync.Mutex
	calls int
}

func (m *mockExplorer) Logs(ctx context.Context, address string) ([]domain.EventLog, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.failLog[address] {
		return nil, errors.New("explorer 502")
	}
	return m.logs[address], nil
}

func (m *mockExplorer) Transactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.failTx[address] {
		return nil, errors.New("explorer timeout")
	}
	return m.txs[address], nil
}

func (m *mockExplorer) GetChainID() domain.ChainID {
	return m.chainID
}

type mockPlatform struct {
	campaigns []domain.ExternalCampaign
	subs      map[string][]domain.Submission
	listErr   error
}

func (m *mockPlatform) Campaigns(ctx context.Context) ([]domain.ExternalCampaign, error) {
	return m.campaigns, m.listErr
}

func (m *mockPlatform) Submissions(ctx context.Context, contentSource string) ([]domain.Submission, error) {
	return m.subs[contentSource], nil
}

type fixedPrice struct {
	quote price.Quote
}

func (f fixedPrice) SpotPrice(ctx context.Context) price.Quote {
	return f.quote
}

// recordingHandler keeps every log record for inspection.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

// warnings returns the campaign attribute of every Warn record with msg.
func (h *recordingHandler) warnings(msg string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range h.records {
		if r.Level != slog.LevelWarn || r.Message != msg {
			continue
		}
		campaign := ""
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "campaign" || a.Key == "factory" {
				campaign = a.Value.String()
			}
			return true
		})
		out = append(out, campaign)
	}
	return out
}

type failingSave struct {
	*memory.StateRepo
}

func (f failingSave) Save(ctx context.Context, state *domain.TrackerState) error {
	return errors.New("disk full")
}

// =============================================================================
// Fixtures
// =============================================================================

func topic(addr string) string {
	return "0x" + strings.Repeat("0", 24) + strings.TrimPrefix(addr, "0x")
}

func fixture(t *testing.T) (ChainSources, *mockExplorer, *mockPlatform) {
	t.Helper()
	f := filter.NewTopicFilter()
	created := f.AddSignature("CampaignCreated(address,address)", false)

	wei := func(s string) domain.Amount {
		a, err := domain.ParseAmount(s)
		require.NoError(t, err)
		return a
	}
	first := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	exp := &mockExplorer{
		chainID: domain.ChainIDBase,
		logs: map[string][]domain.EventLog{
			factory: {
				{Topics: []string{created.Topic.Hex(), topic(campaignA)}, BlockNumber: 1},
				{Topics: []string{created.Topic.Hex(), topic(campaignB)}, BlockNumber: 2},
				{Topics: []string{created.Topic.Hex(), topic(campaignC)}, BlockNumber: 3},
			},
			campaignA: {
				{Method: "AuthorizedSourceAdded(address sourceContract)", Params: map[string]string{"sourceContract": sourceA}},
			},
			campaignB: {
				{Method: "AuthorizedSourceAdded(address sourceContract)", Params: map[string]string{"sourceContract": sourceB}},
			},
		},
		txs: map[string][]domain.Transaction{
			campaignA: {
				{To: campaignA, From: "0x01", Value: wei("1e18"), Status: domain.TxStatusSuccess, Timestamp: first},
				{To: campaignA, From: "0x02", Value: wei("1e18"), Status: domain.TxStatusSuccess, Timestamp: first.Add(time.Hour)},
			},
		},
		failTx: map[string]bool{campaignB: true},
	}

	plat := &mockPlatform{
		campaigns: []domain.ExternalCampaign{
			{Title: "Campaign A", ContentSource: sourceA, DurationPeriods: 2, PeriodLengthDays: 7},
		},
		subs: map[string][]domain.Submission{
			sourceA: {{UserID: "u1"}, {UserID: "u2", Hidden: true}},
			sourceB: {{UserID: "u9"}},
		},
	}

	return ChainSources{
		Explorer:       exp,
		Factories:      []string{factory},
		Filter:         f,
		NativeDecimals: 18,
	}, exp, plat
}

// =============================================================================
// Tests
// =============================================================================

func TestRunner_Run(t *testing.T) {
	ch, _, plat := fixture(t)
	repo := memory.NewStateRepo()
	now := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)

	r := NewRunner(Config{
		Chains:      []ChainSources{ch},
		Platform:    plat,
		Price:       fixedPrice{price.Quote{USD: 2000}},
		State:       repo,
		Concurrency: 2,
	}, nil)
	r.now = func() time.Time { return now }

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	// C has no activity anywhere and is dropped.
	require.Len(t, res.Campaigns, 2)
	a, b := res.Campaigns[0], res.Campaigns[1]

	assert.Equal(t, campaignA, a.Address)
	assert.Equal(t, "Campaign A", a.Title)
	assert.Equal(t, sourceA, a.ContentSource)
	assert.Equal(t, 2, a.Participants)
	assert.Equal(t, 2, a.PlatformUsers)
	assert.Equal(t, 1, a.Approved)
	assert.InDelta(t, 4000.0, a.RevenueUSD, 1e-6)
	assert.False(t, a.Degraded)

	assert.Equal(t, campaignB, b.Address)
	assert.False(t, b.Correlated, "source B is missing from the listing")
	assert.True(t, b.Degraded)
	assert.Equal(t, 1, b.PlatformUsers)

	require.Len(t, res.Degraded, 1)
	assert.Equal(t, campaignB, res.Degraded[0].Campaign)
	assert.Equal(t, "explorer:8453", res.Degraded[0].Source)

	assert.Equal(t, domain.ARRSinceLaunch, res.Stats.ARR.Method)
	assert.Equal(t, 1, repo.Saves())

	saved, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved.Snapshots, "B's transactions were unavailable, so the total is partial")
	_, tracked := saved.Counters(domain.ChainIDBase, campaignB)
	assert.False(t, tracked, "unavailable transactions must not create counters")
}

func TestRunner_SecondRunReportsDeltas(t *testing.T) {
	ch, exp, plat := fixture(t)
	exp.failTx = nil
	repo := memory.NewStateRepo()
	now := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)

	r := NewRunner(Config{
		Chains:   []ChainSources{ch},
		Platform: plat,
		Price:    fixedPrice{price.Quote{USD: 1000}},
		State:    repo,
	}, nil)
	r.now = func() time.Time { return now }

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	exp.txs[campaignA] = append(exp.txs[campaignA], domain.Transaction{
		To: campaignA, From: "0x03", Value: domain.NewAmount(5e17), Status: domain.TxStatusSuccess, Timestamp: now,
	})
	r.now = func() time.Time { return now.Add(time.Hour) }

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	a := res.Campaigns[0]
	assert.Equal(t, 1, a.NewParticipants)
	assert.Equal(t, "500000000000000000", a.NewRevenue.String())
	assert.InDelta(t, 500.0, res.Stats.NewRevenueUSD, 1e-6)
	assert.True(t, res.Stats.HadActivity)

	saved, _ := repo.Load(context.Background())
	assert.Len(t, saved.Snapshots, 2)
}

func TestRunner_DegradedSources(t *testing.T) {
	ch, _, plat := fixture(t)
	plat.listErr = errors.New("platform 503")
	ch.Factories = append(ch.Factories, "0x00000000000000000000000000000000000000fb")

	r := NewRunner(Config{
		Chains:   []ChainSources{ch},
		Platform: plat,
		Price:    fixedPrice{price.Quote{USD: 3000, Fallback: true}},
		State:    memory.NewStateRepo(),
		TopN:     2,
	}, nil)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.PriceStale)
	assert.Equal(t, "platform", res.Degraded[0].Source)
	for _, c := range res.Campaigns {
		assert.False(t, c.Correlated, "no listing means no join")
		assert.NotEqual(t, campaignA, c.Address, "top-N keeps the two newest campaigns")
	}
}

func TestRunner_StateSaveError(t *testing.T) {
	ch, _, plat := fixture(t)

	r := NewRunner(Config{
		Chains:   []ChainSources{ch},
		Platform: plat,
		Price:    fixedPrice{price.Quote{USD: 1}},
		State:    failingSave{memory.NewStateRepo()},
	}, nil)

	res, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrStateSave)
	require.NotNil(t, res, "result is still produced")
	assert.NotEmpty(t, res.Campaigns)
}

func TestRunner_LogsEachDegradationOnce(t *testing.T) {
	ch, exp, plat := fixture(t)
	const broken = "0x00000000000000000000000000000000000000fb"
	ch.Factories = append(ch.Factories, broken)
	exp.failLog = map[string]bool{broken: true}

	h := &recordingHandler{}
	r := NewRunner(Config{
		Chains:   []ChainSources{ch},
		Platform: plat,
		Price:    fixedPrice{price.Quote{USD: 1}},
		State:    memory.NewStateRepo(),
	}, slog.New(h))

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	var factoryEntries int
	for _, d := range res.Degraded {
		if d.Campaign == broken {
			factoryEntries++
		}
	}
	assert.Equal(t, 1, factoryEntries, "factory failure is still reported in the result")

	assert.Equal(t, []string{broken}, h.warnings("Factory scan failed, skipping"))
	assert.Equal(t, []string{campaignB}, h.warnings("Sub-fetch degraded to empty"))
}
