package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
)

const (
	campaignA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	campaignB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	alice     = "0x00000000000000000000000000000000000a11ce"
	bob       = "0x0000000000000000000000000000000000000b0b"
)

func tx(to, from string, value int64, status domain.TxStatus, ts time.Time) domain.Transaction {
	return domain.Transaction{To: to, From: from, Value: domain.NewAmount(value), Status: status, Timestamp: ts}
}

func TestAggregateTransactions_Classification(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		tx(campaignA, alice, 100, domain.TxStatusSuccess, t0),
		tx(campaignA, bob, 50, domain.TxStatusFailed, t0.Add(-time.Hour)),
		tx(campaignB, bob, 10, domain.TxStatusSuccess, t0.Add(-2*time.Hour)),
		tx(campaignA, bob, 0, domain.TxStatusSuccess, t0.Add(-3*time.Hour)),
	}

	stats := AggregateTransactions(campaignA, txs)

	if stats.Participants != 1 {
		t.Errorf("participants = %d, want 1", stats.Participants)
	}
	if stats.SuccessTx != 1 || stats.FailedTx != 1 {
		t.Errorf("successTx = %d, failedTx = %d, want 1 and 1", stats.SuccessTx, stats.FailedTx)
	}
	if stats.SuccessValue.String() != "100" || stats.FailedValue.String() != "50" {
		t.Errorf("successValue = %s, failedValue = %s", stats.SuccessValue, stats.FailedValue)
	}
	if !stats.FirstSuccessAt.Equal(t0) {
		t.Errorf("firstSuccessAt = %v, want %v", stats.FirstSuccessAt, t0)
	}
}

func TestAggregateTransactions_ParticipantsAndFirstSuccess(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	upper := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	txs := []domain.Transaction{
		tx(upper, alice, 5, "pending", t0.Add(2*time.Hour)),
		tx(campaignA, "0x00000000000000000000000000000000000A11CE", 5, domain.TxStatusSuccess, t0),
		tx(campaignA, bob, 7, domain.TxStatusReverted, t0.Add(-time.Hour)),
		tx(campaignA, bob, 1, domain.TxStatusSuccess, t0.Add(time.Hour)),
	}

	stats := AggregateTransactions(campaignA, txs)

	if stats.Participants != 2 {
		t.Errorf("participants = %d, want 2", stats.Participants)
	}
	if stats.SuccessTx != 3 || stats.SuccessValue.String() != "11" {
		t.Errorf("successTx = %d, successValue = %s", stats.SuccessTx, stats.SuccessValue)
	}
	if !stats.FirstSuccessAt.Equal(t0) {
		t.Errorf("firstSuccessAt = %v, want %v (reverted tx must not count)", stats.FirstSuccessAt, t0)
	}
}

func TestAggregateTransactions_Empty(t *testing.T) {
	stats := AggregateTransactions(campaignA, nil)
	if !stats.Empty() || stats.SuccessValue.Sign() != 0 || !stats.FirstSuccessAt.IsZero() {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func score(units int64) domain.Amount {
	a, _ := domain.ParseAmount(fmt.Sprintf("%de18", units))
	return a
}

func TestAggregateSubmissions(t *testing.T) {
	subs := []domain.Submission{
		{UserID: "u1", ScoreRaw: score(2)},
		{UserID: "u2", Hidden: true},
		{UserID: "u1", ScoreRaw: score(3)},
		{UserID: "u3", Disqualified: true, Invalidated: true},
	}

	stats := AggregateSubmissions(subs)

	if stats.Submissions != 4 || stats.Users != 3 {
		t.Errorf("submissions = %d, users = %d", stats.Submissions, stats.Users)
	}
	if stats.Rejected != 2 || stats.Approved != 2 {
		t.Errorf("rejected = %d, approved = %d", stats.Rejected, stats.Approved)
	}
	if stats.AvgScore != 2.5 || stats.Scored != 2 {
		t.Errorf("avgScore = %v over %d, want 2.5 over 2", stats.AvgScore, stats.Scored)
	}
}

func TestAggregateSubmissions_NoScores(t *testing.T) {
	stats := AggregateSubmissions([]domain.Submission{{UserID: "u1"}})
	if stats.AvgScore != 0 || stats.Scored != 0 || stats.Submissions != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

type mockExplorer struct {
	txs []domain.Transaction
	err error
}

func (m *mockExplorer) Logs(ctx context.Context, address string) ([]domain.EventLog, error) {
	return nil, nil
}

func (m *mockExplorer) Transactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	return m.txs, m.err
}

func (m *mockExplorer) GetChainID() domain.ChainID {
	return domain.ChainIDPolygon
}

type mockSubmissions struct {
	subs []domain.Submission
	err  error
}

func (m *mockSubmissions) Submissions(ctx context.Context, contentSource string) ([]domain.Submission, error) {
	return m.subs, m.err
}

func TestAggregator_Results(t *testing.T) {
	agg := New(
		&mockExplorer{txs: []domain.Transaction{tx(campaignA, alice, 9, domain.TxStatusSuccess, time.Now())}},
		&mockSubmissions{err: errors.New("502")},
	)

	onChain := agg.OnChain(context.Background(), campaignA)
	if got := onChain.OrEmpty(); got.SuccessTx != 1 {
		t.Errorf("expected 1 success tx, got %+v", got)
	}

	subs := agg.Submissions(context.Background(), "0xsrc")
	if subs.Available() {
		t.Fatal("expected unavailable submissions")
	}
	if subs.Source() != "platform" || subs.OrEmpty().Submissions != 0 {
		t.Errorf("unexpected fold: %s %+v", subs.Source(), subs.OrEmpty())
	}

	agg = New(&mockExplorer{err: errors.New("timeout")}, &mockSubmissions{})
	if r := agg.OnChain(context.Background(), campaignA); r.Available() || r.Source() != "explorer:137" {
		t.Errorf("expected explorer degradation, got source %q", r.Source())
	}
}
