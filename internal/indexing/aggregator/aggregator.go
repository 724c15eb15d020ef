// Package aggregator folds raw source listings into per-campaign stats.
package aggregator

import (
	"context"
	"strings"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/chain"
	"github.com/vietddude/reconciler/internal/infra/chain/evm"
	"github.com/vietddude/reconciler/internal/infra/source"
)

// AggregateTransactions replays the inbound history of campaign.
//
// Only non-zero-value transactions sent to the campaign itself count.
// Failed or reverted ones add to the failure totals; every other status is
// a success and contributes its sender to the participant set.
func AggregateTransactions(campaign string, txs []domain.Transaction) domain.OnChainStats {
	var stats domain.OnChainStats
	participants := make(map[string]struct{})

	for _, tx := range txs {
		if tx.Value.Sign() <= 0 || !evm.SameAddress(tx.To, campaign) {
			continue
		}
		if tx.Failed() {
			stats.FailedTx++
			stats.FailedValue = stats.FailedValue.Add(tx.Value)
			continue
		}

		stats.SuccessTx++
		stats.SuccessValue = stats.SuccessValue.Add(tx.Value)
		if from := strings.ToLower(strings.TrimSpace(tx.From)); from != "" {
			participants[from] = struct{}{}
		}
		if !tx.Timestamp.IsZero() && (stats.FirstSuccessAt.IsZero() || tx.Timestamp.Before(stats.FirstSuccessAt)) {
			stats.FirstSuccessAt = tx.Timestamp
		}
	}

	stats.Participants = len(participants)
	return stats
}

// AggregateSubmissions summarises the submissions of one platform campaign.
// The average score counts non-zero scores only.
func AggregateSubmissions(subs []domain.Submission) domain.SubmissionStats {
	stats := domain.SubmissionStats{Submissions: len(subs)}
	users := make(map[string]struct{})

	var scoreSum float64
	for _, s := range subs {
		if s.UserID != "" {
			users[s.UserID] = struct{}{}
		}
		if s.Rejected() {
			stats.Rejected++
		}
		if !s.ScoreRaw.IsZero() {
			scoreSum += s.Score()
			stats.Scored++
		}
	}

	stats.Users = len(users)
	stats.Approved = stats.Submissions - stats.Rejected
	if stats.Scored > 0 {
		stats.AvgScore = scoreSum / float64(stats.Scored)
	}
	return stats
}

// SubmissionSource lists the submissions of a platform campaign.
type SubmissionSource interface {
	Submissions(ctx context.Context, contentSource string) ([]domain.Submission, error)
}

// Aggregator fetches and folds per-campaign data.
type Aggregator struct {
	explorer    chain.Explorer
	submissions SubmissionSource
}

func New(explorer chain.Explorer, submissions SubmissionSource) *Aggregator {
	return &Aggregator{explorer: explorer, submissions: submissions}
}

// OnChain returns the on-chain stats of the campaign at address.
func (a *Aggregator) OnChain(ctx context.Context, address string) source.Result[domain.OnChainStats] {
	txs, err := a.explorer.Transactions(ctx, address)
	if err != nil {
		return source.Unavailable[domain.OnChainStats]("explorer:"+string(a.explorer.GetChainID()), err)
	}
	return source.Ok(AggregateTransactions(address, txs))
}

// Submissions returns the submission stats for a correlation key.
func (a *Aggregator) Submissions(ctx context.Context, contentSource string) source.Result[domain.SubmissionStats] {
	subs, err := a.submissions.Submissions(ctx, contentSource)
	if err != nil {
		return source.Unavailable[domain.SubmissionStats]("platform", err)
	}
	return source.Ok(AggregateSubmissions(subs))
}
