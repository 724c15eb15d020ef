package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/storage"
)

const (
	selectCounters = `
		SELECT chain_id, address, participants, success_tx,
		       success_value::text AS success_value, failed_value::text AS failed_value
		FROM campaign_counters`

	selectSnapshots = `
		SELECT ts, total_revenue_usd FROM revenue_snapshots ORDER BY ts`

	insertCounters = `
		INSERT INTO campaign_counters
			(chain_id, address, participants, success_tx, success_value, failed_value, updated_at)
		VALUES
			(:chain_id, :address, :participants, :success_tx, :success_value, :failed_value, :updated_at)`

	insertSnapshots = `
		INSERT INTO revenue_snapshots (ts, total_revenue_usd)
		VALUES (:ts, :total_revenue_usd)`
)

type counterRow struct {
	ChainID      string    `db:"chain_id"`
	Address      string    `db:"address"`
	Participants int64     `db:"participants"`
	SuccessTx    int64     `db:"success_tx"`
	SuccessValue string    `db:"success_value"`
	FailedValue  string    `db:"failed_value"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type snapshotRow struct {
	Timestamp       time.Time `db:"ts"`
	TotalRevenueUSD float64   `db:"total_revenue_usd"`
}

// StateRepo implements storage.StateRepository using PostgreSQL.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a new PostgreSQL state repository.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

func (r *StateRepo) Load(ctx context.Context) (*domain.TrackerState, error) {
	var counters []counterRow
	if err := r.db.SelectContext(ctx, &counters, selectCounters); err != nil {
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}
	var snaps []snapshotRow
	if err := r.db.SelectContext(ctx, &snaps, selectSnapshots); err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	if len(counters) == 0 && len(snaps) == 0 {
		return nil, storage.ErrStateNotFound
	}
	return fromRows(counters, snaps), nil
}

// Save replaces both tables inside one transaction.
func (r *StateRepo) Save(ctx context.Context, state *domain.TrackerState) error {
	counters, snaps := toRows(state, time.Now().UTC())

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_counters`); err != nil {
		return fmt.Errorf("failed to clear counters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM revenue_snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	if len(counters) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertCounters, counters); err != nil {
			return fmt.Errorf("failed to insert counters: %w", err)
		}
	}
	if len(snaps) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertSnapshots, snaps); err != nil {
			return fmt.Errorf("failed to insert snapshots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

func (r *StateRepo) Close() error {
	return r.db.Close()
}

func toRows(state *domain.TrackerState, now time.Time) ([]counterRow, []snapshotRow) {
	var counters []counterRow
	for chain, m := range state.Chains {
		for addr, c := range m {
			counters = append(counters, counterRow{
				ChainID:      string(chain),
				Address:      addr,
				Participants: int64(c.Participants),
				SuccessTx:    int64(c.SuccessTx),
				SuccessValue: c.SuccessValue.String(),
				FailedValue:  c.FailedValue.String(),
				UpdatedAt:    now,
			})
		}
	}

	snaps := make([]snapshotRow, 0, len(state.Snapshots))
	for _, s := range state.Snapshots {
		snaps = append(snaps, snapshotRow{Timestamp: s.Timestamp.UTC(), TotalRevenueUSD: s.TotalRevenueUSD})
	}
	return counters, snaps
}

// fromRows maps unparsable values to zero.
func fromRows(counters []counterRow, snaps []snapshotRow) *domain.TrackerState {
	st := domain.NewTrackerState()
	for _, row := range counters {
		success, _ := domain.ParseAmount(row.SuccessValue)
		failed, _ := domain.ParseAmount(row.FailedValue)
		st.SetCounters(domain.ChainID(row.ChainID), row.Address, domain.CampaignCounters{
			Participants: int(row.Participants),
			SuccessTx:    int(row.SuccessTx),
			SuccessValue: success,
			FailedValue:  failed,
		})
	}
	for _, row := range snaps {
		st.Snapshots = append(st.Snapshots, domain.RevenueSnapshot{
			Timestamp:       row.Timestamp.UTC(),
			TotalRevenueUSD: row.TotalRevenueUSD,
		})
	}
	st.Normalize()
	return st
}
