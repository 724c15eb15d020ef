package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/reconciler/internal/control"
	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/storage"
)

var resetStateCmd = &cobra.Command{
	Use:   "reset-state [chain_id]",
	Short: "Drop the persisted per-campaign counters of one chain, or of all chains",
	Long: `Drop the persisted per-campaign counters so the next run reports every
campaign's full totals as new. Revenue snapshots are kept, so the ARR windows
are not affected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResetState,
}

func init() {
	rootCmd.AddCommand(resetStateCmd)
}

func runResetState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, err := control.OpenState(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open state", "error", err)
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	state, err := repo.Load(ctx)
	if errors.Is(err, storage.ErrStateNotFound) {
		fmt.Println("No state persisted yet")
		return nil
	}
	if err != nil {
		slog.Error("Failed to load state", "error", err)
		return err
	}

	var chain domain.ChainID
	if len(args) == 1 {
		chain = domain.ChainID(args[0])
	}
	dropped := resetCounters(state, chain)

	if err := repo.Save(ctx, state); err != nil {
		slog.Error("Failed to save state", "error", err)
		return err
	}

	fmt.Printf("Dropped counters of %d campaigns\n", dropped)
	return nil
}

// resetCounters drops the counters of chain, or of every chain when chain
// is empty, and returns how many campaigns were dropped.
func resetCounters(state *domain.TrackerState, chain domain.ChainID) int {
	dropped := 0
	for id, counters := range state.Chains {
		if chain != "" && id != chain {
			continue
		}
		dropped += len(counters)
		delete(state.Chains, id)
	}
	return dropped
}
