package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/reconciler/internal/control"
	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted tracker state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	printStatus(os.Stdout, state)
	return nil
}

func printStatus(out io.Writer, state *domain.TrackerState) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAIN\tCAMPAIGNS\tPARTICIPANTS\tSUCCESS_TX")

	chains := make([]string, 0, len(state.Chains))
	for chain := range state.Chains {
		chains = append(chains, string(chain))
	}
	sort.Strings(chains)

	for _, chain := range chains {
		counters := state.Chains[domain.ChainID(chain)]
		var participants, txs int
		for _, c := range counters {
			participants += c.Participants
			txs += c.SuccessTx
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", chain, len(counters), participants, txs)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nsnapshots: %d\n", len(state.Snapshots))
	if n := len(state.Snapshots); n > 0 {
		oldest, newest := state.Snapshots[0], state.Snapshots[n-1]
		_, _ = fmt.Fprintf(out, "oldest:    %s  $%.2f\n", oldest.Timestamp.Format(time.RFC3339), oldest.TotalRevenueUSD)
		_, _ = fmt.Fprintf(out, "newest:    %s  $%.2f\n", newest.Timestamp.Format(time.RFC3339), newest.TotalRevenueUSD)
	}
}
