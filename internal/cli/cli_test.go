package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/reconciler/internal/core/domain"
)

func sampleState() *domain.TrackerState {
	state := domain.NewTrackerState()
	state.SetCounters(domain.ChainIDBase, "0xaa", domain.CampaignCounters{Participants: 3, SuccessTx: 4})
	state.SetCounters(domain.ChainIDBase, "0xbb", domain.CampaignCounters{Participants: 1, SuccessTx: 1})
	state.SetCounters(domain.ChainIDPolygon, "0xcc", domain.CampaignCounters{Participants: 2, SuccessTx: 2})
	state.Snapshots = []domain.RevenueSnapshot{
		{Timestamp: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), TotalRevenueUSD: 10},
		{Timestamp: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), TotalRevenueUSD: 25.5},
	}
	return state
}

func TestResetCounters(t *testing.T) {
	tests := []struct {
		name      string
		chain     domain.ChainID
		dropped   int
		remaining int
	}{
		{"one chain", domain.ChainIDBase, 2, 1},
		{"all chains", "", 3, 0},
		{"unknown chain", "10", 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := sampleState()
			assert.Equal(t, tt.dropped, resetCounters(state, tt.chain))
			assert.Equal(t, tt.remaining, state.CampaignCount())
			assert.Len(t, state.Snapshots, 2, "snapshots are kept")
		})
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, sampleState())

	out := buf.String()
	assert.Contains(t, out, "8453")
	assert.Contains(t, out, "137")
	assert.Contains(t, out, "snapshots: 2")
	assert.Contains(t, out, "$25.50")
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	res := &domain.RunResult{RunID: "run-1", Campaigns: []domain.CampaignMetrics{}}

	require.NoError(t, writeReport(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["run_id"])
}
