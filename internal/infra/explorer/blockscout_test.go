package explorer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
)

const campaign = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

func TestClient_Transactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/addresses/"+campaign+"/transactions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("filter") != "to" {
			t.Errorf("expected filter=to, got %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("block_number") == "" {
			fmt.Fprint(w, `{
				"items": [
					{"hash":"0x1","from":{"hash":"0xAAA"},"to":{"hash":"0x5FbDB2315678afecb367f032d93F642f64180aa3"},
					 "value":"1000000000000000000","status":"ok","result":"success","timestamp":"2026-01-02T03:04:05.000000Z"}
				],
				"next_page_params": {"block_number": 10, "index": 0, "items_count": 50}
			}`)
			return
		}
		fmt.Fprint(w, `{
			"items": [
				{"hash":"0x2","from":"0xbbb","to":"0x5fbdb2315678afecb367f032d93f642f64180aa3",
				 "value":"50","status":"error","result":"Reverted","timestamp":"2026-01-01T00:00:00Z"}
			],
			"next_page_params": null
		}`)
	}))
	defer srv.Close()

	c := NewClient("8453", srv.URL+"/", 10, 5*time.Second)
	txs, err := c.Transactions(context.Background(), campaign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}

	if txs[0].From != "0xaaa" || txs[0].To != campaign {
		t.Errorf("addresses should be lower-cased, got from=%s to=%s", txs[0].From, txs[0].To)
	}
	if txs[0].Value.String() != "1000000000000000000" || txs[0].Failed() {
		t.Errorf("unexpected first tx: %+v", txs[0])
	}
	if !txs[1].Failed() {
		t.Errorf("expected second tx to be failed, got status %s", txs[1].Status)
	}
	if want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC); !txs[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", txs[0].Timestamp, want)
	}
}

func TestClient_LogsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"items": [{
				"address": {"hash": "0x5FbDB2315678afecb367f032d93F642f64180aa3"},
				"topics": ["0xabc", "0xdef", null, null],
				"data": "0x",
				"block_number": 777,
				"transaction_hash": "0xtx",
				"decoded": {
					"method_call": "AuthorizedSourceAdded(address indexed sourceContract)",
					"parameters": [{"name": "sourceContract", "type": "address", "value": "0xE7f1725E7734CE288F8367e1Bb143E90bb3F0512"}, {"name": "weight", "value": 3}]
				}
			}],
			"next_page_params": null
		}`)
	}))
	defer srv.Close()

	c := NewClient("8453", srv.URL, 10, 5*time.Second)
	logs, err := c.Logs(context.Background(), campaign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}

	l := logs[0]
	if len(l.Topics) != 2 {
		t.Errorf("null topics should be dropped, got %v", l.Topics)
	}
	if l.Address != campaign || l.BlockNumber != 777 {
		t.Errorf("unexpected log: %+v", l)
	}
	if l.Params["sourceContract"] != "0xE7f1725E7734CE288F8367e1Bb143E90bb3F0512" || l.Params["weight"] != "3" {
		t.Errorf("unexpected decoded params: %v", l.Params)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		status, result string
		expected       domain.TxStatus
	}{
		{"ok", "success", domain.TxStatusSuccess},
		{"error", "Reverted", domain.TxStatusFailed},
		{"", "reverted", domain.TxStatusReverted},
		{"pending", "", domain.TxStatusSuccess},
	}
	for _, tt := range tests {
		if got := parseStatus(tt.status, tt.result); got != tt.expected {
			t.Errorf("parseStatus(%q, %q) = %s, want %s", tt.status, tt.result, got, tt.expected)
		}
	}
}
