// Package explorer reads on-chain logs and transactions from a
// Blockscout-compatible REST API (/api/v2), following the
// next_page_params cursor.
package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/source"
)

// Client implements chain.Explorer for one chain.
type Client struct {
	chainID  domain.ChainID
	baseURL  string
	maxPages int
	http     *source.Client
}

// NewClient creates an explorer client. maxPages bounds every listing.
func NewClient(chainID domain.ChainID, baseURL string, maxPages int, timeout time.Duration) *Client {
	return &Client{
		chainID:  chainID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxPages: maxPages,
		http:     source.NewClient("explorer:"+string(chainID), timeout),
	}
}

func (c *Client) GetChainID() domain.ChainID {
	return c.chainID
}

// Stats returns the request statistics of the underlying HTTP client.
func (c *Client) Stats() source.Stats {
	return c.http.Stats()
}

// Logs returns the event logs emitted by address.
func (c *Client) Logs(ctx context.Context, address string) ([]domain.EventLog, error) {
	u := fmt.Sprintf("%s/api/v2/addresses/%s/logs", c.baseURL, url.PathEscape(address))
	raw, err := source.FetchAllPages[logItem](ctx, c.http, u, c.maxPages)
	if err != nil {
		return nil, fmt.Errorf("fetch logs of %s: %w", address, err)
	}

	logs := make([]domain.EventLog, 0, len(raw))
	for _, it := range raw {
		logs = append(logs, it.toDomain())
	}
	return logs, nil
}

// Transactions returns the transactions sent to address.
func (c *Client) Transactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	u := fmt.Sprintf("%s/api/v2/addresses/%s/transactions?filter=to", c.baseURL, url.PathEscape(address))
	raw, err := source.FetchAllPages[txItem](ctx, c.http, u, c.maxPages)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions of %s: %w", address, err)
	}

	txs := make([]domain.Transaction, 0, len(raw))
	for _, it := range raw {
		txs = append(txs, it.toDomain())
	}
	return txs, nil
}

// addressRef accepts either "0x..." or {"hash": "0x..."}.
type addressRef string

func (a *addressRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = addressRef(strings.ToLower(s))
		return nil
	}
	var obj struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*a = addressRef(strings.ToLower(obj.Hash))
	return nil
}

type logItem struct {
	Address     addressRef `json:"address"`
	Topics      []*string  `json:"topics"`
	Data        string     `json:"data"`
	BlockNumber uint64     `json:"block_number"`
	TxHash      string     `json:"transaction_hash"`
	Timestamp   string     `json:"timestamp"`
	Decoded     *struct {
		MethodCall string `json:"method_call"`
		Parameters []struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		} `json:"parameters"`
	} `json:"decoded"`
}

func (it logItem) toDomain() domain.EventLog {
	l := domain.EventLog{
		Address:     string(it.Address),
		Data:        it.Data,
		BlockNumber: it.BlockNumber,
		TxHash:      it.TxHash,
		Timestamp:   parseTime(it.Timestamp),
	}
	for _, t := range it.Topics {
		if t == nil {
			continue
		}
		l.Topics = append(l.Topics, *t)
	}
	if it.Decoded != nil {
		l.Method = it.Decoded.MethodCall
		l.Params = make(map[string]string, len(it.Decoded.Parameters))
		for _, p := range it.Decoded.Parameters {
			l.Params[p.Name] = rawString(p.Value)
		}
	}
	return l
}

type txItem struct {
	Hash        string     `json:"hash"`
	BlockNumber uint64     `json:"block_number"`
	From        addressRef `json:"from"`
	To          addressRef `json:"to"`
	Value       string     `json:"value"`
	Status      string     `json:"status"`
	Result      string     `json:"result"`
	Timestamp   string     `json:"timestamp"`
}

func (it txItem) toDomain() domain.Transaction {
	// Unparsable values count as zero and are skipped by aggregation.
	value, _ := domain.ParseAmount(it.Value)
	return domain.Transaction{
		Hash:        it.Hash,
		BlockNumber: it.BlockNumber,
		From:        string(it.From),
		To:          string(it.To),
		Value:       value,
		Status:      parseStatus(it.Status, it.Result),
		Timestamp:   parseTime(it.Timestamp),
	}
}

func parseStatus(status, result string) domain.TxStatus {
	switch strings.ToLower(status) {
	case "error", "failed", "fail":
		return domain.TxStatusFailed
	case "reverted":
		return domain.TxStatusReverted
	}
	if strings.EqualFold(result, "reverted") {
		return domain.TxStatusReverted
	}
	return domain.TxStatusSuccess
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
