package domain

import "time"

// Transaction represents an inbound transaction to a campaign contract.
type Transaction struct {
	Hash        string    `json:"hash"`
	BlockNumber uint64    `json:"block_number"`
	From        string    `json:"from_address"`
	To          string    `json:"to_address"`
	Value       Amount    `json:"value"`
	Status      TxStatus  `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

type TxStatus string

const (
	TxStatusSuccess  TxStatus = "success"
	TxStatusFailed   TxStatus = "failed"
	TxStatusReverted TxStatus = "reverted"
)

// Failed reports whether the transaction reverted on chain.
func (t Transaction) Failed() bool {
	return t.Status == TxStatusFailed || t.Status == TxStatusReverted
}

// EventLog represents a contract event log as listed by a block explorer.
type EventLog struct {
	Address     string    `json:"address"`
	Topics      []string  `json:"topics"`
	Data        string    `json:"data"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	Timestamp   time.Time `json:"timestamp"`

	// Method and Params are filled when the explorer decoded the event.
	Method string            `json:"method,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// Topic returns the i-th topic or an empty string.
func (l EventLog) Topic(i int) string {
	if i < 0 || i >= len(l.Topics) {
		return ""
	}
	return l.Topics[i]
}
