package domain

import "time"

// OnChainStats is a snapshot of all retrievable inbound history of a campaign.
type OnChainStats struct {
	Participants   int       `json:"participants"`
	SuccessTx      int       `json:"success_tx"`
	FailedTx       int       `json:"failed_tx"`
	SuccessValue   Amount    `json:"success_value"`
	FailedValue    Amount    `json:"failed_value"`
	FirstSuccessAt time.Time `json:"first_success_at"`
}

// Empty reports whether no qualifying transaction was seen.
func (s OnChainStats) Empty() bool {
	return s.Participants == 0 && s.SuccessTx == 0 && s.FailedTx == 0
}

// SubmissionStats summarises the submissions of a platform campaign.
type SubmissionStats struct {
	Submissions int `json:"submissions"`
	Users       int `json:"users"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`

	// AvgScore is 0 when Scored is 0.
	AvgScore float64 `json:"avg_score"`
	Scored   int     `json:"scored"`
}
