package domain

import (
	"strings"
	"time"
)

// OnChainCampaign is a campaign contract created by a factory contract.
type OnChainCampaign struct {
	ChainID ChainID `json:"chain_id"`
	Address string  `json:"address"`
	Factory string  `json:"factory_address"`

	// ContentSource is the correlated platform-side contract, empty when unknown.
	ContentSource string `json:"content_source_address,omitempty"`

	DiscoveredBlock uint64 `json:"discovered_block"`
}

// Key returns the natural key of the campaign across per-campaign maps.
func (c OnChainCampaign) Key() string {
	return CampaignKey(c.ChainID, c.Address)
}

// CampaignKey builds the "<chain>:<lower-case address>" key.
func CampaignKey(chain ChainID, address string) string {
	return string(chain) + ":" + strings.ToLower(address)
}

// ExternalCampaign is the platform's view of a campaign.
type ExternalCampaign struct {
	Title            string    `json:"title"`
	ContentSource    string    `json:"content_source_address"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	DurationPeriods  int       `json:"duration_periods"`
	PeriodLengthDays float64   `json:"period_length_days"`
	RewardAmount     float64   `json:"reward_amount"`
	RewardSymbol     string    `json:"reward_symbol"`
	CreatorHandle    string    `json:"creator_handle"`
}

// ScheduledDays is the campaign's full planned lifetime in days.
func (c ExternalCampaign) ScheduledDays() float64 {
	return float64(c.DurationPeriods) * c.PeriodLengthDays
}

// Submission is one user submission to a platform campaign.
type Submission struct {
	UserID       string `json:"user_id"`
	Disqualified bool   `json:"disqualified"`
	Hidden       bool   `json:"hidden"`
	Invalidated  bool   `json:"invalidated"`

	// ScoreRaw is fixed-point with 18 decimals, zero when absent.
	ScoreRaw Amount `json:"score_raw"`
}

// ScoreScale is the number of decimals of Submission.ScoreRaw.
const ScoreScale = 18

// Rejected reports whether any rejection flag is set.
func (s Submission) Rejected() bool {
	return s.Disqualified || s.Hidden || s.Invalidated
}

// Score returns the decoded quality score.
func (s Submission) Score() float64 {
	return s.ScoreRaw.Units(ScoreScale)
}
