package domain

import "time"

// CampaignMetrics is the reconciled view of one campaign for one run.
type CampaignMetrics struct {
	ChainID       ChainID `json:"chain_id"`
	Address       string  `json:"address"`
	Title         string  `json:"title"`
	ContentSource string  `json:"content_source_address,omitempty"`
	Correlated    bool    `json:"correlated"`

	CreatorHandle string    `json:"creator_handle,omitempty"`
	RewardAmount  float64   `json:"reward_amount,omitempty"`
	RewardSymbol  string    `json:"reward_symbol,omitempty"`
	StartDate     time.Time `json:"start_date,omitzero"`
	EndDate       time.Time `json:"end_date,omitzero"`

	Participants  int     `json:"participants"`
	PlatformUsers int     `json:"platform_users"`
	Submissions   int     `json:"submissions"`
	Approved      int     `json:"approved"`
	Rejected      int     `json:"rejected"`
	AvgScore      float64 `json:"avg_score"`

	SuccessTx      int       `json:"success_tx"`
	FailedTx       int       `json:"failed_tx"`
	SuccessValue   Amount    `json:"success_value"`
	FailedValue    Amount    `json:"failed_value"`
	FirstSuccessAt time.Time `json:"first_success_at,omitzero"`

	RevenueNative    float64 `json:"revenue_native"`
	RevenueUSD       float64 `json:"revenue_usd"`
	FailedFeesNative float64 `json:"failed_fees_native"`
	FailedFeesUSD    float64 `json:"failed_fees_usd"`

	// GhostWallets is floored at zero; WalletGap keeps the sign.
	GhostWallets int  `json:"ghost_wallets"`
	WalletGap    int  `json:"wallet_gap"`
	FunnelLeak   bool `json:"funnel_leak"`

	ApprovalRate float64 `json:"approval_rate"`
	HasApproval  bool    `json:"has_approval_rate"`
	LowApproval  bool    `json:"low_approval"`

	AgeDays             float64 `json:"age_days"`
	DailyRevenueUSD     float64 `json:"daily_revenue_usd"`
	ProjectedRevenueUSD float64 `json:"projected_revenue_usd"`
	PeriodRevenueUSD    float64 `json:"period_revenue_usd"`

	NewParticipants int     `json:"new_participants"`
	NewSuccessTx    int     `json:"new_success_tx"`
	NewRevenue      Amount  `json:"new_revenue"`
	NewRevenueUSD   float64 `json:"new_revenue_usd"`
	Degraded        bool    `json:"degraded"`
}

// ARRMethod names the estimation method of an ARR figure.
type ARRMethod string

const (
	ARRSinceLaunch ARRMethod = "since_launch"
	ARRWindow24h   ARRMethod = "window_24h"
	ARRWindow7d    ARRMethod = "window_7d"
	ARRHourly      ARRMethod = "hourly_fallback"
	ARRNone        ARRMethod = "none"
)

// ARREstimate holds the selected ARR and every candidate that was available.
type ARREstimate struct {
	Method   ARRMethod `json:"method"`
	ValueUSD float64   `json:"value_usd"`

	SinceLaunch *float64 `json:"since_launch,omitempty"`
	Window24h   *float64 `json:"window_24h,omitempty"`
	Window7d    *float64 `json:"window_7d,omitempty"`
	Hourly      *float64 `json:"hourly_fallback,omitempty"`
}

// AggregateStats are totals across all reported campaigns.
type AggregateStats struct {
	Campaigns     int `json:"campaigns"`
	Correlated    int `json:"correlated"`
	Participants  int `json:"participants"`
	PlatformUsers int `json:"platform_users"`
	Submissions   int `json:"submissions"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	SuccessTx     int `json:"success_tx"`
	FailedTx      int `json:"failed_tx"`
	GhostWallets  int `json:"ghost_wallets"`
	FunnelLeaks   int `json:"funnel_leaks"`
	LowApproval   int `json:"low_approval"`

	ApprovalRate float64 `json:"approval_rate"`

	RevenueUSD    float64 `json:"revenue_usd"`
	FailedFeesUSD float64 `json:"failed_fees_usd"`

	NewParticipants int     `json:"new_participants"`
	NewRevenueUSD   float64 `json:"new_revenue_usd"`
	HadActivity     bool    `json:"had_activity"`

	EarliestFirstSuccess time.Time   `json:"earliest_first_success,omitzero"`
	ARR                  ARREstimate `json:"arr"`
}

// Degradation records a sub-fetch that was treated as empty.
type Degradation struct {
	Source   string  `json:"source"`
	ChainID  ChainID `json:"chain_id,omitempty"`
	Campaign string  `json:"campaign,omitempty"`
	Error    string  `json:"error"`
}

// RunResult is the structured output of one batch pass.
type RunResult struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	PriceUSD    float64           `json:"price_usd"`
	PriceStale  bool              `json:"price_fallback"`
	Campaigns   []CampaignMetrics `json:"campaigns"`
	Stats       AggregateStats    `json:"stats"`
	Degraded    []Degradation     `json:"degraded,omitempty"`
}
