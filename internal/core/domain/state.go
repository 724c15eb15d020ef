package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// CampaignCounters are the last observed on-chain counters of a campaign.
type CampaignCounters struct {
	Participants int    `json:"participants"`
	SuccessValue Amount `json:"successValue"`
	FailedValue  Amount `json:"failedValue"`
	SuccessTx    int    `json:"successTx"`
}

// UnmarshalJSON accepts counts and values as JSON numbers or strings.
// Missing or unparsable fields load as zero.
func (c *CampaignCounters) UnmarshalJSON(data []byte) error {
	var aux struct {
		Participants json.RawMessage `json:"participants"`
		SuccessValue json.RawMessage `json:"successValue"`
		FailedValue  json.RawMessage `json:"failedValue"`
		SuccessTx    json.RawMessage `json:"successTx"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = CampaignCounters{
		Participants: lenientCount(aux.Participants),
		SuccessValue: lenientAmount(aux.SuccessValue),
		FailedValue:  lenientAmount(aux.FailedValue),
		SuccessTx:    lenientCount(aux.SuccessTx),
	}
	return nil
}

// Max returns the element-wise maximum of c and o.
func (c CampaignCounters) Max(o CampaignCounters) CampaignCounters {
	return CampaignCounters{
		Participants: max(c.Participants, o.Participants),
		SuccessValue: c.SuccessValue.Max(o.SuccessValue),
		FailedValue:  c.FailedValue.Max(o.FailedValue),
		SuccessTx:    max(c.SuccessTx, o.SuccessTx),
	}
}

func lenientAmount(raw json.RawMessage) Amount {
	var a Amount
	if err := a.UnmarshalJSON(raw); err != nil || a.Sign() < 0 {
		return Amount{}
	}
	return a
}

func lenientCount(raw json.RawMessage) int {
	a := lenientAmount(raw)
	if !a.Big().IsInt64() {
		return 0
	}
	return int(a.Big().Int64())
}

// RevenueSnapshot is one point of the aggregate revenue series.
type RevenueSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	TotalRevenueUSD float64   `json:"totalRevenueUsd"`
}

// UnmarshalJSON accepts RFC3339 timestamps as well as unix milliseconds, and
// revenue as a number or a numeric string. Undecodable fields are left zero;
// a snapshot without a timestamp is dropped by Normalize.
func (s *RevenueSnapshot) UnmarshalJSON(data []byte) error {
	*s = RevenueSnapshot{}

	var aux struct {
		Timestamp       json.RawMessage `json:"timestamp"`
		TotalRevenueUSD json.RawMessage `json:"totalRevenueUsd"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil
	}
	s.Timestamp = lenientTime(aux.Timestamp)
	s.TotalRevenueUSD = lenientFloat(aux.TotalRevenueUSD)
	return nil
}

func lenientTime(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}
		}
		ts, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return time.Time{}
		}
		return ts.UTC()
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func lenientFloat(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0
		}
		raw = []byte(strings.TrimSpace(str))
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// TrackerState is the only durable artifact of the engine.
type TrackerState struct {
	Chains    map[ChainID]map[string]CampaignCounters `json:"chains"`
	Snapshots []RevenueSnapshot                       `json:"snapshots"`
}

// NewTrackerState returns an empty state (first-run semantics).
func NewTrackerState() *TrackerState {
	return &TrackerState{
		Chains:    make(map[ChainID]map[string]CampaignCounters),
		Snapshots: []RevenueSnapshot{},
	}
}

// Counters returns the persisted counters of a campaign, zero when unknown.
func (s *TrackerState) Counters(chain ChainID, address string) (CampaignCounters, bool) {
	if s == nil || s.Chains == nil {
		return CampaignCounters{}, false
	}
	c, ok := s.Chains[chain][strings.ToLower(address)]
	return c, ok
}

// SetCounters stores counters under the canonical lower-case address.
func (s *TrackerState) SetCounters(chain ChainID, address string, c CampaignCounters) {
	if s.Chains == nil {
		s.Chains = make(map[ChainID]map[string]CampaignCounters)
	}
	m, ok := s.Chains[chain]
	if !ok {
		m = make(map[string]CampaignCounters)
		s.Chains[chain] = m
	}
	m[strings.ToLower(address)] = c
}

// Clone returns a deep copy. Amounts are immutable so sharing them is safe.
func (s *TrackerState) Clone() *TrackerState {
	out := NewTrackerState()
	if s == nil {
		return out
	}
	for chain, m := range s.Chains {
		cp := make(map[string]CampaignCounters, len(m))
		for addr, c := range m {
			cp[addr] = c
		}
		out.Chains[chain] = cp
	}
	out.Snapshots = append(out.Snapshots, s.Snapshots...)
	return out
}

// Normalize fills nil maps, lower-cases addresses and orders snapshots so
// that states written by older runs load without special cases. Addresses
// differing only in case are merged with the element-wise max, and snapshots
// sharing a timestamp collapse to the last one.
func (s *TrackerState) Normalize() {
	if s.Chains == nil {
		s.Chains = make(map[ChainID]map[string]CampaignCounters)
	}
	for chain, m := range s.Chains {
		merged := make(map[string]CampaignCounters, len(m))
		for addr, c := range m {
			lower := strings.ToLower(addr)
			if prev, ok := merged[lower]; ok {
				c = prev.Max(c)
			}
			merged[lower] = c
		}
		s.Chains[chain] = merged
	}

	kept := make([]RevenueSnapshot, 0, len(s.Snapshots))
	for _, snap := range s.Snapshots {
		if !snap.Timestamp.IsZero() {
			kept = append(kept, snap)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})

	s.Snapshots = kept[:0]
	for _, snap := range kept {
		if n := len(s.Snapshots); n > 0 && s.Snapshots[n-1].Timestamp.Equal(snap.Timestamp) {
			s.Snapshots[n-1] = snap
			continue
		}
		s.Snapshots = append(s.Snapshots, snap)
	}
}

// CampaignCount returns the number of tracked campaigns across chains.
func (s *TrackerState) CampaignCount() int {
	n := 0
	for _, m := range s.Chains {
		n += len(m)
	}
	return n
}
