package platform

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
)

type campaignDTO struct {
	Title              string      `json:"title"`
	CorrelationAddress string      `json:"correlationAddress"`
	Rewards            []rewardDTO `json:"rewards"`
	Token              struct {
		Symbol string `json:"symbol"`
	} `json:"token"`
	StartDate        string     `json:"startDate"`
	EndDate          string     `json:"endDate"`
	DurationPeriods  flexNumber `json:"durationPeriods"`
	PeriodLengthDays flexNumber `json:"periodLengthDays"`
	Creator          creatorDTO `json:"creator"`
}

type rewardDTO struct {
	TotalAmount flexNumber `json:"totalAmount"`
}

func (d campaignDTO) toDomain() domain.ExternalCampaign {
	var reward float64
	for _, r := range d.Rewards {
		reward += float64(r.TotalAmount)
	}
	return domain.ExternalCampaign{
		Title:            d.Title,
		ContentSource:    strings.ToLower(strings.TrimSpace(d.CorrelationAddress)),
		StartDate:        parseDate(d.StartDate),
		EndDate:          parseDate(d.EndDate),
		DurationPeriods:  int(d.DurationPeriods),
		PeriodLengthDays: float64(d.PeriodLengthDays),
		RewardAmount:     reward,
		RewardSymbol:     d.Token.Symbol,
		CreatorHandle:    string(d.Creator),
	}
}

// creatorDTO accepts a plain handle or an object with a handle field.
type creatorDTO string

func (c *creatorDTO) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = creatorDTO(s)
		return nil
	}
	var obj struct {
		XUsername string `json:"xUsername"`
		Handle    string `json:"handle"`
		Username  string `json:"username"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.XUsername != "":
		*c = creatorDTO(obj.XUsername)
	case obj.Handle != "":
		*c = creatorDTO(obj.Handle)
	default:
		*c = creatorDTO(obj.Username)
	}
	return nil
}

type submissionDTO struct {
	UserID         flexString       `json:"userId"`
	DisqualifiedAt presence         `json:"disqualifiedAt"`
	HiddenAt       presence         `json:"hiddenAt"`
	InvalidatedAt  presence         `json:"invalidatedAt"`
	ScoreRaw       *json.RawMessage `json:"scoreRaw"`
}

func (d submissionDTO) toDomain() domain.Submission {
	s := domain.Submission{
		UserID:       string(d.UserID),
		Disqualified: bool(d.DisqualifiedAt),
		Hidden:       bool(d.HiddenAt),
		Invalidated:  bool(d.InvalidatedAt),
	}
	if d.ScoreRaw != nil {
		// Unparsable scores are treated as absent.
		var score domain.Amount
		if err := score.UnmarshalJSON(*d.ScoreRaw); err == nil && score.Sign() > 0 {
			s.ScoreRaw = score
		}
	}
	return s
}

// presence is true when the field holds any non-empty value.
type presence bool

func (p *presence) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "", "null", "false", `""`, "0":
		*p = false
	default:
		*p = true
	}
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// flexNumber accepts a JSON number or a numeric string. Anything else is 0.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
