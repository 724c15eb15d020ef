// Package platform reads the external campaign platform: its campaign
// listing (page-number pagination) and per-campaign submissions.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/source"
)

// Config holds platform API settings.
type Config struct {
	BaseURL          string `yaml:"base_url"`
	PageSize         int    `yaml:"campaigns_page_size"`
	MaxPages         int    `yaml:"max_pages"`
	SubmissionsLimit int    `yaml:"submissions_limit"`
}

// Client is a read-only platform API client.
type Client struct {
	cfg  Config
	http *source.Client
}

// NewClient creates a platform client.
func NewClient(cfg Config, timeout time.Duration) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: source.NewClient("platform", timeout),
	}
}

// Stats returns the request statistics of the underlying HTTP client.
func (c *Client) Stats() source.Stats {
	return c.http.Stats()
}

type campaignsPage struct {
	Campaigns  []campaignDTO `json:"campaigns"`
	Pagination struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

// Campaigns lists every platform campaign, bounded by MaxPages.
func (c *Client) Campaigns(ctx context.Context) ([]domain.ExternalCampaign, error) {
	var out []domain.ExternalCampaign
	for page := 1; c.cfg.MaxPages <= 0 || page <= c.cfg.MaxPages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(c.cfg.PageSize))

		var resp campaignsPage
		if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/campaigns?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("fetch campaigns page %d: %w", page, err)
		}
		for _, dto := range resp.Campaigns {
			out = append(out, dto.toDomain())
		}

		if len(resp.Campaigns) == 0 {
			break
		}
		if resp.Pagination.TotalPages > 0 && page >= resp.Pagination.TotalPages {
			break
		}
		if resp.Pagination.TotalPages == 0 && len(resp.Campaigns) < c.cfg.PageSize {
			break
		}
	}
	return out, nil
}

// Submissions lists the submissions of the campaign keyed by contentSource.
// The upstream has no page cap, so a single request with a large limit is made.
func (c *Client) Submissions(ctx context.Context, contentSource string) ([]domain.Submission, error) {
	q := url.Values{}
	q.Set("campaignAddress", contentSource)
	q.Set("limit", strconv.Itoa(c.cfg.SubmissionsLimit))

	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/submissions?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("fetch submissions of %s: %w", contentSource, err)
	}

	dtos, err := decodeSubmissions(raw)
	if err != nil {
		return nil, fmt.Errorf("decode submissions of %s: %w", contentSource, err)
	}

	subs := make([]domain.Submission, 0, len(dtos))
	for _, dto := range dtos {
		subs = append(subs, dto.toDomain())
	}
	return subs, nil
}

// decodeSubmissions accepts an array, an object map of submissions, or an
// envelope {"submissions": ...} holding either.
func decodeSubmissions(raw json.RawMessage) ([]submissionDTO, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []submissionDTO
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var env struct {
		Submissions json.RawMessage `json:"submissions"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Submissions) > 0 {
		return decodeSubmissions(env.Submissions)
	}

	var byID map[string]submissionDTO
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, err
	}
	list := make([]submissionDTO, 0, len(byID))
	for _, dto := range byID {
		list = append(list, dto)
	}
	return list, nil
}
