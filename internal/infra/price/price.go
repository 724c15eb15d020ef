// Package price reads a single USD spot price for the native token.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/reconciler/internal/infra/source"
)

// Config holds price feed settings.
type Config struct {
	URL         string  `yaml:"url"`
	Field       string  `yaml:"field"`
	FallbackUSD float64 `yaml:"fallback_usd"`
}

// Quote is a resolved spot price.
type Quote struct {
	USD      float64
	Fallback bool
}

// Feed resolves the spot price, falling back to a fixed value on failure.
type Feed struct {
	cfg    Config
	http   *source.Client
	logger *slog.Logger
}

func NewFeed(cfg Config, timeout time.Duration, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		cfg:    cfg,
		http:   source.NewClient("price", timeout),
		logger: logger,
	}
}

// Fetch returns the live price as a Result.
func (f *Feed) Fetch(ctx context.Context) source.Result[float64] {
	if f.cfg.URL == "" {
		return source.Unavailable[float64]("price", fmt.Errorf("price url not configured"))
	}
	var body any
	if err := f.http.GetJSON(ctx, f.cfg.URL, &body); err != nil {
		return source.Unavailable[float64]("price", err)
	}
	v, err := lookup(body, f.cfg.Field)
	if err != nil {
		return source.Unavailable[float64]("price", err)
	}
	return source.Ok(v)
}

// SpotPrice returns the live price or the configured fallback.
func (f *Feed) SpotPrice(ctx context.Context) Quote {
	res := f.Fetch(ctx)
	if v, ok := res.Get(); ok {
		return Quote{USD: v}
	}
	f.logger.Warn("Price feed unavailable, using fallback",
		"fallback_usd", f.cfg.FallbackUSD,
		"error", res.Err(),
	)
	return Quote{USD: f.cfg.FallbackUSD, Fallback: true}
}

// lookup walks a dot separated path ("ethereum.usd") into a decoded body.
// An empty path expects the body itself to be the number.
func lookup(body any, path string) (float64, error) {
	cur := body
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				return 0, fmt.Errorf("price field %q: %q is not an object", path, key)
			}
			if cur, ok = obj[key]; !ok {
				return 0, fmt.Errorf("price field %q: missing %q", path, key)
			}
		}
	}

	var v float64
	switch x := cur.(type) {
	case float64:
		v = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("price field %q: %w", path, err)
		}
		v = f
	default:
		return 0, fmt.Errorf("price field %q: not a number", path)
	}
	if v <= 0 {
		return 0, fmt.Errorf("price field %q: non-positive price %v", path, v)
	}
	return v, nil
}
