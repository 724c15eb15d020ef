package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
)

// Validate reports every configuration problem at once.
func (c *AppConfig) Validate() error {
	var errs []error

	if len(c.Chains) == 0 {
		errs = append(errs, errors.New("no chains configured"))
	}

	seen := make(map[string]bool, len(c.Chains))
	for i, ch := range c.Chains {
		name := fmt.Sprintf("chains[%d]", i)
		if ch.ChainID == "" {
			errs = append(errs, fmt.Errorf("%s: id is required", name))
		} else if seen[string(ch.ChainID)] {
			errs = append(errs, fmt.Errorf("%s: duplicate chain id %s", name, ch.ChainID))
		}
		seen[string(ch.ChainID)] = true

		if err := validURL(ch.ExplorerURL); err != nil {
			errs = append(errs, fmt.Errorf("%s: explorer_url: %w", name, err))
		}
		if len(ch.Factories) == 0 {
			errs = append(errs, fmt.Errorf("%s: no factories configured", name))
		}
		for _, f := range ch.Factories {
			if !common.IsHexAddress(f) {
				errs = append(errs, fmt.Errorf("%s: invalid factory address %q", name, f))
			}
		}
		if len(ch.CreationEvents) == 0 {
			errs = append(errs, fmt.Errorf("%s: no creation_events configured", name))
		}
		for _, ev := range ch.CreationEvents {
			if ev.Event == "" {
				errs = append(errs, fmt.Errorf("%s: empty creation event", name))
			}
		}
		if ch.NativeDecimals < 0 {
			errs = append(errs, fmt.Errorf("%s: negative native_decimals", name))
		}
	}

	if c.Platform.BaseURL != "" {
		if err := validURL(c.Platform.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("platform.base_url: %w", err))
		}
	}
	if c.Run.Concurrency < 0 {
		errs = append(errs, errors.New("run.concurrency must not be negative"))
	}

	switch c.State.Driver {
	case StateDriverFile, StateDriverMemory:
	case StateDriverRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("state.driver redis requires redis.url"))
		}
	case StateDriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("state.driver postgres requires database.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state.driver %q", c.State.Driver))
	}

	return errors.Join(errs...)
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
