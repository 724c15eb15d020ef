package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables and
// applying defaults. It does not validate.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 15 * time.Second
	}

	for i := range cfg.Chains {
		c := &cfg.Chains[i]
		if c.Name == "" {
			c.Name = string(c.ChainID.Name())
		}
		if c.NativeDecimals == 0 {
			c.NativeDecimals = 18
		}
		if c.NativeSymbol == "" {
			c.NativeSymbol = "ETH"
		}
		if c.MaxPages == 0 {
			c.MaxPages = 50
		}
	}

	if cfg.Platform.PageSize == 0 {
		cfg.Platform.PageSize = 100
	}
	if cfg.Platform.MaxPages == 0 {
		cfg.Platform.MaxPages = 20
	}
	if cfg.Platform.SubmissionsLimit == 0 {
		cfg.Platform.SubmissionsLimit = 100000
	}

	if cfg.Price.FallbackUSD == 0 {
		cfg.Price.FallbackUSD = 3000
	}

	if cfg.Run.Concurrency == 0 {
		cfg.Run.Concurrency = 8
	}
	if cfg.Run.FunnelTolerance == 0 {
		cfg.Run.FunnelTolerance = 2
	}

	if cfg.State.Driver == "" {
		cfg.State.Driver = StateDriverFile
	}
	if cfg.State.Path == "" {
		cfg.State.Path = "data/state.json"
	}
	if cfg.State.Key == "" {
		cfg.State.Key = "reconciler:state"
	}
}
