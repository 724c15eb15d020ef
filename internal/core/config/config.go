package config

import (
	"time"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/platform"
	"github.com/vietddude/reconciler/internal/infra/price"
	"github.com/vietddude/reconciler/internal/infra/storage/postgres"
	redisstore "github.com/vietddude/reconciler/internal/infra/storage/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Logging  LoggingConfig     `yaml:"logging"`
	Chains   []ChainConfig     `yaml:"chains"`
	Platform platform.Config   `yaml:"platform"`
	Price    price.Config      `yaml:"price"`
	HTTP     HTTPConfig        `yaml:"http"`
	Run      RunConfig         `yaml:"run"`
	State    StateConfig       `yaml:"state"`
	Redis    redisstore.Config `yaml:"redis"`
	Database postgres.Config   `yaml:"database"`
	Metrics  MetricsConfig     `yaml:"metrics"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ChainConfig holds settings for a specific blockchain.
type ChainConfig struct {
	ChainID        domain.ChainID `yaml:"id"`
	Name           string         `yaml:"name"`
	ExplorerURL    string         `yaml:"explorer_url"`
	NativeDecimals int            `yaml:"native_decimals"`
	NativeSymbol   string         `yaml:"native_symbol"`
	MaxPages       int            `yaml:"max_pages"`
	Factories      []string       `yaml:"factories"`
	CreationEvents []EventConfig  `yaml:"creation_events"`
}

// EventConfig describes one campaign creation event.
type EventConfig struct {
	Event         string `yaml:"event"`          // signature or 0x topic hash
	ContentSource bool   `yaml:"content_source"` // third data word holds the content source
}

// HTTPConfig holds settings shared by every upstream client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// RunConfig holds batch run settings.
type RunConfig struct {
	Concurrency     int    `yaml:"concurrency"`
	TopN            int    `yaml:"top_n"` // 0 = all campaigns
	FunnelTolerance int    `yaml:"funnel_tolerance"`
	Output          string `yaml:"output"` // empty or "-" = stdout
}

// StateConfig selects the state repository.
type StateConfig struct {
	Driver string `yaml:"driver"` // file, redis, postgres, memory
	Path   string `yaml:"path"`
	Key    string `yaml:"key"`
}

// MetricsConfig holds the Prometheus textfile location.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

const (
	StateDriverFile     = "file"
	StateDriverRedis    = "redis"
	StateDriverPostgres = "postgres"
	StateDriverMemory   = "memory"
)
