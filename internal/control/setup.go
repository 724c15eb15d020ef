package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/reconciler/internal/core/config"
	"github.com/vietddude/reconciler/internal/indexing/filter"
	"github.com/vietddude/reconciler/internal/infra/explorer"
	"github.com/vietddude/reconciler/internal/infra/platform"
	"github.com/vietddude/reconciler/internal/infra/price"
	"github.com/vietddude/reconciler/internal/infra/storage"
	"github.com/vietddude/reconciler/internal/infra/storage/file"
	"github.com/vietddude/reconciler/internal/infra/storage/memory"
	"github.com/vietddude/reconciler/internal/infra/storage/postgres"
	redisstore "github.com/vietddude/reconciler/internal/infra/storage/redis"
)

// OpenState opens the state repository selected by cfg.State.Driver.
// The caller closes it.
func OpenState(ctx context.Context, cfg *config.AppConfig) (storage.StateRepository, error) {
	switch cfg.State.Driver {
	case config.StateDriverFile, "":
		slog.Info("Using file state", "path", cfg.State.Path)
		return file.NewStateRepo(cfg.State.Path), nil

	case config.StateDriverMemory:
		slog.Info("Using memory state")
		return memory.NewStateRepo(), nil

	case config.StateDriverRedis:
		client, err := redisstore.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		slog.Info("Using Redis state", "key", cfg.State.Key)
		return redisstore.NewStateRepo(client, cfg.State.Key), nil

	case config.StateDriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		slog.Info("Using PostgreSQL state")
		return postgres.NewStateRepo(db), nil
	}
	return nil, fmt.Errorf("unknown state driver %q", cfg.State.Driver)
}

// BuildChains creates the explorer client and event filter of every
// configured chain.
func BuildChains(cfg *config.AppConfig) []ChainSources {
	out := make([]ChainSources, 0, len(cfg.Chains))
	for _, ch := range cfg.Chains {
		f := filter.NewTopicFilter()
		for _, ev := range ch.CreationEvents {
			f.AddSignature(ev.Event, ev.ContentSource)
		}
		out = append(out, ChainSources{
			Explorer:       explorer.NewClient(ch.ChainID, ch.ExplorerURL, ch.MaxPages, cfg.HTTP.Timeout),
			Factories:      ch.Factories,
			Filter:         f,
			NativeDecimals: ch.NativeDecimals,
		})
		slog.Debug("Chain configured",
			"chain", ch.ChainID,
			"name", ch.Name,
			"factories", len(ch.Factories),
			"events", f.Size(),
		)
	}
	return out
}

// New wires a runner from the application config. The returned repository
// must be closed by the caller once the run is over.
func New(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Runner, storage.StateRepository, error) {
	repo, err := OpenState(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	chains := BuildChains(cfg)
	plat := platform.NewClient(cfg.Platform, cfg.HTTP.Timeout)

	upstreams := map[string]StatsSource{"platform": plat}
	for _, ch := range chains {
		if s, ok := ch.Explorer.(StatsSource); ok {
			upstreams["explorer:"+string(ch.Explorer.GetChainID())] = s
		}
	}

	runner := NewRunner(Config{
		Chains:          chains,
		Platform:        plat,
		Price:           price.NewFeed(cfg.Price, cfg.HTTP.Timeout, logger),
		State:           repo,
		Concurrency:     cfg.Run.Concurrency,
		TopN:            cfg.Run.TopN,
		FunnelTolerance: cfg.Run.FunnelTolerance,
		Upstreams:       upstreams,
	}, logger)
	return runner, repo, nil
}
