package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/storage"
)

// DefaultKeyPrefix namespaces every state key.
const DefaultKeyPrefix = "reconciler:state"

// StateRepo implements storage.StateRepository on Redis.
//
// Layout:
//
//	<prefix>:chains            SET   chain ids with counters
//	<prefix>:counters:<chain>  HASH  address -> counters JSON
//	<prefix>:snapshots         ZSET  snapshot JSON scored by unix ms
type StateRepo struct {
	client *Client
	prefix string
}

func NewStateRepo(client *Client, prefix string) *StateRepo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &StateRepo{client: client, prefix: prefix}
}

func (r *StateRepo) Load(ctx context.Context) (*domain.TrackerState, error) {
	rdb := r.client.rdb

	chains, err := rdb.SMembers(ctx, chainsKey(r.prefix)).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}

	counters := make(map[string]map[string]string, len(chains))
	for _, chain := range chains {
		fields, err := rdb.HGetAll(ctx, countersKey(r.prefix, chain)).Result()
		if err != nil {
			return nil, fmt.Errorf("hgetall failed: %w", err)
		}
		counters[chain] = fields
	}

	snaps, err := rdb.ZRange(ctx, snapshotsKey(r.prefix), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	if len(chains) == 0 && len(snaps) == 0 {
		return nil, storage.ErrStateNotFound
	}
	return decodeState(counters, snaps)
}

// Save replaces all state keys in one MULTI/EXEC transaction.
func (r *StateRepo) Save(ctx context.Context, state *domain.TrackerState) error {
	counters, snaps, err := encodeState(state)
	if err != nil {
		return err
	}

	rdb := r.client.rdb
	previous, err := rdb.SMembers(ctx, chainsKey(r.prefix)).Result()
	if err != nil {
		return fmt.Errorf("smembers failed: %w", err)
	}

	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, chain := range previous {
			pipe.Del(ctx, countersKey(r.prefix, chain))
		}
		pipe.Del(ctx, chainsKey(r.prefix), snapshotsKey(r.prefix))

		for chain, fields := range counters {
			pipe.SAdd(ctx, chainsKey(r.prefix), chain)
			if len(fields) == 0 {
				continue
			}
			pairs := make([]any, 0, 2*len(fields))
			for addr, raw := range fields {
				pairs = append(pairs, addr, raw)
			}
			pipe.HSet(ctx, countersKey(r.prefix, chain), pairs...)
		}
		if len(snaps) > 0 {
			pipe.ZAdd(ctx, snapshotsKey(r.prefix), snaps...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (r *StateRepo) Close() error {
	return r.client.Close()
}

func encodeState(state *domain.TrackerState) (map[string]map[string]string, []redis.Z, error) {
	counters := make(map[string]map[string]string, len(state.Chains))
	for chain, m := range state.Chains {
		fields := make(map[string]string, len(m))
		for addr, c := range m {
			b, err := json.Marshal(c)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to encode counters: %w", err)
			}
			fields[addr] = string(b)
		}
		counters[string(chain)] = fields
	}

	snaps := make([]redis.Z, 0, len(state.Snapshots))
	for _, s := range state.Snapshots {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		snaps = append(snaps, redis.Z{Score: float64(s.Timestamp.UnixMilli()), Member: string(b)})
	}
	return counters, snaps, nil
}

// decodeState skips entries that do not decode.
func decodeState(counters map[string]map[string]string, snaps []string) (*domain.TrackerState, error) {
	st := domain.NewTrackerState()
	for chain, fields := range counters {
		m := make(map[string]domain.CampaignCounters, len(fields))
		for addr, raw := range fields {
			var c domain.CampaignCounters
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				continue
			}
			m[addr] = c
		}
		st.Chains[domain.ChainID(chain)] = m
	}

	for _, raw := range snaps {
		var s domain.RevenueSnapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			continue
		}
		st.Snapshots = append(st.Snapshots, s)
	}
	sort.SliceStable(st.Snapshots, func(i, j int) bool {
		return st.Snapshots[i].Timestamp.Before(st.Snapshots[j].Timestamp)
	})
	st.Normalize()
	return st, nil
}
