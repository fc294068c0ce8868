package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
)

const (
	redisContractKey = "edgewatch:contract"
	redisDayKey      = "edgewatch:day"
)

// Redis stores both records as JSON strings under fixed keys. Records are
// day-keyed internally, so no TTL is needed: a stale record is discarded
// at load time like any other backend.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to addr/db and pings once to fail fast on a bad target.
func NewRedis(ctx context.Context, addr string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) LoadContract(ctx context.Context) (*guard.CommitmentContract, error) {
	var c guard.CommitmentContract
	ok, err := r.load(ctx, redisContractKey, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (r *Redis) SaveContract(ctx context.Context, c *guard.CommitmentContract) error {
	return r.save(ctx, redisContractKey, c)
}

func (r *Redis) LoadDay(ctx context.Context) (*ledger.DayState, error) {
	var d ledger.DayState
	ok, err := r.load(ctx, redisDayKey, &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (r *Redis) SaveDay(ctx context.Context, d *ledger.DayState) error {
	return r.save(ctx, redisDayKey, d)
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) load(ctx context.Context, key string, dst any) (bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) save(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
