// Package catalog serves ring model reference data through a redis cache
// with a PostgreSQL fallback. Cache failures degrade to a straight DB read;
// a missing row is reported as errs.ErrNotFound so callers can fall back to
// defaults instead of failing the primary operation.
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ringtap/ringtap/internal/model"
	"github.com/ringtap/ringtap/internal/repository"
)

const cacheTTL = 15 * time.Minute

// KV is the subset of redis operations the catalog needs. Implemented by
// RedisKV and by map-backed fakes in tests. A nil KV disables caching.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ErrCacheMiss is returned by KV.Get when the key is absent.
var ErrCacheMiss = redis.Nil

// RedisKV adapts a go-redis client to the KV interface.
type RedisKV struct{ client *redis.Client }

// NewRedisKV wraps a redis client.
func NewRedisKV(client *redis.Client) *RedisKV { return &RedisKV{client: client} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Catalog resolves ring model ids to reference rows.
type Catalog struct {
	models repository.ModelRepository
	cache  KV
	log    *zap.Logger
}

// New constructs a catalog. cache may be nil.
func New(models repository.ModelRepository, cache KV, log *zap.Logger) *Catalog {
	return &Catalog{models: models, cache: cache, log: log}
}

// Lookup returns the catalog row for a model id. Cache errors are logged and
// ignored; only the DB decides existence.
func (c *Catalog) Lookup(ctx context.Context, id string) (*model.RingModel, error) {
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cacheKey(id)); err == nil {
			var m model.RingModel
			if jerr := json.Unmarshal([]byte(raw), &m); jerr == nil {
				return &m, nil
			}
		} else if err != ErrCacheMiss {
			c.log.Warn("catalog cache read failed", zap.String("model", id), zap.Error(err))
		}
	}

	m, err := c.models.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, jerr := json.Marshal(m); jerr == nil {
			if err := c.cache.Set(ctx, cacheKey(id), string(raw), cacheTTL); err != nil {
				c.log.Warn("catalog cache write failed", zap.String("model", id), zap.Error(err))
			}
		}
	}
	return m, nil
}

func cacheKey(id string) string { return "ring_model:" + id }
