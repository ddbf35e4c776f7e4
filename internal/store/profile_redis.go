package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProfileConfig configures the Redis profile store.
type RedisProfileConfig struct {
	Prefix string        // key prefix, default "algotutor"
	TTL    time.Duration // expiry per profile, 0 = no expiry
}

// redisProfileRepo stores each profile as a JSON value under
// "{prefix}:profile:{session}" and keeps a sorted set of session IDs
// scored by update time for listing.
type redisProfileRepo struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisProfileRepo returns a ProfileRepo backed by Redis, for server
// deployments where several processes share learner state.
func NewRedisProfileRepo(client redis.UniversalClient, cfg RedisProfileConfig) ProfileRepo {
	if cfg.Prefix == "" {
		cfg.Prefix = "algotutor"
	}
	return &redisProfileRepo{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type redisProfile struct {
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	State     string          `json:"state"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (r *redisProfileRepo) key(sessionID string) string {
	return fmt.Sprintf("%s:profile:%s", r.prefix, sessionID)
}

func (r *redisProfileRepo) indexKey() string {
	return r.prefix + ":profiles"
}

func (r *redisProfileRepo) Save(ctx context.Context, rec ProfileRecord) error {
	if rec.SessionID == "" {
		return errors.New("profile session ID is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	b, err := json.Marshal(redisProfile(rec))
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(rec.SessionID), b, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(rec.UpdatedAt.UnixMilli()),
		Member: rec.SessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save profile %s: %w", rec.SessionID, err)
	}
	return nil
}

func (r *redisProfileRepo) Load(ctx context.Context, sessionID string) (*ProfileRecord, error) {
	b, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", sessionID, err)
	}

	var p redisProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", sessionID, err)
	}
	rec := ProfileRecord(p)
	return &rec, nil
}

func (r *redisProfileRepo) Delete(ctx context.Context, sessionID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(sessionID))
	pipe.ZRem(ctx, r.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete profile %s: %w", sessionID, err)
	}
	return nil
}

// List walks the index newest first. Entries whose key expired are
// dropped from the index and do not count against limit.
func (r *redisProfileRepo) List(ctx context.Context, limit int) ([]ProfileRecord, error) {
	batch := int64(100)
	if limit > 0 && int64(limit) < batch {
		batch = int64(limit)
	}

	var out []ProfileRecord
	for offset := int64(0); ; {
		ids, err := r.client.ZRevRange(ctx, r.indexKey(), offset, offset+batch-1).Result()
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		stale := int64(0)
		for _, id := range ids {
			rec, err := r.Load(ctx, id)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				r.client.ZRem(ctx, r.indexKey(), id)
				stale++
				continue
			}
			out = append(out, *rec)
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
		if int64(len(ids)) < batch {
			return out, nil
		}
		// Removed entries shift the rest of the index up.
		offset += int64(len(ids)) - stale
	}
}
