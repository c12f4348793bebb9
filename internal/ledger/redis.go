package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goRisk/internal"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the Redis backend cannot be reached.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStore keeps attempt lists in Redis so several engine instances share one ledger.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore]. prefix namespaces every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gr"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) attemptsKey(key string) string {
	return s.prefix + ":al:" + internal.BindingKey(key)
}

func (s *RedisStore) devicesKey(address string) string {
	return s.prefix + ":ad:" + address
}

func (s *RedisStore) Append(ctx context.Context, key string, a Attempt, max int, ttl time.Duration) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	k := s.attemptsKey(key)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, data)
		if max > 0 {
			pipe.LTrim(ctx, k, int64(-max), -1)
		}
		if ttl > 0 {
			pipe.PExpire(ctx, k, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, key string) ([]Attempt, error) {
	raw, err := s.redis.LRange(ctx, s.attemptsKey(key), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]Attempt, 0, len(raw))
	for _, item := range raw {
		var a Attempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			// skip entries written by an incompatible version
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *RedisStore) TrackDevice(ctx context.Context, address, device string, at time.Time, ttl time.Duration) error {
	k := s.devicesKey(address)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(at.UnixMilli()), Member: internal.BindingKey(device)})
		if ttl > 0 {
			pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(at.Add(-ttl).UnixMilli(), 10))
			pipe.PExpire(ctx, k, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) DistinctDevices(ctx context.Context, address string, since time.Time) (int, error) {
	n, err := s.redis.ZCount(ctx, s.devicesKey(address), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}
