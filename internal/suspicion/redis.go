package suspicion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the Redis backend cannot be reached.
var ErrRedisUnavailable = errors.New("redis unavailable")

const tagFieldPrefix = "tag:"

const addSuspicionScript = `
local key = KEYS[1]
local delta = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local exp = tonumber(redis.call("HGET", key, "exp") or "0")
if exp <= now then
  redis.call("DEL", key)
end

local score = tonumber(redis.call("HGET", key, "score") or "0") + delta
if score < 0 then
  score = 0
end
if cap > 0 and score > cap then
  score = cap
end

redis.call("HSET", key, "score", score, "last", now, "exp", now + ttl)
for i = 5, #ARGV do
  redis.call("HSET", key, "tag:" .. ARGV[i], now)
end
redis.call("PEXPIRE", key, ttl)
return score
`

var addSuspicionLua = redis.NewScript(addSuspicionScript)

// RedisStore keeps suspicion records as Redis hashes shared by all engine instances.
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

func (s *RedisStore) key(address string) string {
	return s.prefix + ":sus:" + address
}

func (s *RedisStore) Get(ctx context.Context, address string, now time.Time) (Record, bool, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return Record{}, false, nil
	}

	rec := decodeRecord(address, fields)
	if !now.Before(rec.ExpiresAt) {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *RedisStore) Add(ctx context.Context, address string, delta, max int, tags []string, now time.Time, ttl time.Duration) (Record, error) {
	args := make([]interface{}, 0, 4+len(tags))
	args = append(args, delta, max, now.UnixMilli(), ttl.Milliseconds())
	for _, tag := range tags {
		if tag != "" {
			args = append(args, tag)
		}
	}

	if err := addSuspicionLua.Run(ctx, s.redis, []string{s.key(address)}, args...).Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, ok, err := s.Get(ctx, address, now)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{Address: address}, nil
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, address string) error {
	if err := s.redis.Del(ctx, s.key(address)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func decodeRecord(address string, fields map[string]string) Record {
	rec := Record{Address: address}
	for field, value := range fields {
		switch {
		case field == "score":
			rec.Score, _ = strconv.Atoi(value)
		case field == "last":
			rec.LastActivity = unixMilli(value)
		case field == "exp":
			rec.ExpiresAt = unixMilli(value)
		case strings.HasPrefix(field, tagFieldPrefix):
			rec.Tags = append(rec.Tags, strings.TrimPrefix(field, tagFieldPrefix))
		}
	}
	sort.Strings(rec.Tags)
	return rec
}

func unixMilli(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
