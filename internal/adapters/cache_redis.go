package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	redis "github.com/redis/go-redis/v9"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/types"
)

const defaultRedisKeyPrefix = "pysetupinfo:resolution:"

// RedisCacheAdapter shares resolutions between processes through Redis.
type RedisCacheAdapter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCacheAdapter(url string, ttl time.Duration) (*RedisCacheAdapter, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("redis url is empty")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid redis url").
			WithCause(err)
	}
	return &RedisCacheAdapter{client: redis.NewClient(opt), prefix: defaultRedisKeyPrefix, ttl: ttl}, nil
}

func (c *RedisCacheAdapter) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("redis is not reachable").
			WithCause(err)
	}
	return nil
}

func (c *RedisCacheAdapter) Get(ctx context.Context, key string) (types.SetupInfo, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.SetupInfo{}, false, nil
	}
	if err != nil {
		return types.SetupInfo{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read cached resolution").
			WithCause(err)
	}
	var info types.SetupInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return types.SetupInfo{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("malformed cached resolution").
			WithCause(err)
	}
	return info, true, nil
}

func (c *RedisCacheAdapter) Set(ctx context.Context, key string, info types.SetupInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode resolution").
			WithCause(err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to store resolution").
			WithCause(err)
	}
	return nil
}

func (c *RedisCacheAdapter) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *RedisCacheAdapter) Close() error {
	return c.client.Close()
}

var _ ports.ResolutionCachePort = (*RedisCacheAdapter)(nil)
