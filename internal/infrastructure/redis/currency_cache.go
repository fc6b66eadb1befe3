package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CurrencyCache shares vendor supported-currency sets between processes so
// each gateway asks its vendor at most once per TTL.
type CurrencyCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *CurrencyCache {
	return &CurrencyCache{Client: client, TTL: ttl}
}

// GetCurrencies returns the cached set for key; an empty slice means miss.
func (c *CurrencyCache) GetCurrencies(ctx context.Context, key string) ([]string, error) {
	return c.Client.SMembers(ctx, key).Result()
}

func (c *CurrencyCache) SetCurrencies(ctx context.Context, key string, currencies []string) error {
	if len(currencies) == 0 {
		return nil
	}
	members := make([]any, 0, len(currencies))
	for _, cur := range currencies {
		members = append(members, cur)
	}
	pipe := c.Client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, c.TTL)
	_, err := pipe.Exec(ctx)
	return err
}
