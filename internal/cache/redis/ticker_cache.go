package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// TickerCache implements domain.TickerCache. Each exchange's latest snapshot
// lives in one hash:
//
//	triarb:tickers:{exchange}  data=<JSON array>  fetched_at=<unix ms>
type TickerCache struct {
	rdb *redis.Client
}

func NewTickerCache(c *Client) *TickerCache {
	return &TickerCache{rdb: c.Underlying()}
}

func tickersKey(ex domain.Exchange) string { return "triarb:tickers:" + ex.String() }

// SetTickers replaces the cached snapshot and resets its TTL in one
// transaction.
func (tc *TickerCache) SetTickers(ctx context.Context, ex domain.Exchange, tickers []domain.Ticker, ttl time.Duration) error {
	data, err := json.Marshal(tickers)
	if err != nil {
		return fmt.Errorf("redis: marshal tickers %s: %w", ex, err)
	}

	key := tickersKey(ex)
	pipe := tc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "fetched_at", time.Now().UnixMilli())
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set tickers %s: %w", ex, err)
	}
	return nil
}

// GetTickers returns the cached snapshot or domain.ErrNotFound once it has
// expired.
func (tc *TickerCache) GetTickers(ctx context.Context, ex domain.Exchange) ([]domain.Ticker, error) {
	data, err := tc.rdb.HGet(ctx, tickersKey(ex), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get tickers %s: %w", ex, err)
	}

	var tickers []domain.Ticker
	if err := json.Unmarshal(data, &tickers); err != nil {
		return nil, fmt.Errorf("redis: unmarshal tickers %s: %w", ex, err)
	}
	return tickers, nil
}

var _ domain.TickerCache = (*TickerCache)(nil)
