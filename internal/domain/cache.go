package domain

import (
	"context"
	"time"
)

// Bus names shared by publishers and subscribers.
const (
	ChannelTrades = "triarb:trades"
	StreamReports = "triarb:reports"
)

// TickerCache holds the most recent ticker snapshot per exchange.
type TickerCache interface {
	SetTickers(ctx context.Context, exchange Exchange, tickers []Ticker, ttl time.Duration) error
	GetTickers(ctx context.Context, exchange Exchange) ([]Ticker, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter admits at most limit requests per window for each key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
