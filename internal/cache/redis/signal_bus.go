package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/triarb/internal/domain"
)

const (
	defaultStreamMaxLen int64 = 10000
	subscribeBuffer           = 128
	payloadField              = "payload"
)

// SignalBus implements domain.SignalBus. Profitable trades go out over
// Pub/Sub on domain.ChannelTrades; pass summaries are appended to the
// domain.StreamReports stream so late readers can catch up.
type SignalBus struct {
	rdb    *redis.Client
	maxLen int64
}

func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying(), maxLen: c.streamMaxLen}
}

// Publish is fire-and-forget: subscribers that are not connected miss it.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns payloads published on channel until ctx is done, at
// which point the returned channel is closed. Glob patterns subscribe with
// PSUBSCRIBE.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := sb.rdb.Subscribe
	if hasPattern(channel) {
		sub = sb.rdb.PSubscribe
	}
	ps := sub(ctx, channel)

	// The first Receive returns the subscription confirmation.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscribeBuffer)
	go relay(ctx, ps, out)
	return out, nil
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

func relay(ctx context.Context, ps *redis.PubSub, out chan<- []byte) {
	defer close(out)
	defer ps.Close()

	in := ps.Channel()
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			msg = m
		}
		select {
		case out <- []byte(msg.Payload):
		case <-ctx.Done():
			return
		}
	}
}

// StreamAppend adds payload to stream, trimming it to roughly the configured
// length.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: sb.maxLen,
		Approx: true,
		Values: []any{payloadField, payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count entries after lastID ("0" reads from the
// start) without blocking. An empty or caught-up stream is not an error.
// Entries without a payload field are skipped.
func (sb *SignalBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	streams, err := sb.rdb.XRead(ctx, readArgs(stream, lastID, count)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var out []domain.StreamMessage
	for _, s := range streams {
		out = appendMessages(out, s.Messages)
	}
	return out, nil
}

// readArgs never blocks: go-redis sends BLOCK 0, which waits forever, unless
// Block is negative.
func readArgs(stream, lastID string, count int) *redis.XReadArgs {
	return &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   int64(count),
		Block:   -1,
	}
}

func appendMessages(dst []domain.StreamMessage, msgs []redis.XMessage) []domain.StreamMessage {
	for _, m := range msgs {
		var data []byte
		switch p := m.Values[payloadField].(type) {
		case string:
			data = []byte(p)
		case []byte:
			data = p
		default:
			continue
		}
		dst = append(dst, domain.StreamMessage{ID: m.ID, Payload: data})
	}
	return dst
}

var _ domain.SignalBus = (*SignalBus)(nil)
