package events

import (
	"context"
	"encoding/json"
	"fmt"

	"rentflow/internal/config"

	"github.com/go-redis/redis/v8"
)

func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisStreamPublisher appends events to a Redis Stream with XADD. Each
// entry carries "type", "event_id", "data" (the JSON event) and "timestamp"
// (unix seconds).
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: 10000}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":      string(ev.Type),
			"event_id":  ev.ID,
			"data":      string(payload),
			"timestamp": fmt.Sprintf("%d", ev.OccurredAt.Unix()),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}

// ReadRecent returns up to count of the newest events on the stream,
// newest first.
func (p *RedisStreamPublisher) ReadRecent(ctx context.Context, count int64) ([]Event, error) {
	msgs, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", p.stream, err)
	}
	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("failed to decode stream entry %s: %w", msg.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
