package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// defaultStreamMaxLen caps the stream with approximate trimming.
const defaultStreamMaxLen = 100_000

// EventStream publishes committed ledger events to a Redis stream.
type EventStream struct {
	client *goredis.Client
	stream string
	maxLen int64
}

var _ ports.EventSink = (*EventStream)(nil)

// NewEventStream creates a stream publisher writing to stream.
func NewEventStream(client *goredis.Client, stream string) *EventStream {
	return &EventStream{
		client: client,
		stream: stream,
		maxLen: defaultStreamMaxLen,
	}
}

// Name returns the sink name.
func (s *EventStream) Name() string {
	return "redis-stream"
}

// Publish appends the batch with one XADD per event in a single pipeline.
func (s *EventStream) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, e := range events {
			payload, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal event %d: %w", e.Sequence, err)
			}
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: s.stream,
				MaxLen: s.maxLen,
				Approx: true,
				Values: map[string]any{
					"sequence": e.Sequence,
					"type":     string(e.Type),
					"digest":   e.Digest,
					"payload":  payload,
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.stream, err)
	}
	return nil
}
