package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aurum/pkg/platform/audit"
)

// RedisSink publishes each entry as JSON on a pub/sub channel. Incidents are
// also published on "<channel>.incidents" so that an alerting subscriber
// can listen to those alone.
type RedisSink struct {
	client  redis.Cmdable
	channel string
}

func NewRedisSink(client redis.Cmdable, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) IncidentChannel() string { return s.channel + ".incidents" }

func (s *RedisSink) Deliver(ctx context.Context, entries []audit.Entry) error {
	pipe := s.client.Pipeline()
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit entry %d: %w", e.Seq, err)
		}
		pipe.Publish(ctx, s.channel, payload)
		if e.Action.IsIncident() {
			pipe.Publish(ctx, s.IncidentChannel(), payload)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish audit entries: %w", err)
	}
	return nil
}
