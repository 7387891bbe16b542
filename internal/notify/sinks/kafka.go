package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"aurum/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink produces each entry to a topic, keyed by entry id so that an
// incident and its later resolution land on the same partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, entries []audit.Entry) error {
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit entry %d: %w", e.Seq, err)
		}
		records = append(records, &kgo.Record{
			Topic: s.topic,
			Key:   []byte(partitionKey(e)),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "action", Value: []byte(e.Action)},
				{Key: "category", Value: []byte(e.Category)},
				{Key: "status", Value: []byte(e.Status)},
			},
		})
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entries: %w", err)
	}
	return nil
}

// partitionKey routes a resolution next to the incident it resolves.
func partitionKey(e audit.Entry) string {
	if id, ok := e.Metadata["incident_id"]; ok && e.Action == audit.ActionIncidentResolved {
		return id
	}
	return e.ID.String()
}
