//go:build integration

package sinks_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"aurum/internal/notify/sinks"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
	"aurum/pkg/testutil/containers"
)

func incident() audit.Entry {
	return audit.Entry{
		ID:          domain.NewAuditID(),
		Seq:         7,
		Action:      audit.ActionSecurityAlert,
		Category:    audit.CategorySecurity,
		PerformedBy: "SYSTEM",
		Role:        domain.RoleSystem,
		Timestamp:   time.Now().UTC(),
		Status:      audit.StatusOpen,
	}
}

type RedisSinkSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSinkSuite))
}

func (s *RedisSinkSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisSinkSuite) TestPublishesIncidentsOnBothChannels() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sink := sinks.NewRedisSink(s.redis.Client, "aurum.audit")
	sub := s.redis.Subscribe(ctx, s.T(), "aurum.audit", sink.IncidentChannel())

	routine := incident()
	routine.Action = audit.ActionLogin
	routine.Status = audit.StatusResolved
	alert := incident()
	s.Require().NoError(sink.Deliver(ctx, []audit.Entry{routine, alert}))

	counts := map[string]int{}
	var last audit.Entry
	for range 3 {
		msg, err := sub.ReceiveMessage(ctx)
		s.Require().NoError(err)
		counts[msg.Channel]++
		if msg.Channel == sink.IncidentChannel() {
			s.Require().NoError(json.Unmarshal([]byte(msg.Payload), &last))
		}
	}
	s.Equal(2, counts["aurum.audit"])
	s.Equal(1, counts[sink.IncidentChannel()])
	s.Equal(alert.ID, last.ID)
}

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSinkSuite) TestProducesKeyedRecords() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "aurum.audit." + uuid.NewString()
	s.Require().NoError(s.redpanda.CreateTopic(ctx, topic))

	producer, err := kgo.NewClient(kgo.SeedBrokers(s.redpanda.Broker))
	s.Require().NoError(err)
	defer producer.Close()

	alert := incident()
	resolution := incident()
	resolution.Action = audit.ActionIncidentResolved
	resolution.Status = audit.StatusResolved
	resolution = resolution.With("incident_id", alert.ID.String())

	sink := sinks.NewKafkaSink(producer, topic)
	s.Require().NoError(sink.Deliver(ctx, []audit.Entry{alert, resolution}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < 2 {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		s.Require().Empty(fetches.Errors())
		records = append(records, fetches.Records()...)
	}

	s.Equal(alert.ID.String(), string(records[0].Key))
	s.Equal(alert.ID.String(), string(records[1].Key))
	s.Equal(records[0].Partition, records[1].Partition)

	headers := map[string]string{}
	for _, h := range records[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(audit.ActionSecurityAlert), headers["action"])
	s.Equal(string(audit.StatusOpen), headers["status"])

	var decoded audit.Entry
	s.Require().NoError(json.Unmarshal(records[1].Value, &decoded))
	s.Equal(resolution.ID, decoded.ID)
}
