package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aurum/internal/notify/mocks"
	"aurum/internal/platform/metrics"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/circuit"
)

type DispatcherSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	sink    *mocks.MockSink
	log     *bytes.Buffer
	metrics *metrics.Metrics
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sink = mocks.NewMockSink(s.ctrl)
	s.sink.EXPECT().Name().Return("mock").AnyTimes()
	s.log = &bytes.Buffer{}
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
}

func (s *DispatcherSuite) newDispatcher(opts ...Option) *Dispatcher {
	base := []Option{
		WithSink(s.sink),
		WithLogger(slog.New(slog.NewJSONHandler(s.log, nil))),
		WithMetrics(s.metrics),
		WithBreakerOptions(circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1)),
	}
	return New(append(base, opts...)...)
}

func (s *DispatcherSuite) TestFlushDeliversInBatches() {
	d := s.newDispatcher(WithBatchSize(2))
	d.Notify(context.Background(), []audit.Entry{entry(1), entry(2), entry(3)})

	gomock.InOrder(
		s.sink.EXPECT().Deliver(gomock.Any(), []audit.Entry{entry(1), entry(2)}).Return(nil),
		s.sink.EXPECT().Deliver(gomock.Any(), []audit.Entry{entry(3)}).Return(nil),
	)
	d.Flush(context.Background())

	s.Zero(d.Pending())
	s.Equal(2.0, promtest.ToFloat64(s.metrics.NotificationsSent.WithLabelValues("mock", "ok")))
}

func (s *DispatcherSuite) TestOpenCircuitFallsBackToLog() {
	d := s.newDispatcher()
	failure := errors.New("connection refused")

	s.Run("a single failure is only logged", func() {
		s.sink.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(failure)
		d.Notify(context.Background(), []audit.Entry{entry(1)})
		d.Flush(context.Background())
		s.Contains(s.log.String(), "notification delivery failed")
		s.NotContains(s.log.String(), "undelivered audit entry")
	})

	s.Run("threshold opens the circuit and routes to the fallback", func() {
		s.sink.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(failure)
		d.Notify(context.Background(), []audit.Entry{entry(2)})
		d.Flush(context.Background())
		s.Contains(s.log.String(), "notification sink circuit opened")
		s.Contains(s.log.String(), "undelivered audit entry")
		s.Equal(1.0, promtest.ToFloat64(s.metrics.SinkCircuitOpen.WithLabelValues("mock")))
	})

	s.Run("a success closes it again", func() {
		s.sink.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil)
		d.Notify(context.Background(), []audit.Entry{entry(3)})
		d.Flush(context.Background())
		s.Contains(s.log.String(), "notification sink circuit closed")
		s.Equal(0.0, promtest.ToFloat64(s.metrics.SinkCircuitOpen.WithLabelValues("mock")))
	})
}

func (s *DispatcherSuite) TestNotifyNeverBlocksAndCountsDrops() {
	d := s.newDispatcher(WithBufferSize(2))
	done := make(chan struct{})
	go func() {
		for i := uint64(1); i <= 5; i++ {
			d.Notify(context.Background(), []audit.Entry{entry(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("Notify blocked")
	}
	s.Equal(2, d.Pending())
	s.Equal(3.0, promtest.ToFloat64(s.metrics.NotificationsDropped))

	s.sink.EXPECT().Deliver(gomock.Any(), []audit.Entry{entry(4), entry(5)}).Return(nil)
	d.Flush(context.Background())
}

func (s *DispatcherSuite) TestRunFlushesOnShutdown() {
	d := s.newDispatcher(WithFlushInterval(time.Hour))
	delivered := make(chan []audit.Entry, 1)
	s.sink.EXPECT().Deliver(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, entries []audit.Entry) error {
		delivered <- entries
		return nil
	}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	d.Notify(context.Background(), []audit.Entry{entry(7)})
	select {
	case got := <-delivered:
		s.Equal([]uint64{7}, seqs(got))
	case <-time.After(2 * time.Second):
		s.FailNow("entry was not delivered")
	}

	cancel()
	s.NoError(<-errCh)
}
