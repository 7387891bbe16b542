// Package notify fans committed audit entries out to external sinks after the
// catalog lock is released. Delivery is best effort: a slow or failing sink
// never delays or fails a command.
package notify

import (
	"context"
	"log/slog"
	"time"

	"aurum/internal/platform/metrics"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/circuit"
)

const (
	defaultBatchSize     = 64
	defaultFlushInterval = time.Second
	defaultSinkTimeout   = 5 * time.Second
	shutdownTimeout      = 10 * time.Second
)

type guardedSink struct {
	sink    Sink
	breaker *circuit.Breaker
}

// Dispatcher buffers entries from the commit hook and delivers them in
// batches from Run.
type Dispatcher struct {
	buffer        *RingBuffer
	sinks         []guardedSink
	wake          chan struct{}
	logger        *slog.Logger
	metrics       *metrics.Metrics
	batchSize     int
	flushInterval time.Duration
	sinkTimeout   time.Duration
	breakerOpts   []circuit.Option
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithBufferSize(n int) Option {
	return func(d *Dispatcher) { d.buffer = NewRingBuffer(n) }
}

func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

func WithFlushInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.flushInterval = interval
		}
	}
}

func WithSinkTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sinkTimeout = timeout
		}
	}
}

// WithBreakerOptions configures the breaker created for each sink.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(d *Dispatcher) { d.breakerOpts = opts }
}

// WithSink adds a sink. Nil sinks are ignored so optional integrations can
// be passed unconditionally.
func WithSink(s Sink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sinks = append(d.sinks, guardedSink{sink: s})
		}
	}
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		buffer:        NewRingBuffer(0),
		wake:          make(chan struct{}, 1),
		logger:        slog.Default(),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		sinkTimeout:   defaultSinkTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	for i := range d.sinks {
		d.sinks[i].breaker = circuit.New(d.sinks[i].sink.Name(), d.breakerOpts...)
	}
	return d
}

// Notify is the catalog commit hook. It never blocks.
func (d *Dispatcher) Notify(_ context.Context, entries []audit.Entry) {
	if len(entries) == 0 {
		return
	}
	if dropped := d.buffer.Enqueue(entries...); dropped > 0 {
		d.metrics.AddNotificationsDropped(dropped)
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of buffered entries not yet delivered.
func (d *Dispatcher) Pending() int {
	return d.buffer.Len()
}

// Run delivers buffered entries until ctx is cancelled, then flushes what is
// left with a bounded deadline.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			d.Flush(flushCtx)
			cancel()
			return nil
		case <-d.wake:
			d.Flush(ctx)
		case <-ticker.C:
			d.Flush(ctx)
		}
	}
}

// Flush delivers every buffered entry, one batch at a time.
func (d *Dispatcher) Flush(ctx context.Context) {
	for {
		batch := d.buffer.DequeueBatch(d.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, gs := range d.sinks {
			d.deliver(ctx, gs, batch)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, gs guardedSink, batch []audit.Entry) {
	name := gs.sink.Name()
	sinkCtx, cancel := context.WithTimeout(ctx, d.sinkTimeout)
	err := gs.sink.Deliver(sinkCtx, batch)
	cancel()

	if err != nil {
		d.metrics.IncNotification(name, "error")
		useFallback, change := gs.breaker.RecordFailure()
		if change.Opened {
			d.metrics.SetCircuitOpen(name, true)
			d.logger.WarnContext(ctx, "notification sink circuit opened", "sink", name, "error", err)
		}
		if useFallback {
			d.fallback(ctx, name, batch)
			return
		}
		d.logger.WarnContext(ctx, "notification delivery failed", "sink", name, "entries", len(batch), "error", err)
		return
	}

	d.metrics.IncNotification(name, "ok")
	if _, change := gs.breaker.RecordSuccess(); change.Closed {
		d.metrics.SetCircuitOpen(name, false)
		d.logger.InfoContext(ctx, "notification sink circuit closed", "sink", name)
	}
}

// fallback records the batch in the process log while a sink's circuit is open.
func (d *Dispatcher) fallback(ctx context.Context, sink string, batch []audit.Entry) {
	d.metrics.IncNotification(sink, "fallback")
	for _, e := range batch {
		d.logger.WarnContext(ctx, "undelivered audit entry",
			"sink", sink,
			"seq", e.Seq,
			"event", string(e.Action),
			"category", string(e.Category),
			"status", string(e.Status),
			"performed_by", e.PerformedBy,
			"details", e.Details,
		)
	}
}
