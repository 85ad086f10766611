package hrmAuth

import (
	"context"
	"log/slog"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"
)

// Per-event budget for a sink call; a stuck sink must not hold the worker forever.
const auditSinkTimeout = 2 * time.Second

type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	logger    *slog.Logger
	now       func() time.Time
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger *slog.Logger, now func() time.Time) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}

	d := &auditDispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		now:    now,
		ch:     make(chan AuditEvent, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), auditSinkTimeout)
	defer cancel()
	d.sink.Emit(ctx, event)
}

// Emit queues event. With DropIfFull a full buffer drops the event and counts it;
// otherwise Emit blocks until there is room or ctx is done.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

// drop logs on the 1st, 2nd, 4th, 8th... drop so a saturated sink does not flood the log.
func (d *auditDispatcher) drop(eventType string) {
	n := d.dropped.Add(1)
	if d.logger != nil && bits.OnesCount64(n) == 1 {
		d.logger.Warn("hrmAuth: audit event dropped", "event", eventType, "dropped_total", n)
	}
}

// Close drains queued events into the sink and stops the worker. Safe to call twice.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
