// Package dispatch delivers notification events to every configured platform.
//
// Every platform has its own bounded queue drained by its own worker, so a
// slow or failing platform never delays the others and each platform sees
// submitted events in submission order. Each send is bounded by a
// per-platform timeout, and nothing a platform does can fail the dispatch as
// a whole.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/service/platform"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultQueueSize = 64

	// joinGrace is how long past the timeout a send is waited on when the platform ignores its context.
	joinGrace = 250 * time.Millisecond
)

// DeliveryRecorder persists delivery outcomes.
type DeliveryRecorder interface {
	InsertDeliveries(deliveries []model.Delivery) error
}

type Options struct {
	// Timeout bounds each platform's Send.
	Timeout time.Duration
	// QueueSize bounds the events waiting for each platform's worker.
	QueueSize int
}

// lane is one platform's queue.
type lane struct {
	platform platform.Platform
	queue    chan model.NotificationEvent
}

// Dispatcher fans events out to platforms.
type Dispatcher struct {
	lanes    []*lane
	timeout  time.Duration
	logger   *logger.Logger
	recorder DeliveryRecorder

	mu      sync.RWMutex
	closed  bool
	started bool
	workers sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(platforms []platform.Platform, opts Options, logger *logger.Logger, recorder DeliveryRecorder) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	lanes := make([]*lane, len(platforms))
	for i, p := range platforms {
		lanes[i] = &lane{platform: p, queue: make(chan model.NotificationEvent, opts.QueueSize)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		lanes:    lanes,
		timeout:  opts.Timeout,
		logger:   logger.With("dispatch"),
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Platforms returns the names of the configured platforms in order.
func (d *Dispatcher) Platforms() []string {
	names := make([]string, len(d.lanes))
	for i, l := range d.lanes {
		names[i] = l.platform.Name()
	}
	return names
}

// Start launches one worker per platform. It is safe to call more than once.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for _, l := range d.lanes {
		d.workers.Add(1)
		go d.drain(l)
	}
}

func (d *Dispatcher) drain(l *lane) {
	defer d.workers.Done()
	for event := range l.queue {
		if d.ctx.Err() != nil {
			d.logger.Warning("Abandoning %s notification %s for %s at shutdown", l.platform.Name(), event.ID, event.Subject)
			continue
		}
		out := d.attempt(d.ctx, l.platform, event)
		d.logOutcome(event, out)
		d.record(Report{EventID: event.ID, Outcomes: []Outcome{out}})
	}
}

// Submit queues event on every platform without blocking. It returns false when
// any platform dropped the event because its queue is full or the dispatcher
// is closed.
func (d *Dispatcher) Submit(event model.NotificationEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warning("Dispatcher closed, dropping notification %s for %s", event.ID, event.Subject)
		return false
	}

	accepted := true
	for _, l := range d.lanes {
		select {
		case l.queue <- event:
		default:
			d.logger.Warning("%s queue full, dropping notification %s for %s", l.platform.Name(), event.ID, event.Subject)
			accepted = false
		}
	}
	return accepted
}

// Close stops accepting events and waits for queued and in-flight deliveries.
// When ctx ends first, outstanding sends are cancelled and ctx's error is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, l := range d.lanes {
		close(l.queue)
	}
	started := d.started
	d.mu.Unlock()

	if !started {
		d.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		select {
		case <-done:
		case <-time.After(joinGrace):
			d.logger.Warning("Abandoning deliveries still running at shutdown")
		}
		return fmt.Errorf("failed to drain dispatch queues: %w", ctx.Err())
	}
}

// Dispatch sends event to every platform concurrently and waits for all of them,
// but never longer than the per-platform timeout plus a short grace. It bypasses
// the queues.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.NotificationEvent) Report {
	report := Report{EventID: event.ID, Outcomes: make([]Outcome, len(d.lanes))}
	if len(d.lanes) == 0 {
		return report
	}

	var wg sync.WaitGroup
	for i, l := range d.lanes {
		wg.Add(1)
		go func(i int, p platform.Platform) {
			defer wg.Done()
			report.Outcomes[i] = d.attempt(ctx, p, event)
		}(i, l.platform)
	}
	wg.Wait()

	for _, o := range report.Outcomes {
		d.logOutcome(event, o)
	}
	d.record(report)
	return report
}

// attempt runs one send and returns once it finishes or the timeout plus
// joinGrace has passed. A send still running after that is reported as timed
// out and left to finish on its own.
func (d *Dispatcher) attempt(ctx context.Context, p platform.Platform, event model.NotificationEvent) Outcome {
	started := time.Now()
	result := make(chan Outcome, 1)
	go func() {
		result <- d.send(ctx, p, event)
	}()

	deadline := time.NewTimer(d.timeout + joinGrace)
	defer deadline.Stop()

	select {
	case out := <-result:
		return out
	case <-deadline.C:
		return Outcome{
			Platform:    p.Name(),
			Err:         fmt.Errorf("did not return within %s: %w", d.timeout, context.DeadlineExceeded),
			Duration:    time.Since(started),
			AttemptedAt: started,
		}
	}
}

func (d *Dispatcher) logOutcome(event model.NotificationEvent, o Outcome) {
	if o.Err != nil {
		d.logger.Warning("❌ %s failed for %s: %v", o.Platform, event.Subject, o.Err)
	} else {
		d.logger.Info("✅ Sent %s notification via %s", event.Subject, o.Platform)
	}
}

func (d *Dispatcher) record(report Report) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.InsertDeliveries(report.Deliveries()); err != nil {
		d.logger.Error("Failed to record deliveries for %s: %v", report.EventID, err)
	}
}

func (d *Dispatcher) send(ctx context.Context, p platform.Platform, event model.NotificationEvent) (out Outcome) {
	out = Outcome{Platform: p.Name(), AttemptedAt: time.Now()}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		out.Duration = time.Since(out.AttemptedAt)
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	out.Err = p.Send(ctx, event.Message, event.ImagePath)
	return out
}
