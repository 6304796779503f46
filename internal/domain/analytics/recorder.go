package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RecorderConfig tunes a Recorder.
type RecorderConfig struct {
	Workers   int
	QueueSize int
	Attempts  int
	Backoff   time.Duration
	Location  *time.Location
}

func (c *RecorderConfig) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Recorder writes events to a Counter from a bounded queue drained by a
// fixed set of workers. Track never blocks.
type Recorder struct {
	counter Counter
	lg      *zap.Logger
	cfg     RecorderConfig
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewRecorder creates a Recorder. Call Start to begin draining the queue.
func NewRecorder(counter Counter, lg *zap.Logger, cfg RecorderConfig) *Recorder {
	cfg.setDefaults()
	return &Recorder{
		counter: counter,
		lg:      lg,
		cfg:     cfg,
		now:     time.Now,
		queue:   make(chan Event, cfg.QueueSize),
	}
}

// Start launches the workers. They stop when ctx is canceled or after
// Close has drained the queue.
func (r *Recorder) Start(ctx context.Context) {
	for range r.cfg.Workers {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.work(ctx)
		}()
	}
}

// Track enqueues ev and reports whether it was accepted. A full queue or a
// closed recorder drops the event.
func (r *Recorder) Track(ev Event) bool {
	if ev.At.IsZero() {
		ev.At = r.now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- ev:
		return true
	default:
		r.lg.Warn("Analytics queue full, dropping event",
			zap.String("store_id", ev.StoreID),
			zap.String("action", string(ev.Action)),
		)
		return false
	}
}

// Backlog returns the number of events waiting for a writer.
func (r *Recorder) Backlog() int { return len(r.queue) }

// Close stops accepting events and waits for the workers to drain the
// queue.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.queue:
			if !ok {
				return
			}
			r.record(ctx, ev)
		}
	}
}

func (r *Recorder) record(ctx context.Context, ev Event) {
	at := ev.At.In(r.cfg.Location)
	var err error
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		if ev.Action == ActionVisit {
			err = r.counter.RecordVisit(ctx, ev.StoreID, at)
		} else {
			err = r.counter.IncrementProduct(ctx, ev.StoreID, ev.ProductID, ev.Action, at)
		}
		if err == nil {
			return
		}
		if attempt == r.cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.Backoff * time.Duration(attempt)):
		}
	}
	r.lg.Warn("Analytics event dropped",
		zap.String("store_id", ev.StoreID),
		zap.String("product_id", ev.ProductID),
		zap.String("action", string(ev.Action)),
		zap.Int("attempts", r.cfg.Attempts),
		zap.Error(err),
	)
}
