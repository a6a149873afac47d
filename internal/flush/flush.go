// Package flush runs the background worker that drains the event queue into
// delivery attempts.
package flush

import (
	"context"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/watchllm/watchllm-go/internal/queue"
)

// maxDrain bounds a single delivery attempt's payload; any remainder stays
// queued for the next tick.
const maxDrain = 100

// Sender delivers one batch. Implemented by transport.Sender.
type Sender interface {
	SendBatch(ctx context.Context, events []map[string]any) error
}

// Scheduler polls the queue on a fixed tick and flushes when either the
// batch size is reached or the flush interval has elapsed with events
// pending. A failed scheduled flush is logged and the batch dropped; the
// next tick starts fresh.
type Scheduler struct {
	q         *queue.Queue
	sender    Sender
	batchSize int
	interval  time.Duration
	tick      time.Duration

	mu        sync.Mutex
	lastFlush time.Time

	done chan struct{}
}

// New creates a Scheduler. tick is the poll period; zero means one second.
func New(q *queue.Queue, sender Sender, batchSize int, interval, tick time.Duration) *Scheduler {
	if tick == 0 {
		tick = time.Second
	}
	return &Scheduler{
		q:         q,
		sender:    sender,
		batchSize: batchSize,
		interval:  interval,
		tick:      tick,
		lastFlush: time.Now(),
		done:      make(chan struct{}),
	}
}

// Run polls until ctx is cancelled, then performs one final best-effort
// flush so already-queued events are not lost on shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	log := clog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			s.finalFlush(log)
			return
		case <-ticker.C:
			if s.shouldFlush() {
				s.flushOnce(ctx, log)
			}
		}
	}
}

// Done is closed once Run has stopped, after the final flush.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) shouldFlush() bool {
	n := s.q.Len()
	if n == 0 {
		return false
	}
	if n >= s.batchSize {
		return true
	}
	s.mu.Lock()
	due := time.Since(s.lastFlush) >= s.interval
	s.mu.Unlock()
	return due
}

func (s *Scheduler) flushOnce(ctx context.Context, log *clog.Logger) {
	batch := s.q.DrainUpTo(maxDrain)
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	s.lastFlush = time.Now()
	s.mu.Unlock()

	if err := s.sender.SendBatch(ctx, batch); err != nil {
		log.Warn("scheduled flush failed, dropping batch", "events", len(batch), "error", err)
	}
}

// finalFlush drains everything left, swallowing failures so shutdown cannot
// hang on a dead collector. Uses a fresh context: the run context is already
// cancelled.
func (s *Scheduler) finalFlush(log *clog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		batch := s.q.DrainUpTo(maxDrain)
		if len(batch) == 0 {
			return
		}
		if err := s.sender.SendBatch(ctx, batch); err != nil {
			log.Warn("final flush failed, dropping batch", "events", len(batch), "error", err)
			return
		}
	}
}
