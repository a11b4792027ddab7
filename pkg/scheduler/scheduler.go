package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateJob indicates a second Schedule call for an id that is
// still pending. Under correct lazy-scheduling discipline this means a
// double-schedule bug; callers must surface it, never swallow it.
var ErrDuplicateJob = errors.New("scheduler: duplicate job id")

// JobFunc is the action fired when a job comes due. An error marks the
// job fired-but-failed; it is logged, never retried, and never affects
// other jobs.
type JobFunc func(ctx context.Context) error

type job struct {
	id     string
	fireAt time.Time
	seq    uint64
	fn     JobFunc
	index  int
}

// jobHeap orders jobs by (fireAt, seq) so that equal fire times fire in
// scheduling order.
type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	j := x.(*job)
	j.index = len(*h)
	*h = append(*h, j)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}

// Scheduler maintains a time-ordered set of pending one-shot jobs and
// fires each exactly once in a single dispatch timeline.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job
	heap jobHeap
	seq  uint64

	id     string
	wake   chan struct{}
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler. One instance per process: ad-hoc instances
// created per triggering event orphan their timers and double-fire
// after overlapping schedules.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:   make(map[string]*job),
		id:     uuid.New().String(),
		wake:   make(chan struct{}, 1),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the scheduler instance id, for logging.
func (s *Scheduler) ID() string { return s.id }

// Schedule registers a one-shot job. Fails with ErrDuplicateJob when a
// job with the same id is already pending. A fire time in the past is
// legal: the job fires on the next loop pass (used when rehydrating
// past-due work after a restart).
func (s *Scheduler) Schedule(id string, fireAt time.Time, fn JobFunc) error {
	if id == "" {
		return fmt.Errorf("scheduler: empty job id")
	}
	if fn == nil {
		return fmt.Errorf("scheduler: nil job func for %q", id)
	}

	s.mu.Lock()
	if _, ok := s.jobs[id]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}
	s.seq++
	j := &job{id: id, fireAt: fireAt, seq: s.seq, fn: fn}
	s.jobs[id] = j
	heap.Push(&s.heap, j)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Cancel removes a pending job. Absent ids are a no-op, not an error:
// completion paths cancel unconditionally, and cancellation racing an
// in-flight firing must be tolerated (the firing proceeds).
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
		if j.index >= 0 {
			heap.Remove(&s.heap, j.index)
		}
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
}

// Pending reports whether a job with the given id is still scheduled.
func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// Len returns the number of pending jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

// NextFireAt returns the earliest pending fire time, or false when the
// schedule is empty.
func (s *Scheduler) NextFireAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return time.Time{}, false
	}
	return s.heap[0].fireAt, true
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// popDue removes and returns the earliest job when it is due, nil
// otherwise. The second return is the wait until the next job.
func (s *Scheduler) popDue() (*job, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return nil, -1
	}
	next := s.heap[0]
	now := s.now()
	if next.fireAt.After(now) {
		return nil, next.fireAt.Sub(now)
	}
	heap.Pop(&s.heap)
	delete(s.jobs, next.id)
	return next, 0
}

// fire runs one job, recovering panics. Errors mark the job
// fired-but-failed and are logged; the schedule is unaffected.
func (s *Scheduler) fire(ctx context.Context, j *job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job_id", j.id, "panic", r)
		}
	}()
	if err := j.fn(ctx); err != nil {
		s.logger.Error("job failed", "job_id", j.id, "error", err)
	}
}

// Tick fires every currently due job once, in (fireAt, seq) order, and
// returns how many fired. The running loop uses it internally; tests
// and rehydration catch-up may call it directly.
func (s *Scheduler) Tick(ctx context.Context) int {
	fired := 0
	for {
		j, _ := s.popDue()
		if j == nil {
			return fired
		}
		s.fire(ctx, j)
		fired++
		if ctx.Err() != nil {
			return fired
		}
	}
}

// Start runs the fire loop. Blocks until the context is cancelled.
// Jobs fire sequentially in non-decreasing fireAt order; a failed fire
// does not stop the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "scheduler_id", s.id)
	for {
		j, wait := s.popDue()
		if j != nil {
			s.fire(ctx, j)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		if wait < 0 {
			// Nothing pending: sleep until a schedule or cancel.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
