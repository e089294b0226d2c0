package inline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/platform/retry"
	"github.com/Apurer/go-entity-processors/internal/scheduling/ports"
)

var _ ports.Scheduler = (*Scheduler)(nil)

var ErrClosed = errors.New("scheduler closed")

// Scheduler fires deferred transitions from in-process timers. Pending work is lost on restart.
type Scheduler struct {
	store   entityports.Service
	retrier *retry.Retrier
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetry overrides the retry policy used when the continuation fails.
func WithRetry(cfg retry.Config) Option {
	return func(s *Scheduler) {
		cfg.ShouldRetry = shouldRetry
		s.retrier = retry.New(cfg)
	}
}

// NewScheduler wires the store that receives the deferred transitions.
func NewScheduler(store entityports.Service, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := retry.Config{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  time.Minute,
		Randomization:   0.5,
		Multiplier:      2,
		ShouldRetry:     shouldRetry,
	}
	s := &Scheduler{
		store:   store,
		retrier: retry.New(cfg),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:     ctx,
		cancel:  cancel,
		pending: map[string]*time.Timer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ScheduleTransition queues the transition and returns immediately.
func (s *Scheduler) ScheduleTransition(ctx context.Context, task ports.DeferredTransition) error {
	if err := task.Validate(); err != nil {
		return err
	}
	key := task.DedupKey()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, exists := s.pending[key]; exists {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "deferred transition already pending", slog.String("key", key))
		return nil
	}
	s.wg.Add(1)
	s.pending[key] = time.AfterFunc(task.Delay, func() { s.fire(key, task) })
	s.logger.LogAttrs(ctx, slog.LevelInfo, "deferred transition scheduled",
		slog.String("key", key),
		slog.String("entity_id", task.EntityID.String()),
		slog.String("transition", task.Transition),
		slog.Duration("delay", task.Delay))
	return nil
}

func (s *Scheduler) fire(key string, task ports.DeferredTransition) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
	}()

	err := s.retrier.ExecuteWithContext(s.ctx, func(ctx context.Context) error {
		return s.store.Update(ctx, task.EntityID, nil, task.Transition)
	})
	if err != nil {
		s.logger.LogAttrs(s.ctx, slog.LevelError, "deferred transition failed",
			slog.String("key", key),
			slog.String("entity_id", task.EntityID.String()),
			slog.String("transition", task.Transition),
			slog.String("error", err.Error()))
		return
	}
	s.logger.LogAttrs(s.ctx, slog.LevelInfo, "deferred transition fired",
		slog.String("key", key),
		slog.String("entity_id", task.EntityID.String()),
		slog.String("transition", task.Transition))
}

// Pending lists the keys still waiting to fire, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.pending))
	for key := range s.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close cancels timers that have not fired and waits for running continuations.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	dropped := 0
	for key, timer := range s.pending {
		if timer.Stop() {
			delete(s.pending, key)
			s.wg.Done()
			dropped++
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	if dropped > 0 {
		s.logger.Warn("scheduler closed with pending transitions", slog.Int("dropped", dropped))
	}
	return nil
}

func shouldRetry(err error) bool {
	switch {
	case errors.Is(err, entityports.ErrNotFound), errors.Is(err, entityports.ErrInvalidTransition):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
