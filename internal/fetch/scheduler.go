package fetch

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/chuckbuilds/ledmatrix/internal/cache"
	"github.com/chuckbuilds/ledmatrix/internal/httpclient"
	"github.com/chuckbuilds/ledmatrix/internal/logger"
	"github.com/chuckbuilds/ledmatrix/internal/telemetry"
)

// Submission errors.
var (
	ErrMissingCacheKey = errors.New("fetch: request has no cache key")
	ErrMissingURL      = errors.New("fetch: request has no URL")
)

// Config holds the scheduler tuning knobs.
type Config struct {
	// MaxWorkers is the number of concurrent fetch workers.
	MaxWorkers int

	// DefaultTimeout bounds a single attempt when the request does not
	// set its own.
	DefaultTimeout time.Duration

	// DefaultMaxRetries is the number of retries after the first
	// attempt for requests that do not set their own. Negative means
	// the built-in default; zero disables retries.
	DefaultMaxRetries int

	// DefaultTTL is the cache freshness window when the request does
	// not set its own.
	DefaultTTL time.Duration

	// BackoffInitial is the first retry delay; doubled per attempt with
	// jitter up to BackoffMax.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 10 * time.Second
	}
	if c.DefaultMaxRetries < 0 {
		c.DefaultMaxRetries = 3
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = time.Minute
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = 500 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	return c
}

// flight tracks the single in-flight fetch for a cache key and everyone
// waiting on it. Submissions for a key with an existing flight coalesce
// onto it instead of duplicating network work.
type flight struct {
	req     *Request
	waiters []waiter
}

type waiter struct {
	handle     *Handle
	onComplete func(Result)
}

// Scheduler is the background fetch scheduler. Submit queues work;
// Lookup reads whatever the cache currently holds and never blocks.
type Scheduler struct {
	cfg     Config
	cache   *cache.Cache
	client  httpclient.Client
	metrics *telemetry.FetchMetrics

	mu       sync.Mutex
	queue    requestQueue
	seq      uint64
	inflight map[string]*flight
	running  bool
	stopCh   chan struct{}

	// wake signals workers that the queue may be non-empty.
	wake chan struct{}
	wg   sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClient overrides the HTTP transport (used in tests).
func WithClient(client httpclient.Client) SchedulerOption {
	return func(s *Scheduler) {
		s.client = client
	}
}

// WithMetrics attaches fetch metrics instruments.
func WithMetrics(m *telemetry.FetchMetrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a scheduler writing results into c.
func NewScheduler(cfg Config, c *cache.Cache, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		cfg:      cfg.withDefaults(),
		cache:    c,
		inflight: make(map[string]*flight),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = httpclient.NewDefaultClient(s.cfg.DefaultTimeout)
	}
	return s
}

// Start launches the worker pool. Workers run until Stop is called or
// ctx is cancelled. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	logger.Infof("fetch: starting %d workers", s.cfg.MaxWorkers)
	for i := 0; i < s.cfg.MaxWorkers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker(ctx, stopCh)
		}()
	}
}

// Stop shuts the worker pool down and waits for in-flight fetches to
// finish. Queued requests that never ran are dropped with an error
// delivered to their waiters.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	// Fail whatever never reached a worker.
	s.mu.Lock()
	var orphaned []*flight
	for s.queue.Len() > 0 {
		item := heap.Pop(&s.queue).(*queued)
		if fl, ok := s.inflight[item.req.CacheKey]; ok {
			delete(s.inflight, item.req.CacheKey)
			orphaned = append(orphaned, fl)
		}
	}
	s.mu.Unlock()

	for _, fl := range orphaned {
		s.metrics.AddQueueDepth(context.Background(), -1)
		s.deliver(fl, Result{
			Key: fl.req.CacheKey,
			Err: errors.New("fetch: scheduler stopped before request ran"),
		})
	}
}

// Submit queues a fetch request and returns a handle to its terminal
// result. If a fetch for the same cache key is already queued or in
// flight, the submission is coalesced onto it: no additional network
// work happens and the handle observes the shared result.
func (s *Scheduler) Submit(req Request) (*Handle, error) {
	if req.CacheKey == "" {
		return nil, ErrMissingCacheKey
	}
	if req.URL == "" {
		return nil, ErrMissingURL
	}

	req.ID = uuid.New()
	if req.Priority == 0 {
		req.Priority = PriorityDefault
	}
	if req.Priority < PriorityHighest {
		req.Priority = PriorityHighest
	}
	if req.Priority > PriorityLowest {
		req.Priority = PriorityLowest
	}
	if req.Timeout <= 0 {
		req.Timeout = s.cfg.DefaultTimeout
	}
	switch {
	case req.MaxRetries == 0:
		req.MaxRetries = s.cfg.DefaultMaxRetries
	case req.MaxRetries < 0:
		// NoRetries or anything negative: single attempt only.
		req.MaxRetries = 0
	}
	if req.TTL <= 0 {
		req.TTL = s.cfg.DefaultTTL
	}

	handle := &Handle{
		ID:       req.ID,
		CacheKey: req.CacheKey,
		done:     make(chan Result, 1),
	}
	w := waiter{handle: handle, onComplete: req.OnComplete}

	s.mu.Lock()
	if fl, ok := s.inflight[req.CacheKey]; ok {
		fl.waiters = append(fl.waiters, w)
		s.mu.Unlock()
		s.metrics.RecordCoalesced(context.Background(), req.CacheKey)
		logger.Debugf("fetch: coalesced submission for %q", req.CacheKey)
		return handle, nil
	}

	fl := &flight{req: &req, waiters: []waiter{w}}
	s.inflight[req.CacheKey] = fl
	s.seq++
	heap.Push(&s.queue, &queued{req: &req, seq: s.seq})
	s.mu.Unlock()

	s.metrics.AddQueueDepth(context.Background(), 1)
	s.signal()
	return handle, nil
}

// Lookup reads the cached value for key. It never blocks on network I/O
// and is safe to call from the render loop every tick.
func (s *Scheduler) Lookup(key string) (value []byte, fresh bool, ok bool) {
	return s.cache.Get(key)
}

// signal wakes one waiting worker without blocking.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pop removes the highest-priority request, blocking until one is
// available or shutdown begins. Returns nil on shutdown, even when the
// queue is non-empty: Stop fails the backlog rather than draining it.
func (s *Scheduler) pop(ctx context.Context, stopCh <-chan struct{}) *Request {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		default:
		}

		s.mu.Lock()
		if s.queue.Len() > 0 {
			item := heap.Pop(&s.queue).(*queued)
			remaining := s.queue.Len()
			s.mu.Unlock()
			if remaining > 0 {
				// Another item is still queued; make sure a second
				// worker wakes for it.
				s.signal()
			}
			return item.req
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		case <-s.wake:
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, stopCh <-chan struct{}) {
	for {
		req := s.pop(ctx, stopCh)
		if req == nil {
			return
		}
		s.metrics.AddQueueDepth(ctx, -1)

		result := s.execute(ctx, req)

		s.mu.Lock()
		fl := s.inflight[req.CacheKey]
		delete(s.inflight, req.CacheKey)
		s.mu.Unlock()

		if fl != nil {
			s.deliver(fl, result)
		}
	}
}

// execute runs the request to its terminal state: success written to the
// cache, or retries exhausted with the previous cache entry untouched.
func (s *Scheduler) execute(ctx context.Context, req *Request) Result {
	started := time.Now()
	attempts := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.BackoffInitial
	bo.MaxInterval = s.cfg.BackoffMax

	operation := func() ([]byte, error) {
		attempts++
		s.metrics.RecordAttempt(ctx, req.CacheKey)

		attemptCtx, cancel := context.WithTimeout(ctx, req.Timeout)
		defer cancel()

		body, err := s.client.Get(attemptCtx, req.URL, req.Headers, req.Params)
		if err != nil {
			return nil, err
		}
		if req.Validate != nil {
			if err := req.Validate(body); err != nil {
				return nil, fmt.Errorf("payload validation failed: %w", err)
			}
		}
		return body, nil
	}

	value, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(req.MaxRetries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debugf("fetch: %q attempt failed, retrying in %s: %v", req.CacheKey, next, err)
		}),
	)

	elapsed := time.Since(started)
	if err != nil {
		logger.Warnf("fetch: %q failed after %d attempts: %v", req.CacheKey, attempts, err)
		s.metrics.RecordResult(ctx, req.CacheKey, telemetry.OutcomeFailure, elapsed.Seconds())
		return Result{Key: req.CacheKey, Err: err, Attempts: attempts, Elapsed: elapsed}
	}

	s.cache.Set(req.CacheKey, value, req.TTL)
	logger.Debugf("fetch: %q cached %d bytes (ttl %s)", req.CacheKey, len(value), req.TTL)
	s.metrics.RecordResult(ctx, req.CacheKey, telemetry.OutcomeSuccess, elapsed.Seconds())
	return Result{Key: req.CacheKey, Value: value, Attempts: attempts, Elapsed: elapsed}
}

// deliver fans the terminal result out to every coalesced waiter.
// Callbacks run on the worker goroutine.
func (s *Scheduler) deliver(fl *flight, result Result) {
	for _, w := range fl.waiters {
		w.handle.done <- result
		if w.onComplete != nil {
			w.onComplete(result)
		}
	}
}
