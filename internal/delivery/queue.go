package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 250 * time.Millisecond
	defaultTimeout     = 5 * time.Second
)

// Item is one pending notification.
type Item struct {
	// ID identifies the item in logs.
	ID string
	// Content is the rendered message text.
	Content string
	// CandidateID is the identifier that produced the hit.
	CandidateID int64
	// EnqueuedAt is when the item entered the queue.
	EnqueuedAt time.Time
}

// NewItem creates an [Item] with a fresh ID.
func NewItem(candidateID int64, content string) Item {
	return Item{
		ID:          uuid.NewString(),
		Content:     content,
		CandidateID: candidateID,
		EnqueuedAt:  time.Now(),
	}
}

// Sink receives delivered content.
type Sink interface {
	Send(ctx context.Context, content string) error
}

// Recorder observes delivery outcomes.
type Recorder interface {
	Delivered(item Item, attempts int)
	Failed(item Item, attempt int, err error)
	Dropped(item Item, attempts int, err error)
}

type nopRecorder struct{}

func (nopRecorder) Delivered(Item, int)      {}
func (nopRecorder) Failed(Item, int, error)  {}
func (nopRecorder) Dropped(Item, int, error) {}

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the number of sends per item before it is dropped.
	MaxAttempts int
	// BaseBackoff scales the wait between attempts: after the n-th failure
	// the queue waits BaseBackoff * 2^n.
	BaseBackoff time.Duration
	// Timeout bounds each send.
	Timeout time.Duration
}

// DefaultConfig returns 5 attempts, 250ms base backoff and a 5s timeout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: defaultMaxAttempts,
		BaseBackoff: defaultBaseBackoff,
		Timeout:     defaultTimeout,
	}
}

// Queue is an unbounded FIFO of notifications drained by a single consumer.
//
// Any number of goroutines may Enqueue. Exactly one consumer goroutine,
// started by Start, sends items to the sink in order; a failed item is
// retried with exponential backoff before the next item is attempted.
type Queue struct {
	sink     Sink
	cfg      Config
	recorder Recorder
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	items     []Item
	busy      bool
	abandoned int

	signal chan struct{}
	idle   chan struct{}

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewQueue creates a [Queue]. Zero fields in cfg take their defaults.
// recorder may be nil.
func NewQueue(sink Sink, cfg Config, recorder Recorder, logger *slog.Logger) *Queue {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		sink:     sink,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		sleep:    sleepContext,
		signal:   make(chan struct{}, 1),
		idle:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Enqueue appends item to the tail of the queue and wakes the consumer.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	notify(q.signal)
}

// Len returns the number of items waiting, excluding one being sent.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Start launches the consumer goroutine. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		ctx, q.cancel = context.WithCancel(ctx)
		go q.consume(ctx)
	})
}

// Shutdown waits until the queue is empty and idle or ctx is done, then
// stops the consumer. It returns the number of items that were never
// delivered or dropped, including one interrupted mid-retry.
func (q *Queue) Shutdown(ctx context.Context) int {
	q.waitIdle(ctx)

	started := false
	q.startOnce.Do(func() {}) // prevent a later Start
	if q.cancel != nil {
		started = true
		q.cancel()
	}
	if started {
		<-q.done
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items) + q.abandoned
	if n > 0 {
		q.logger.Warn("delivery queue shut down with pending items", "abandoned", n)
	}
	return n
}

func (q *Queue) waitIdle(ctx context.Context) {
	for {
		q.mu.Lock()
		empty := len(q.items) == 0 && !q.busy
		q.mu.Unlock()
		if empty {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-q.idle:
		}
	}
}

func (q *Queue) consume(ctx context.Context) {
	defer close(q.done)

	for {
		item, ok := q.pop()
		if !ok {
			notify(q.idle)
			select {
			case <-ctx.Done():
				return
			case <-q.signal:
				continue
			}
		}

		q.deliver(ctx, item)

		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
	}
}

// pop removes the head item and marks the consumer busy.
func (q *Queue) pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		q.busy = false
		return Item{}, false
	}
	item := q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]
	q.busy = true
	return item, true
}

func (q *Queue) deliver(ctx context.Context, item Item) {
	var lastErr error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
		err := q.sink.Send(sendCtx, item.Content)
		cancel()

		if err == nil {
			q.logger.Info("delivered", "item", item.ID, "id", item.CandidateID, "attempt", attempt)
			q.recorder.Delivered(item, attempt)
			return
		}
		lastErr = err

		if ctx.Err() != nil {
			q.abandon(item)
			return
		}

		q.logger.Warn("delivery attempt failed", "item", item.ID, "id", item.CandidateID, "attempt", attempt, "error", err)
		q.recorder.Failed(item, attempt, err)

		if attempt == q.cfg.MaxAttempts {
			break
		}
		if err := q.sleep(ctx, q.Backoff(attempt)); err != nil {
			q.abandon(item)
			return
		}
	}

	q.logger.Error("delivery dropped", "item", item.ID, "id", item.CandidateID, "attempts", q.cfg.MaxAttempts, "error", lastErr)
	q.recorder.Dropped(item, q.cfg.MaxAttempts, lastErr)
}

func (q *Queue) abandon(item Item) {
	q.mu.Lock()
	q.abandoned++
	q.mu.Unlock()
	q.logger.Warn("delivery interrupted", "item", item.ID, "id", item.CandidateID)
}

// Backoff returns the wait after the n-th failed attempt (1-based).
func (q *Queue) Backoff(n int) time.Duration {
	return q.cfg.BaseBackoff << n
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

var errSleepInterrupted = errors.New("sleep interrupted")

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errSleepInterrupted
	case <-t.C:
		return nil
	}
}
