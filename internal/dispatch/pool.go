package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/baoagent/voice-gateway/internal/shared"
)

type Kind string

const (
	KindTranscribe Kind = "transcribe"
	KindGenerate   Kind = "generate"
	KindSynthesize Kind = "synthesize"
)

// Task is one blocking call to an external capability. Ctx is the owning
// session's context: the pool checks it before starting and discards the
// result if it is cancelled by the time the call returns.
type Task struct {
	SessionID string
	Seq       uint64
	Kind      Kind
	Ctx       context.Context
	Run       func(ctx context.Context) (any, error)
}

type Result struct {
	Value any
	Err   error
}

type Config struct {
	Workers     int
	QueueDepth  int
	TaskTimeout time.Duration
}

const (
	DefaultWorkers     = 4
	DefaultQueueDepth  = 64
	DefaultTaskTimeout = 30 * time.Second
)

type queued struct {
	task Task
	out  chan Result
}

// Pool runs capability calls on a fixed set of workers so connection I/O
// loops never block on an external service. The pool gives no per-connection
// ordering guarantee by itself; sessions serialize their own stages.
type Pool struct {
	tasks   chan queued
	timeout time.Duration
	log     *slog.Logger

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

func NewPool(cfg Config, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}

	p := &Pool{
		tasks:   make(chan queued, cfg.QueueDepth),
		timeout: cfg.TaskTimeout,
		log:     log.With("component", "dispatch_pool"),
		done:    make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit queues a task and returns the future carrying its single result.
// A full queue fails fast with ErrOverloaded; the caller applies its own
// drop policy rather than blocking the connection loop here.
func (p *Pool) Submit(task Task) (<-chan Result, error) {
	if task.Ctx == nil {
		task.Ctx = context.Background()
	}

	out := make(chan Result, 1)
	select {
	case <-p.done:
		return nil, shared.ErrTransportClosed
	case p.tasks <- queued{task: task, out: out}:
		return out, nil
	default:
		return nil, shared.ErrOverloaded
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case q := <-p.tasks:
			p.execute(q)
		}
	}
}

func (p *Pool) execute(q queued) {
	task := q.task

	// Cancelled while queued: never start the capability call.
	if err := task.Ctx.Err(); err != nil {
		q.out <- Result{Err: err}
		return
	}

	ctx, cancel := context.WithTimeout(task.Ctx, p.timeout)
	value, err := task.Run(ctx)
	cancel()

	// The session went away while the call was blocked. The capability call
	// itself may not be interruptible, so at minimum the result is discarded
	// here instead of delivered downstream.
	if cErr := task.Ctx.Err(); cErr != nil {
		p.log.Debug("discarding result for cancelled session",
			"session_id", task.SessionID, "kind", task.Kind, "seq", task.Seq)
		q.out <- Result{Err: cErr}
		return
	}

	if err != nil {
		p.log.Warn("capability call failed",
			"session_id", task.SessionID, "kind", task.Kind, "seq", task.Seq, "error", err)
	}
	q.out <- Result{Value: value, Err: err}
}

// Close stops the workers. Queued tasks that have not started are dropped;
// their futures never resolve, so callers must also watch their own context.
func (p *Pool) Close() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
