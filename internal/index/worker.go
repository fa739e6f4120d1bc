package index

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

// Worker defaults.
const (
	// DefaultQueueSize bounds pending index tasks. When the queue is full,
	// Enqueue drops the task and reports it; vault writes never block on
	// indexing.
	DefaultQueueSize = 256

	// DefaultWorkerCount is the number of concurrent push goroutines.
	DefaultWorkerCount = 2

	// DefaultMaxAttempts bounds retries per task, initial attempt included.
	DefaultMaxAttempts = 3

	// pushesPerSecond paces pushes (and retries) against the remote
	// service so a burst of saves cannot hammer it.
	pushesPerSecond = 5
)

// Task is one asynchronous index push: ensure the workspace exists, then
// push the document under the chosen policy.
type Task struct {
	WorkspaceSlug string
	DisplayName   string
	Document      vault.Document
	FullEmbed     bool
}

// Worker executes index pushes in the background. It replaces untracked
// fire-and-forget calls with an explicit queue: failures are logged and
// retried with pacing, and Close drains the queue deterministically.
//
// The vault is the source of truth; a task that exhausts its retries is
// logged and dropped, leaving the index as a stale-but-rebuildable view.
type Worker struct {
	gateway *Gateway
	logger  log.Logger

	queue       chan Task
	limiter     *rate.Limiter
	maxAttempts int

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWorker creates a worker over the gateway. Call Start before Enqueue.
func NewWorker(gateway *Gateway, logger log.Logger) *Worker {
	return &Worker{
		gateway:     gateway,
		logger:      logger,
		queue:       make(chan Task, DefaultQueueSize),
		limiter:     rate.NewLimiter(rate.Limit(pushesPerSecond), pushesPerSecond),
		maxAttempts: DefaultMaxAttempts,
		done:        make(chan struct{}),
	}
}

// Start launches the worker goroutines. ctx cancellation stops processing;
// Close waits for in-flight tasks either way.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		for range DefaultWorkerCount {
			w.wg.Add(1)
			go w.run(ctx)
		}
	})
}

// Enqueue hands a task to the background queue without blocking.
// Returns false when the queue is full or the worker is closed; the caller
// may log that as a soft warning but must treat the primary save as
// complete regardless.
func (w *Worker) Enqueue(task Task) bool {
	select {
	case <-w.done:
		return false
	default:
	}

	select {
	case w.queue <- task:
		return true
	default:
		w.logger.Warn("index queue full, dropping task",
			"workspace", task.WorkspaceSlug,
			"document", task.Document.Ref.Path())
		return false
	}
}

// Close stops accepting tasks, drains the queue, and waits for workers.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		close(w.queue)
	})
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for task := range w.queue {
		select {
		case <-ctx.Done():
			w.logger.Warn("index worker stopping, task dropped",
				"workspace", task.WorkspaceSlug,
				"document", task.Document.Ref.Path())
			continue
		default:
		}
		w.process(ctx, task)
	}
}

// process runs one task with bounded retries. Errors never propagate to
// the caller that enqueued the task; this is the weak-consistency boundary.
func (w *Worker) process(ctx context.Context, task Task) {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}

		if lastErr = w.attempt(ctx, task); lastErr == nil {
			return
		}

		w.logger.Warn("index push attempt failed",
			"workspace", task.WorkspaceSlug,
			"document", task.Document.Ref.Path(),
			"attempt", attempt,
			"error", lastErr)
	}

	w.logger.Error("index push abandoned after retries",
		"workspace", task.WorkspaceSlug,
		"document", task.Document.Ref.Path(),
		"attempts", w.maxAttempts,
		"error", lastErr)
}

func (w *Worker) attempt(ctx context.Context, task Task) error {
	if _, err := w.gateway.EnsureWorkspace(ctx, task.WorkspaceSlug, task.DisplayName); err != nil {
		return err
	}

	var err error
	if task.FullEmbed {
		_, err = w.gateway.PushFull(ctx, task.WorkspaceSlug, &task.Document)
	} else {
		_, err = w.gateway.PushIndexOnly(ctx, task.WorkspaceSlug, &task.Document)
	}
	return err
}
