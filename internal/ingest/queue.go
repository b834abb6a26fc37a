package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vinochelo/extractor/internal/common"
)

// Job asks the queue to ingest one file for OwnerID.
type Job struct {
	OwnerID string
	Path    string
}

// PathIngestor is the per-file work a Queue runs.
type PathIngestor interface {
	IngestPath(ctx context.Context, ownerID, path string) (FileResult, error)
}

// Queue runs jobs on a fixed worker pool.
type Queue struct {
	ingestor PathIngestor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.RWMutex
	closed  bool
	results chan FileResult
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResults delivers every FileResult on ch. Sends never block; results
// are dropped when ch is full.
func WithResults(ch chan FileResult) Option {
	return func(q *Queue) { q.results = ch }
}

func NewQueue(ingestor PathIngestor, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		ingestor: ingestor,
		logger:   common.LoggerOrDefault(logger),
		workers:  2,
		timeout:  2 * time.Minute,
		ch:       make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("ingest.worker.start", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("ingest.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	res, err := q.ingestor.IngestPath(ctx, job.OwnerID, job.Path)
	if err != nil {
		q.logger.Debug("ingest.job.error", "worker_id", workerID, "path", job.Path, "error", err)
	}
	if q.results != nil {
		select {
		case q.results <- res:
		default:
		}
	}
}

// Enqueue blocks while the queue is full, until ctx ends. Jobs offered
// after Shutdown are rejected.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return common.NewAppError(common.CodeInternal, "ingest queue is shutting down", nil)
	}
	select {
	case q.ch <- job:
		q.logger.Debug("ingest.job.queued", "owner", job.OwnerID, "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("ingest.queue.full", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish, or
// for ctx to end.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("ingest.queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("ingest.queue.drained")
	}
}
