package jobs

import (
	"context"
	"log/slog"
	"sync"
)

const (
	JobNotify = "notify"
)

// Queue runs fire-and-forget work on a single background worker.
type Queue struct {
	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) error
}

func New(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{queue: make(chan job, size)}
}

func (q *Queue) Start(ctx context.Context) {
	go q.worker(ctx)
}

// Enqueue never blocks. A full queue drops the job with a warning.
func (q *Queue) Enqueue(jobType, key string, run func(context.Context) error) bool {
	q.wg.Add(1)
	select {
	case q.queue <- job{Type: jobType, Key: key, Run: run}:
		return true
	default:
		q.wg.Done()
		slog.Warn("job queue full", "jobType", jobType, "key", key)
		return false
	}
}

func (q *Queue) RunNow(ctx context.Context, jobType, key string, run func(context.Context) error) error {
	return q.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

// Wait blocks until every enqueued job has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case j := <-q.queue:
			if err := q.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "key", j.Key, "err", err)
			}
			q.wg.Done()
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case j := <-q.queue:
			slog.Warn("job dropped on shutdown", "jobType", j.Type, "key", j.Key)
			q.wg.Done()
		default:
			return
		}
	}
}

func (q *Queue) runJob(ctx context.Context, j job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("job panicked", "jobType", j.Type, "key", j.Key, "panic", rec)
		}
	}()
	return j.Run(ctx)
}
