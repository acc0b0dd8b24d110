// Package tasks runs periodic maintenance jobs in the background.
package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job is a task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner executes registered jobs until stopped.
type Runner struct {
	logger  *zap.Logger
	jobs    []Job
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running atomic.Int32
	active  sync.Map // job name -> struct{} while executing
}

// New creates a task runner.
func New(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Register adds a job. Jobs without an interval are ignored.
func (r *Runner) Register(job Job) {
	if job.Interval <= 0 || job.Run == nil {
		r.logger.Warn("ignoring job without interval or body", zap.String("job", job.Name))
		return
	}
	r.jobs = append(r.jobs, job)
}

// Start runs every job once right away and then on its interval. Jobs stop
// when parent is cancelled or Stop is called.
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	r.logger.Info("background task runner started", zap.Int("job_count", len(r.jobs)))
}

// Stop cancels all jobs and waits for them until ctx is done. On timeout it
// logs the jobs still executing and returns ctx.Err().
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped")
		return nil
	case <-ctx.Done():
		var still []string
		r.active.Range(func(key, _ any) bool {
			still = append(still, key.(string))
			return true
		})
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", still),
			zap.Int32("running_count", r.running.Load()))
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.execute(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.execute(ctx, job)
		}
	}
}

func (r *Runner) execute(ctx context.Context, job Job) {
	r.running.Add(1)
	r.active.Store(job.Name, struct{}{})
	defer func() {
		r.running.Add(-1)
		r.active.Delete(job.Name)
	}()

	start := time.Now()
	err := job.Run(ctx)
	switch {
	case err == nil:
		r.logger.Debug("job completed", zap.String("job", job.Name), zap.Duration("duration", time.Since(start)))
	case ctx.Err() != nil:
		// Cancelled by shutdown.
		r.logger.Debug("job cancelled", zap.String("job", job.Name))
	default:
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
}

// RunOnce executes the named job immediately on the caller's goroutine.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return job.Run(ctx)
		}
	}
	return ErrUnknownJob
}
