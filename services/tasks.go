package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-storefront/logger"
)

// Task is a named best-effort side effect run after a primary write has committed
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskRunner runs post-commit tasks in the background. Each task gets its own
// goroutine, timeout and recover, so one failing task never affects another
// or the request that scheduled it.
type TaskRunner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	log     *logger.Logger
}

func NewTaskRunner(log *logger.Logger, timeout time.Duration) *TaskRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TaskRunner{timeout: timeout, log: log.WithComponent("tasks")}
}

// Go schedules tasks. ctx values (request id) are kept; its cancellation is not.
func (r *TaskRunner) Go(ctx context.Context, tasks ...Task) {
	base := context.WithoutCancel(ctx)
	for _, task := range tasks {
		r.wg.Add(1)
		go r.run(base, task)
	}
}

func (r *TaskRunner) run(base context.Context, task Task) {
	defer r.wg.Done()
	log := logger.FromContext(base, r.log).With("task", task.Name)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Post-commit task panicked", "panic", fmt.Sprint(rec))
		}
	}()

	ctx, cancel := context.WithTimeout(base, r.timeout)
	defer cancel()

	if err := task.Run(ctx); err != nil {
		log.Warn("Post-commit task failed", "error", err)
		return
	}
	log.Debug("Post-commit task done")
}

// Wait blocks until every scheduled task has finished
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}
