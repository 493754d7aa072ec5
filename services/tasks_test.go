package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go-storefront/logger"

	"github.com/stretchr/testify/assert"
)

func TestTaskRunnerIsolatesFailures(t *testing.T) {
	runner := NewTaskRunner(logger.Discard(), time.Second)
	var done atomic.Int32

	runner.Go(context.Background(),
		Task{Name: "panics", Run: func(context.Context) error { panic("kaboom") }},
		Task{Name: "fails", Run: func(context.Context) error { return errBoom }},
		Task{Name: "ok", Run: func(context.Context) error { done.Add(1); return nil }},
	)
	runner.Wait()

	assert.Equal(t, int32(1), done.Load())
}

func TestTaskRunnerOutlivesRequestContext(t *testing.T) {
	runner := NewTaskRunner(logger.Discard(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	var ctxErr atomic.Value
	started := make(chan struct{})
	runner.Go(ctx, Task{Name: "slow", Run: func(ctx context.Context) error {
		<-started
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		return nil
	}})
	cancel()
	close(started)
	runner.Wait()

	assert.Nil(t, ctxErr.Load())
}

func TestTaskRunnerTimesOut(t *testing.T) {
	runner := NewTaskRunner(logger.Discard(), 20*time.Millisecond)
	var deadline atomic.Bool

	runner.Go(context.Background(), Task{Name: "stuck", Run: func(ctx context.Context) error {
		<-ctx.Done()
		deadline.Store(true)
		return ctx.Err()
	}})
	runner.Wait()

	assert.True(t, deadline.Load())
}
