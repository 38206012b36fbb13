package render

import (
	"context"
	"errors"
	"time"
)

// TaskState tracks an asynchronous vendor task through its lifecycle.
type TaskState string

const (
	// TaskSubmitted means the vendor acknowledged the request and returned
	// a task handle.
	TaskSubmitted TaskState = "submitted"
	// TaskPending means the task is queued or running remotely.
	TaskPending TaskState = "pending"
	// TaskReady means the output can be fetched.
	TaskReady TaskState = "ready"
	// TaskFailed means the vendor reported a terminal error.
	TaskFailed TaskState = "failed"
	// TaskTimedOut means the local deadline expired before the task
	// finished.
	TaskTimedOut TaskState = "timed_out"
)

var (
	ErrTaskFailed   = errors.New("render: remote task failed")
	ErrTaskTimedOut = errors.New("render: remote task timed out")
)

// PollConfig bounds how long and how often an async task is checked.
type PollConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 5 * time.Minute
	}
	return c
}

// awaitTask drives a submitted task to a terminal state. check is invoked
// once per interval and reports the current remote state; awaitTask returns
// nil once the task is ready, ErrTaskFailed on vendor failure, and
// ErrTaskTimedOut when MaxWait elapses first. Context cancellation wins over
// all of these.
func awaitTask(ctx context.Context, cfg PollConfig, check func(context.Context) (TaskState, error)) error {
	cfg = cfg.withDefaults()
	deadline := time.Now().Add(cfg.MaxWait)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		state, err := check(ctx)
		if err != nil {
			return err
		}
		switch state {
		case TaskReady:
			return nil
		case TaskFailed:
			return ErrTaskFailed
		case TaskSubmitted, TaskPending:
		default:
			return ErrTaskFailed
		}

		if time.Now().After(deadline) {
			return ErrTaskTimedOut
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
