package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is a handle to one asynchronous encode-and-write task.
//
// The job owns everything its function captured. Nothing cancels a job once
// spawned; Done and Err report its outcome when it finishes.
type Job struct {
	ID      uuid.UUID
	Kind    string
	Started time.Time

	done chan struct{}
	err  error
}

// Spawn runs fn on pool and returns its handle. If the pool is closed the
// job finishes immediately with ErrPoolClosed. A panic in fn finishes the
// job with an error instead of killing the worker.
func Spawn(pool *Pool, kind string, fn func() error) *Job {
	j := &Job{
		ID:      uuid.New(),
		Kind:    kind,
		Started: time.Now(),
		done:    make(chan struct{}),
	}
	if !pool.Submit(j.run(fn)) {
		j.finish(ErrPoolClosed)
	}
	return j
}

func (j *Job) run(fn func() error) func() {
	return func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task: %s job %s panicked: %v", j.Kind, j.ID, r)
			}
			j.finish(err)
		}()
		err = fn()
	}
}

func (j *Job) finish(err error) {
	j.err = err
	close(j.done)
}

// Done reports whether the job has finished. It never blocks.
func (j *Job) Done() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the job's error once it has finished, and nil before.
func (j *Job) Err() error {
	if !j.Done() {
		return nil
	}
	return j.err
}

// String returns the kind and ID of the job.
func (j *Job) String() string {
	return j.Kind + "/" + j.ID.String()
}
