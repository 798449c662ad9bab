package task

import "sync"

// Pollable is anything whose completion can be checked without blocking.
type Pollable interface {
	Done() bool
}

// Reaper tracks outstanding jobs of one kind and releases them once they
// finish. Reap is the only way a tracked job is released, so a job that
// never finishes stays tracked.
//
// Reaper is safe for concurrent use.
type Reaper[T Pollable] struct {
	mu   sync.Mutex
	jobs []T
}

// Track adds job to the outstanding set.
func (r *Reaper[T]) Track(job T) {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
}

// Reap polls every outstanding job once and releases the finished ones.
// It returns the number released.
func (r *Reaper[T]) Reap() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.jobs[:0]
	for _, job := range r.jobs {
		if !job.Done() {
			kept = append(kept, job)
		}
	}
	released := len(r.jobs) - len(kept)
	clear(r.jobs[len(kept):])
	r.jobs = kept
	return released
}

// Pending returns the number of tracked jobs.
func (r *Reaper[T]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Outstanding returns a copy of the tracked jobs in tracking order.
func (r *Reaper[T]) Outstanding() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.jobs))
	copy(out, r.jobs)
	return out
}
