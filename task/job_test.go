package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJobLifecycle(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	release := make(chan struct{})
	job := Spawn(pool, "png", func() error {
		<-release
		return nil
	})

	if job.Done() {
		t.Fatal("job finished before it was released")
	}
	if job.Err() != nil {
		t.Error("Err should be nil while running")
	}
	if job.Kind != "png" || job.ID.String() == "" {
		t.Errorf("job = %v", job)
	}

	close(release)
	if err := job.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !job.Done() {
		t.Error("Done should be true after Wait")
	}
}

func TestJobError(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	errBoom := errors.New("boom")
	job := Spawn(pool, "gif", func() error { return errBoom })
	if err := job.Wait(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("Wait err = %v, want boom", err)
	}
	if !errors.Is(job.Err(), errBoom) {
		t.Errorf("Err() = %v, want boom", job.Err())
	}
}

func TestJobPanic(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	job := Spawn(pool, "gif", func() error { panic("bad frame") })
	err := job.Wait(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad frame") {
		t.Errorf("Wait err = %v, want panic error", err)
	}

	// The worker survives the panic.
	if err := Spawn(pool, "png", func() error { return nil }).Wait(context.Background()); err != nil {
		t.Errorf("next job: %v", err)
	}
}

func TestJobWaitContext(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	release := make(chan struct{})
	defer close(release)
	job := Spawn(pool, "png", func() error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := job.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait err = %v, want DeadlineExceeded", err)
	}
}

func TestJobClosedPool(t *testing.T) {
	pool := NewPool(1)
	pool.Close()

	ran := false
	job := Spawn(pool, "png", func() error {
		ran = true
		return nil
	})
	if !job.Done() || !errors.Is(job.Err(), ErrPoolClosed) {
		t.Errorf("Done=%v Err=%v, want finished with ErrPoolClosed", job.Done(), job.Err())
	}
	if ran {
		t.Error("job ran on a closed pool")
	}
}
