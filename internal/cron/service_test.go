package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLock struct {
	locked   bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	f.acquires++
	return !f.locked, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	return nil
}

type recordedJob struct {
	name string
	runs int
	err  error
}

func (j *recordedJob) Name() string { return j.name }

func (j *recordedJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestRunCycleExecutesJobsInOrder(t *testing.T) {
	first := &recordedJob{name: "first"}
	second := &recordedJob{name: "second", err: errors.New("boom")}
	third := &recordedJob{name: "third"}
	lock := &fakeLock{}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second, third),
		Lock:     lock,
		Interval: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if first.runs != 1 || second.runs != 1 || third.runs != 1 {
		t.Fatalf("expected each job to run once, got %d/%d/%d", first.runs, second.runs, third.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock release, got %d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &recordedJob{name: "only"}
	lock := &fakeLock{locked: true}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no job runs while lock held, got %d", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("lock must not be released by a replica that never held it")
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error for missing lock")
	}
}
