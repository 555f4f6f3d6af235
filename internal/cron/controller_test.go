package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/sprintlabs/orchestrator/internal/config"
)

type fakeScheduler struct {
	existsFn func(ctx context.Context, name string) (bool, error)
	createFn func(ctx context.Context, manifest []byte) error
	deleteFn func(ctx context.Context, name string) error

	created []byte
	deleted string
}

func (f *fakeScheduler) Exists(ctx context.Context, name string) (bool, error) {
	return f.existsFn(ctx, name)
}

func (f *fakeScheduler) Create(ctx context.Context, manifest []byte) error {
	f.created = manifest
	if f.createFn != nil {
		return f.createFn(ctx, manifest)
	}
	return nil
}

func (f *fakeScheduler) Delete(ctx context.Context, name string) error {
	f.deleted = name
	if f.deleteFn != nil {
		return f.deleteFn(ctx, name)
	}
	return nil
}

func TestJobNameIsBitExact(t *testing.T) {
	got := JobName("test-001", "test-001-s12")
	want := "run-dailyscrum-test-001-test-001-s12"
	if got != want {
		t.Fatalf("JobName = %q, want %q", got, want)
	}
}

func TestJobNameLowercases(t *testing.T) {
	got := JobName("PROJ-A", "Sprint-1")
	want := "run-dailyscrum-proj-a-sprint-1"
	if got != want {
		t.Fatalf("JobName = %q, want %q", got, want)
	}
}

func TestEnsurePresentCreatesWhenAbsent(t *testing.T) {
	sched := &fakeScheduler{
		existsFn: func(ctx context.Context, name string) (bool, error) { return false, nil },
	}
	ctl := New(sched, config.Config{CronNamespace: "default", CronRunnerImage: "runner:latest", CronDefaultSchedule: "0 9 * * *"})

	created, err := ctl.EnsurePresent(context.Background(), "test-001", "test-001-s12", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected job to be created")
	}
	if len(sched.created) == 0 {
		t.Fatalf("expected a manifest to be submitted")
	}
}

func TestEnsurePresentNoopWhenAlreadyExists(t *testing.T) {
	sched := &fakeScheduler{
		existsFn: func(ctx context.Context, name string) (bool, error) { return true, nil },
	}
	ctl := New(sched, config.Config{})

	created, err := ctl.EnsurePresent(context.Background(), "test-001", "test-001-s12", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected no creation when job already exists")
	}
	if sched.created != nil {
		t.Fatalf("expected no manifest to be submitted")
	}
}

func TestEnsurePresentPropagatesExistsError(t *testing.T) {
	sched := &fakeScheduler{
		existsFn: func(ctx context.Context, name string) (bool, error) { return false, errors.New("scheduler unavailable") },
	}
	ctl := New(sched, config.Config{})

	_, err := ctl.EnsurePresent(context.Background(), "test-001", "test-001-s12", "")
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
}

func TestRemoveDeletesWhenPresent(t *testing.T) {
	sched := &fakeScheduler{
		existsFn: func(ctx context.Context, name string) (bool, error) { return true, nil },
	}
	ctl := New(sched, config.Config{})

	deleted, err := ctl.Remove(context.Background(), "test-001", "test-001-s12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected job to be deleted")
	}
	if sched.deleted != JobName("test-001", "test-001-s12") {
		t.Fatalf("deleted wrong job name: %q", sched.deleted)
	}
}

func TestRemoveNoopWhenAbsent(t *testing.T) {
	sched := &fakeScheduler{
		existsFn: func(ctx context.Context, name string) (bool, error) { return false, nil },
	}
	ctl := New(sched, config.Config{})

	deleted, err := ctl.Remove(context.Background(), "test-001", "test-001-s12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted {
		t.Fatalf("expected no deletion when job already absent")
	}
}
