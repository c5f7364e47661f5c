package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"logoforge/internal/domain"
)

// TaskState is the observable lifecycle of a background generation.
type TaskState string

const (
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// Task is a cancellable background package generation whose outcome is
// always observable through Wait or Result.
type Task struct {
	id       string
	cancel   context.CancelFunc
	done     chan struct{}
	started  time.Time
	finished time.Time
	pkg      *domain.AssetPackage
	err      error
}

// Start launches GenerateCompletePackage in the background. The task keeps
// running until it completes, ctx ends or Cancel is called.
func (o *Orchestrator) Start(ctx context.Context, raw []byte, meta domain.SourceMetadata, timeout time.Duration) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		id:      uuid.NewString(),
		cancel:  cancel,
		done:    make(chan struct{}),
		started: o.now(),
	}
	go func() {
		defer cancel()
		pkg, err := o.generate(taskCtx, t.id, raw, meta, timeout)
		t.pkg, t.err = pkg, err
		t.finished = o.now()
		close(t.done)
	}()
	return t
}

// ID returns the task identifier, which is also the package id.
func (t *Task) ID() string { return t.id }

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop. Artifacts finished so far are still
// packaged.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (*domain.AssetPackage, error) {
	select {
	case <-t.done:
		return t.pkg, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State reports the current lifecycle state.
func (t *Task) State() TaskState {
	select {
	case <-t.done:
		if t.err != nil {
			return TaskFailed
		}
		return TaskSucceeded
	default:
		return TaskRunning
	}
}

// Result returns the outcome without blocking. finished is false while the
// task is running.
func (t *Task) Result() (*domain.AssetPackage, bool, error) {
	select {
	case <-t.done:
		return t.pkg, true, t.err
	default:
		return nil, false, nil
	}
}

// Registry tracks background tasks so their outcome can be polled. Finished
// tasks are evicted after the retention period.
type Registry struct {
	mu        sync.Mutex
	tasks     map[string]*Task
	retention time.Duration
	now       func() time.Time
}

// NewRegistry constructs a Registry. A non-positive retention keeps finished
// tasks for one hour.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Registry{tasks: make(map[string]*Task), retention: retention, now: time.Now}
}

// Add registers a task and prunes expired ones.
func (r *Registry) Add(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.tasks[t.ID()] = t
}

// Get looks up a task by id.
func (r *Registry) Get(id string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	return t, ok
}

// CancelAll cancels every running task.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		t.Cancel()
	}
}

// Stats counts running and retained finished tasks.
func (r *Registry) Stats() (running, finished int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.State() == TaskRunning {
			running++
		} else {
			finished++
		}
	}
	return running, finished
}

func (r *Registry) pruneLocked() {
	cutoff := r.now().Add(-r.retention)
	for id, t := range r.tasks {
		if _, finished, _ := t.Result(); finished && t.finished.Before(cutoff) {
			delete(r.tasks, id)
		}
	}
}
