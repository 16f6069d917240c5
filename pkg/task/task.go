// Package task models import work as a graph of stage tasks. Each task has a
// background phase that may run on any goroutine and an optional foreground
// phase that only runs on the goroutine driving the graph.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Task errors.
var (
	ErrInvalidTransition = errors.New("invalid task state transition")
	ErrAlreadySet        = errors.New("task result already set")
)

// State is a task's position in its lifecycle.
type State int32

const (
	Created State = iota
	Ready
	Running
	Finalizing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Finalizing:
		return "finalizing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// Progress receives a fraction in [0, 1] for the running phase.
type Progress func(fraction float64)

// Background is the pure half of a task. It must not touch host resources.
type Background func(ctx context.Context, report Progress) error

// Foreground is the host-bound half of a task. The Primary argument proves
// the call is on the driving goroutine.
type Foreground func(p Primary, report Progress) error

// Primary is held only by code running on the goroutine that drives a run.
// It cannot be implemented outside this package.
type Primary interface {
	// Stage names the task whose foreground phase is running.
	Stage() string
	primary()
}

type primaryContext struct {
	stage string
}

func (p primaryContext) Stage() string { return p.stage }
func (primaryContext) primary()        {}

// Task is one node of a Graph.
type Task struct {
	name       string
	background Background
	foreground Foreground
	waitFor    []*Task

	state atomic.Int32
	done  chan struct{}

	mu          sync.Mutex
	err         error
	startedAt   time.Time
	completedAt time.Time

	progress tracker
}

// New creates a task. A nil background is treated as a no-op.
func New(name string, background Background, foreground Foreground) *Task {
	return &Task{
		name:       name,
		background: background,
		foreground: foreground,
		done:       make(chan struct{}),
	}
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// State returns the current state.
func (t *Task) State() State { return State(t.state.Load()) }

// WaitFor returns the upstream tasks.
func (t *Task) WaitFor() []*Task {
	out := make([]*Task, len(t.waitFor))
	copy(out, t.waitFor)
	return out
}

// IsReady reports whether every upstream task has completed.
func (t *Task) IsReady() bool {
	for _, up := range t.waitFor {
		if up.State() != Completed {
			return false
		}
	}
	return true
}

// Done is closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the failure cause after the task has failed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// StartedAt returns when the background phase began.
func (t *Task) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

// CompletedAt returns when the task reached Completed.
func (t *Task) CompletedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}

var transitions = map[State][]State{
	Created:    {Ready, Failed},
	Ready:      {Running, Failed},
	Running:    {Finalizing, Failed},
	Finalizing: {Completed, Failed},
}

func (t *Task) transition(to State) error { return t.move(to, nil) }

// move performs a transition. cause is recorded only when the task enters
// Failed, before Done is closed.
func (t *Task) move(to State, cause error) error {
	from := t.State()
	allowed := false
	for _, s := range transitions[from] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed || !t.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, t.name, from, to)
	}

	now := time.Now()
	switch to {
	case Running:
		t.mu.Lock()
		t.startedAt = now
		t.mu.Unlock()
	case Completed:
		t.mu.Lock()
		t.completedAt = now
		t.mu.Unlock()
		close(t.done)
	case Failed:
		t.mu.Lock()
		t.err = cause
		t.mu.Unlock()
		close(t.done)
	}
	return nil
}

// fail moves t to Failed. A task that is already terminal keeps its state
// and error.
func (t *Task) fail(err error) {
	_ = t.move(Failed, err)
}

// backgroundReport records background progress. With a foreground phase the
// background covers the first half of the task's range.
func (t *Task) backgroundReport(f float64) {
	if t.foreground != nil {
		f *= 0.5
	}
	t.progress.report(f)
}

// foregroundReport records foreground progress in the second half.
func (t *Task) foregroundReport(f float64) {
	t.progress.report(0.5 + 0.5*f)
}

// Slot holds a stage result that is written once and read only after the
// writing task completes.
type Slot[T any] struct {
	mu  sync.Mutex
	set bool
	v   T
}

// Set stores the value. A second call returns ErrAlreadySet.
func (s *Slot[T]) Set(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return ErrAlreadySet
	}
	s.v, s.set = v, true
	return nil
}

// Get returns the stored value, or the zero value if unset.
func (s *Slot[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

// IsSet reports whether Set has succeeded.
func (s *Slot[T]) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}
