package client

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/pders01/idgames/internal/idgames"
)

// State is the lifecycle stage of a Task.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Task is one asynchronous execution of a Request. Every task ends with
// exactly one Response, which may be a cancellation.
type Task struct {
	id     string
	req    *idgames.Request
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}

	onComplete func(*Task)

	// Written before done is closed.
	resp      *idgames.Response
	fromCache bool
	cacheErr  error
}

// TaskOption configures a task at submission.
type TaskOption func(*Task)

// WithContext ties the task to ctx. Cancelling ctx cancels the task.
func WithContext(ctx context.Context) TaskOption {
	return func(t *Task) {
		t.ctx, t.cancel = context.WithCancel(ctx)
	}
}

// OnComplete registers fn to run once the task has its response. fn runs
// on the task's goroutine.
func OnComplete(fn func(*Task)) TaskOption {
	return func(t *Task) {
		t.onComplete = fn
	}
}

func newTask(req *idgames.Request, opts ...TaskOption) *Task {
	t := &Task{
		id:   uuid.NewString(),
		req:  req,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.ctx == nil {
		t.ctx, t.cancel = context.WithCancel(context.Background())
	}
	return t
}

// ID returns the task's unique id.
func (t *Task) ID() string { return t.id }

// Request returns the request being executed.
func (t *Task) Request() *idgames.Request { return t.req }

// State returns the current state.
func (t *Task) State() State { return State(t.state.Load()) }

// Cancel asks the task to stop. It never blocks; the task delivers a
// cancelled response unless it already finished.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the response is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes and returns its response.
func (t *Task) Wait() *idgames.Response {
	<-t.done
	return t.resp
}

// Response returns the response, or nil while the task is still running.
func (t *Task) Response() *idgames.Response {
	select {
	case <-t.done:
		return t.resp
	default:
		return nil
	}
}

// FromCache reports whether the response was served from the cache. Only
// meaningful after Done is closed.
func (t *Task) FromCache() bool {
	<-t.done
	return t.fromCache
}

// CacheErr returns the error from storing the response, if storing failed.
// The response itself is still delivered in that case.
func (t *Task) CacheErr() error {
	<-t.done
	return t.cacheErr
}

func (t *Task) cancelled() bool {
	return t.ctx.Err() != nil
}

func (t *Task) finish(resp *idgames.Response) {
	t.resp = resp
	if resp.Cancelled() {
		t.state.Store(int32(StateCancelled))
	} else {
		t.state.Store(int32(StateCompleted))
	}
	t.cancel()
	close(t.done)

	if t.onComplete != nil {
		t.onComplete(t)
	}
}
