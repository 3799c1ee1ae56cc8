// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"fmt"

	"github.com/pkg/errors"

	"code.hybscloud.com/boundq"
)

var (
	// ErrQueueFull reports a submission rejected because the task queue is
	// full. It wraps [boundq.ErrWouldBlock], so [boundq.IsWouldBlock] holds.
	//
	// The pool never drops a task silently on submission: the caller
	// retries, drops, or escalates.
	ErrQueueFull = errors.Wrap(boundq.ErrWouldBlock, "pool: submission rejected, queue full")

	// ErrClosed reports a submission made after Shutdown started.
	ErrClosed = errors.New("pool: closed")

	// ErrNilTask reports a nil task passed to Submit.
	ErrNilTask = errors.New("pool: nil task")

	// ErrTaskExit reports a task that called runtime.Goexit.
	// *ExitError matches it with errors.Is.
	ErrTaskExit = errors.New("pool: task exited through runtime.Goexit")

	// ErrInvalidConfig reports a Config that fails validation.
	ErrInvalidConfig = errors.New("pool: invalid config")
)

// PanicError is a task panic recovered by a worker.
//
// The worker survives the panic and keeps serving the queue. The error
// records the worker, the recovered value and the stack at the point of
// the panic; format with %+v to print the stack.
type PanicError struct {
	// Worker is the index of the worker that ran the task.
	Worker int
	// Value is the value passed to panic.
	Value any

	err error
}

func newPanicError(worker int, r any) *PanicError {
	var err error
	if cause, ok := r.(error); ok {
		err = errors.Wrapf(cause, "pool: worker %d: task panicked", worker)
	} else {
		err = errors.Errorf("pool: worker %d: task panicked: %v", worker, r)
	}
	return &PanicError{Worker: worker, Value: r, err: err}
}

func (e *PanicError) Error() string { return e.err.Error() }

// Unwrap exposes an error panic value to errors.Is and errors.As.
func (e *PanicError) Unwrap() error { return errors.Unwrap(e.err) }

// Format implements fmt.Formatter; %+v includes the stack trace.
func (e *PanicError) Format(s fmt.State, verb rune) {
	if f, ok := e.err.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.err.Error())
}

// ExitError reports a task that called runtime.Goexit, for example through
// testing.T.FailNow. The worker goroutine cannot survive it; the pool starts
// a replacement so the number of serving workers stays the same.
type ExitError struct {
	// Worker is the index of the worker that ran the task.
	Worker int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("pool: worker %d: task exited through runtime.Goexit", e.Worker)
}

// Is reports whether target is ErrTaskExit.
func (e *ExitError) Is(target error) bool { return target == ErrTaskExit }
