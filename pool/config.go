// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/boundq"
)

// Config holds the configuration of a Pool.
type Config struct {
	// Workers is the number of long-lived worker goroutines.
	Workers int

	// QueueCapacity is the task queue capacity, rounded up to the next
	// power of 2. Size it for the worst-case backlog: the queue never grows.
	QueueCapacity int

	// NewWaiter returns the idle strategy for one worker (and for
	// SubmitWait and Drain callers). Defaults to boundq.DefaultStaged.
	NewWaiter func() boundq.Waiter

	// ErrorHandler receives a *PanicError for every task that panics and an
	// *ExitError for every task that calls runtime.Goexit. It runs on the
	// worker goroutine. Defaults to logging at Error level.
	ErrorHandler func(err error)

	// Logger receives worker lifecycle events and, with the default
	// ErrorHandler, task panics. Defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger

	// Metrics, when set, is updated on every submission and completion.
	Metrics *Metrics

	// LockOSThread wires each worker to its own OS thread for its lifetime.
	LockOSThread bool
}

// DefaultConfig returns a Config with one worker per GOMAXPROCS and a
// 1024-slot queue.
func DefaultConfig() Config {
	return Config{
		Workers:       runtime.GOMAXPROCS(0),
		QueueCapacity: 1024,
	}
}

// Validate reports whether the configuration can build a Pool.
// The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return errors.Wrapf(ErrInvalidConfig, "workers %d: must be >= 1", c.Workers)
	}
	if c.QueueCapacity < 2 || c.QueueCapacity > boundq.MaxCapacity {
		return errors.Wrapf(ErrInvalidConfig, "queue capacity %d: must be in [2, %d]", c.QueueCapacity, boundq.MaxCapacity)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.NewWaiter == nil {
		c.NewWaiter = func() boundq.Waiter { return boundq.DefaultStaged() }
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = logTaskError(c.Logger)
	}
	return c
}

// logTaskError returns an ErrorHandler that logs task failures to log.
func logTaskError(log logrus.FieldLogger) func(error) {
	return func(err error) {
		entry := log.WithError(err)
		var (
			pe *PanicError
			ee *ExitError
		)
		switch {
		case errors.As(err, &pe):
			entry.WithFields(logrus.Fields{
				"worker": pe.Worker,
				"panic":  pe.Value,
				"stack":  fmt.Sprintf("%+v", pe),
			}).Error("task panicked")
		case errors.As(err, &ee):
			entry.WithField("worker", ee.Worker).Error("task exited")
		default:
			entry.Error("task failed")
		}
	}
}
