// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/boundq"
)

// Task is a unit of work run synchronously on a worker goroutine.
type Task func()

// State is the lifecycle state of a Pool.
type State int32

const (
	Created State = iota
	Running
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of pool counters.
//
// Once the pool is idle, Submitted == Completed + Panicked + Exited + Dropped.
type Stats struct {
	Submitted int64 // accepted by Submit
	Rejected  int64 // refused with ErrQueueFull
	Completed int64 // ran without panicking
	Panicked  int64 // panicked and were reported
	Exited    int64 // called runtime.Goexit; their worker was replaced
	Dropped   int64 // accepted but discarded by Shutdown
	Pending   int64 // accepted and not yet finished or dropped
}

// Pool runs tasks on a fixed set of workers fed by a [boundq.Bounded] queue.
//
// Submit never blocks: a full queue is reported as ErrQueueFull. Workers
// poll the queue and idle through their Waiter when it is empty. Shutdown
// stops the workers cooperatively; a task already running completes, and
// tasks still queued are dropped without running.
type Pool struct {
	queue   boundq.Queue[Task]
	cfg     Config
	log     logrus.FieldLogger
	workers sync.WaitGroup

	state     atomix.Int32
	pending   atomix.Int64
	submitted atomix.Int64
	rejected  atomix.Int64
	completed atomix.Int64
	panicked  atomix.Int64
	exited    atomix.Int64
	dropped   atomix.Int64
}

// New creates a pool of workerCount workers sharing a queue of
// queueCapacity tasks, using defaults for everything else.
func New(workerCount, queueCapacity int) (*Pool, error) {
	cfg := DefaultConfig()
	cfg.Workers = workerCount
	cfg.QueueCapacity = queueCapacity
	return NewWithConfig(cfg)
}

// NewWithConfig creates a pool and starts its workers.
func NewWithConfig(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	q, err := boundq.New[Task](cfg.QueueCapacity)
	if err != nil {
		return nil, errors.Wrap(err, "pool")
	}

	p := &Pool{
		queue: q,
		cfg:   cfg,
		log:   cfg.Logger,
	}

	// The zero state is Created. Workers exit as soon as they observe a
	// state other than Running, so publish it before starting them; New
	// always returns a Running pool.
	p.state.StoreRelease(int32(Running))
	p.workers.Add(cfg.Workers)
	for id := range cfg.Workers {
		go p.run(id)
	}
	cfg.Metrics.setWorkers(cfg.Workers)

	p.log.WithFields(logrus.Fields{
		"workers":  cfg.Workers,
		"capacity": q.Cap(),
	}).Debug("pool started")
	return p, nil
}

// Submit enqueues task without blocking.
//
// Returns ErrQueueFull when the queue is full, ErrClosed once Shutdown has
// started, and ErrNilTask for a nil task. A nil return means the task will
// run unless Shutdown drops it first.
func (p *Pool) Submit(task Task) error {
	err := p.submit(task)
	if errors.Is(err, ErrQueueFull) {
		p.rejected.Add(1)
		p.cfg.Metrics.reject()
	}
	return err
}

func (p *Pool) submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if p.State() != Running {
		return ErrClosed
	}

	p.pending.Add(1)
	if err := p.queue.Enqueue(&task); err != nil {
		p.pending.Add(-1)
		return ErrQueueFull
	}
	p.submitted.Add(1)
	p.cfg.Metrics.submit()

	// Shutdown may have joined the workers and emptied the queue between
	// the state check and the enqueue; drop what is left so Pending settles.
	if p.State() != Running {
		p.discard()
	}
	return nil
}

// SubmitWait submits task, idling through the pool's Waiter while the
// queue is full. It returns ctx.Err() if ctx ends first and ErrClosed if
// the pool shuts down first.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	w := p.cfg.NewWaiter()
	for {
		err := p.submit(task)
		if !errors.Is(err, ErrQueueFull) {
			return err
		}
		if err := ctx.Err(); err != nil {
			p.rejected.Add(1)
			p.cfg.Metrics.reject()
			return err
		}
		w.Wait()
	}
}

// Drain waits until every accepted task has finished or been dropped.
// Tasks submitted concurrently with Drain may or may not be waited for.
func (p *Pool) Drain(ctx context.Context) error {
	w := p.cfg.NewWaiter()
	for p.pending.Load() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.Wait()
	}
	return nil
}

// Shutdown stops the pool and waits for every worker to exit.
//
// Tasks running when Shutdown is called complete; tasks still queued are
// dropped and counted in Stats.Dropped. Shutdown is idempotent and safe to
// call from several goroutines: every call returns only after all workers
// have been joined.
func (p *Pool) Shutdown() {
	if p.state.CompareAndSwapAcqRel(int32(Running), int32(ShuttingDown)) {
		p.log.Debug("pool shutting down")
	}

	p.workers.Wait()
	n := p.discard()

	if p.state.CompareAndSwapAcqRel(int32(ShuttingDown), int32(Stopped)) {
		p.cfg.Metrics.setWorkers(0)
		p.log.WithField("dropped", n).Debug("pool stopped")
	}
}

// discard dequeues and drops every queued task.
func (p *Pool) discard() int {
	n := 0
	for {
		if _, err := p.queue.Dequeue(); err != nil {
			break
		}
		n++
	}
	p.drop(n)
	return n
}

func (p *Pool) drop(n int) {
	if n == 0 {
		return
	}
	p.dropped.Add(int64(n))
	p.pending.Add(-int64(n))
	p.cfg.Metrics.drop(n)
}

// run is the consume loop of one worker.
func (p *Pool) run(id int) {
	defer p.workers.Done()
	if p.cfg.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	log := p.log.WithField("worker", id)
	log.Debug("worker started")
	defer log.Debug("worker stopped")

	w := p.cfg.NewWaiter()
	for p.State() == Running {
		task, err := p.queue.Dequeue()
		if err != nil {
			w.Wait()
			continue
		}
		w.Reset()

		if p.State() != Running {
			p.drop(1)
			return
		}
		p.execute(id, task)
	}
}

// execute runs task on the calling worker.
//
// A panic is recovered and reported as a *PanicError. runtime.Goexit cannot
// be stopped: the worker goroutine unwinds, so a replacement is started and
// an *ExitError is reported instead.
func (p *Pool) execute(id int, task Task) {
	normalReturn, recovered := false, false
	var r any
	defer func() {
		// Drain returns only after the handler has seen the failure.
		defer p.pending.Add(-1)
		switch {
		case normalReturn:
			p.completed.Add(1)
			p.cfg.Metrics.finish(false)
		case recovered:
			p.panicked.Add(1)
			p.cfg.Metrics.finish(true)
			p.cfg.ErrorHandler(newPanicError(id, r))
		default:
			p.exited.Add(1)
			p.cfg.Metrics.exit()
			p.respawn(id)
			p.cfg.ErrorHandler(&ExitError{Worker: id})
		}
	}()

	func() {
		defer func() {
			if !normalReturn {
				r = recover()
			}
		}()
		task()
		normalReturn = true
	}()
	// Only reached after a normal return or a recovered panic.
	if !normalReturn {
		recovered = true
	}
}

// respawn starts a replacement for worker id, whose goroutine is exiting.
// The WaitGroup count is raised before the old goroutine calls Done.
func (p *Pool) respawn(id int) {
	if p.State() != Running {
		return
	}
	p.workers.Add(1)
	go p.run(id)
	p.log.WithField("worker", id).Warn("worker replaced after runtime.Goexit")
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	return State(p.state.LoadAcquire())
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.cfg.Workers
}

// Cap returns the task queue capacity.
func (p *Pool) Cap() int {
	return p.queue.Cap()
}

// Pending returns the number of accepted tasks not yet finished or dropped.
func (p *Pool) Pending() int64 {
	return p.pending.Load()
}

// Stats returns a snapshot of the pool counters.
// Fields are read independently and may be mutually inconsistent while
// tasks are in flight.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Rejected:  p.rejected.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		Exited:    p.exited.Load(),
		Dropped:   p.dropped.Load(),
		Pending:   p.pending.Load(),
	}
}
