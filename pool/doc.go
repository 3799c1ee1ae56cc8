// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pool runs tasks on a fixed set of workers fed by a lock-free
// bounded queue.
//
// # Quick Start
//
//	p, err := pool.New(4, 256)
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown()
//
//	if err := p.Submit(func() { handle(req) }); errors.Is(err, pool.ErrQueueFull) {
//	    // Backpressure: retry, drop, or escalate
//	}
//
// # Lifecycle
//
//	Created → Running → ShuttingDown → Stopped
//
// New returns a Running pool. Shutdown moves it to ShuttingDown, joins every
// worker, drops the tasks still queued and ends in Stopped. There is no way
// back to Running.
//
// Shutdown does not wait for queued work. To finish everything first:
//
//	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
//	defer cancel()
//	_ = p.Drain(ctx)
//	p.Shutdown()
//
// # Workers
//
// Each worker polls the queue and idles through a [boundq.Waiter] when it is
// empty; there is no condition variable. Config.NewWaiter picks the idle
// strategy, from pure yielding ([boundq.YieldOnly]) to spin-yield-sleep
// ([boundq.DefaultStaged], the default).
//
// A task that panics is recovered. The worker keeps running and the panic
// is delivered as a *PanicError to Config.ErrorHandler, which by default
// logs it through logrus.
//
// # Metrics
//
// Config.Metrics takes a [Metrics] created with NewMetrics and exports
// submission, rejection, completion, panic and drop counters to Prometheus.
package pool
