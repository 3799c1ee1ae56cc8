// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package boundq

import (
	"runtime"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// Waiter idles the caller between failed queue operations.
//
// Queues never wait on their own beyond CAS contention; callers that retry
// on ErrWouldBlock pick how to idle. Implementations are stateful and not
// safe for concurrent use: give each goroutine its own Waiter.
//
// [iox.Backoff] satisfies Waiter.
type Waiter interface {
	// Wait idles once, escalating on repeated calls.
	Wait()
	// Reset returns to the cheapest idle stage after progress.
	Reset()
}

var (
	_ Waiter = (*iox.Backoff)(nil)
	_ Waiter = (*Staged)(nil)
)

// Staged is a spin-then-yield-then-sleep Waiter.
//
// The first Spins calls pause the CPU, the next Yields calls hand the
// processor to the scheduler, and every later call sleeps, starting at
// MinSleep and doubling up to MaxSleep. A zero MaxSleep turns the sleep
// stage into yields.
//
// Example:
//
//	w := &boundq.Staged{Spins: 32, Yields: 8, MinSleep: time.Microsecond, MaxSleep: 100 * time.Microsecond}
//	for q.Enqueue(&v) != nil {
//	    w.Wait()
//	}
//	w.Reset()
type Staged struct {
	Spins    int
	Yields   int
	MinSleep time.Duration
	MaxSleep time.Duration

	sw    spin.Wait
	n     int
	sleep time.Duration
}

// DefaultStaged returns a Staged tuned for worker loops: 64 spins,
// 16 yields, then sleeps from 1µs up to 1ms.
func DefaultStaged() *Staged {
	return &Staged{
		Spins:    64,
		Yields:   16,
		MinSleep: time.Microsecond,
		MaxSleep: time.Millisecond,
	}
}

// Wait idles once according to the current stage.
func (s *Staged) Wait() {
	switch s.stage() {
	case stageSpin:
		s.sw.Once()
	case stageYield:
		runtime.Gosched()
	default:
		if s.MaxSleep <= 0 {
			runtime.Gosched()
			return
		}
		if s.sleep == 0 {
			s.sleep = max(s.MinSleep, time.Nanosecond)
		}
		s.sleep = min(s.sleep, s.MaxSleep)
		time.Sleep(s.sleep)
		s.sleep *= 2
		return
	}
	s.n++
}

// Reset returns to the spin stage.
func (s *Staged) Reset() {
	s.sw.Reset()
	s.n = 0
	s.sleep = 0
}

const (
	stageSpin = iota
	stageYield
	stageSleep
)

func (s *Staged) stage() int {
	switch {
	case s.n < s.Spins:
		return stageSpin
	case s.n < s.Spins+s.Yields:
		return stageYield
	default:
		return stageSleep
	}
}

// YieldOnly returns a Waiter that yields the processor on every Wait.
func YieldOnly() Waiter {
	return yielder{}
}

type yielder struct{}

func (yielder) Wait()  { runtime.Gosched() }
func (yielder) Reset() {}
