// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package boundq provides a fixed-capacity lock-free MPMC queue.
//
// [Bounded] is a multi-producer multi-consumer ring buffer coordinated only
// by CAS on two position counters and a per-slot sequence number, after
// Dmitry Vyukov's bounded MPMC queue. It never grows, never locks, and never
// parks the caller: full and empty are reported immediately.
//
// # Quick Start
//
//	q, err := boundq.New[*Request](4096)
//	if err != nil {
//	    return err // capacity < 2 or > MaxCapacity
//	}
//
//	// Enqueue (non-blocking)
//	if err := q.Enqueue(&req); boundq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Dequeue (non-blocking)
//	req, err := q.Dequeue()
//	if boundq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// TryEnqueue and TryDequeue report the same outcomes as booleans.
//
// # Capacity
//
// Capacity rounds up to the next power of 2:
//
//	boundq.New[int](5)    // Actual capacity: 8
//	boundq.New[int](8)    // Actual capacity: 8
//	boundq.New[int](1)    // ErrCapacity
//
// Length is intentionally not provided because accurate counts in lock-free
// algorithms require expensive cross-core synchronization.
//
// # Ordering
//
// Items from a single producer are dequeued in the order they were
// enqueued. Items from different producers have no relative order, and no
// fairness is promised among producers or among consumers. Each
// successfully enqueued item is dequeued exactly once.
//
// # Waiting
//
// Callers that retry on [ErrWouldBlock] idle through a [Waiter]. [Staged]
// spins, then yields, then sleeps with exponential growth; [YieldOnly]
// always yields; [iox.Backoff] also fits:
//
//	w := boundq.DefaultStaged()
//	for q.Enqueue(&item) != nil {
//	    w.Wait()
//	}
//	w.Reset()
//
// # Race Detection
//
// Slot data is published through acquire-release sequence stores made with
// [code.hybscloud.com/atomix]. Go's race detector cannot observe that
// happens-before edge and may report false positives on the data field.
// Concurrent tests check [RaceEnabled] and skip under -race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
//
// The worker pool built on Bounded lives in package
// [code.hybscloud.com/boundq/pool].
package boundq
