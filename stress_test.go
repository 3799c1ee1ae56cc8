// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package boundq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"

	"code.hybscloud.com/boundq"
)

// =============================================================================
// Concurrent Stress Tests
//
// Values are encoded as producerID*itemsPerProd + sequence so every item
// carries a unique tag. Under -race these tests are skipped: slot data is
// published through atomix sequence stores the detector cannot observe.
// =============================================================================

// TestStressNoLossNoDuplicates runs P producers and C consumers against a
// small queue and checks every enqueued item is dequeued exactly once.
func TestStressNoLossNoDuplicates(t *testing.T) {
	if boundq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 8
		numConsumers = 8
		itemsPerProd = 10000
		timeout      = 10 * time.Second
	)

	q := boundq.MustNew[int](64)
	expectedTotal := numProducers * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var produced, consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				for q.Enqueue(&v) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				produced.Add(1)
				backoff.Reset()
			}
		}(p)
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := q.Dequeue()
				if err != nil {
					backoff.Wait()
					continue
				}
				if v >= 0 && v < expectedTotal {
					seen[v].Add(1)
				}
				consumed.Add(1)
				backoff.Reset()
			}
		}()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timeout: produced=%d, consumed=%d/%d", produced.Load(), consumed.Load(), expectedTotal)
	}
	if got := consumed.Load(); got != produced.Load() {
		t.Errorf("consumed %d, produced %d", got, produced.Load())
	}

	var lost, duplicates int
	for i := range expectedTotal {
		switch seen[i].Load() {
		case 0:
			lost++
		case 1:
		default:
			duplicates++
		}
	}
	if lost > 0 || duplicates > 0 {
		t.Errorf("linearizability violation: %d lost, %d duplicates", lost, duplicates)
	}
}

// TestStressPerProducerOrder verifies that items of one producer leave the
// queue in the order that producer enqueued them, with several consumers
// racing. Each consumer sees a subsequence of each producer's items, which
// must be strictly increasing.
func TestStressPerProducerOrder(t *testing.T) {
	if boundq.RaceEnabled {
		t.Skip("skip: FIFO test requires concurrent access")
	}

	const (
		numProducers = 4
		numConsumers = 4
		itemsPerProd = 20000
	)

	q := boundq.MustNew[int](128)
	var wg sync.WaitGroup
	var consumed atomix.Int64
	deadline := time.Now().Add(10 * time.Second)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				for q.Enqueue(&v) != nil {
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	violations := make([]int, numConsumers)
	for c := range numConsumers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			last := make([]int, numProducers)
			for i := range last {
				last[i] = -1
			}
			backoff := iox.Backoff{}
			for consumed.Load() < numProducers*itemsPerProd {
				if time.Now().After(deadline) {
					return
				}
				v, err := q.Dequeue()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				consumed.Add(1)
				prod, seq := v/itemsPerProd, v%itemsPerProd
				if seq <= last[prod] {
					violations[id]++
				}
				last[prod] = seq
			}
		}(c)
	}

	wg.Wait()

	if got := consumed.Load(); got != numProducers*itemsPerProd {
		t.Fatalf("consumed %d, want %d", got, numProducers*itemsPerProd)
	}
	for c, n := range violations {
		if n > 0 {
			t.Errorf("consumer %d: %d per-producer order violations", c, n)
		}
	}
}

// TestStressNeverExceedsCapacity floods the queue without consumers and
// checks exactly Cap() enqueues succeed across all producers.
func TestStressNeverExceedsCapacity(t *testing.T) {
	if boundq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const numProducers = 16
	q := boundq.MustNew[int](100)

	var wg sync.WaitGroup
	var accepted atomix.Int64
	start := make(chan struct{})
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			<-start
			for i := range 1000 {
				v := id*1000 + i
				if q.Enqueue(&v) == nil {
					accepted.Add(1)
				}
			}
		}(p)
	}
	close(start)
	wg.Wait()

	if got := accepted.Load(); got != int64(q.Cap()) {
		t.Fatalf("accepted %d, want %d", got, q.Cap())
	}

	drained := 0
	for {
		if _, err := q.Dequeue(); err != nil {
			break
		}
		drained++
	}
	if drained != q.Cap() {
		t.Fatalf("drained %d, want %d", drained, q.Cap())
	}
}

// TestStressSizedForAll sizes the queue for every item so no enqueue may fail,
// then drains concurrently.
func TestStressSizedForAll(t *testing.T) {
	if boundq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 4
		itemsPerProd = 4096
		numConsumers = 4
	)
	total := numProducers * itemsPerProd
	q := boundq.MustNew[int](total)

	var wg sync.WaitGroup
	var failed atomix.Int64
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				if q.Enqueue(&v) != nil {
					failed.Add(1)
				}
			}
		}(p)
	}
	wg.Wait()
	if n := failed.Load(); n != 0 {
		t.Fatalf("%d enqueues failed on a queue sized for all items", n)
	}

	seen := make([]atomix.Int32, total)
	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, err := q.Dequeue()
				if err != nil {
					return
				}
				seen[v].Add(1)
			}
		}()
	}
	wg.Wait()

	for i := range total {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("item %d dequeued %d times, want 1", i, n)
		}
	}
}
