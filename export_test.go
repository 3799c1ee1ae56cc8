// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package boundq

// NewAt creates a queue whose positions start at start.
// Used to drive the position counters across the 2^64 wrap.
func NewAt[T any](capacity int, start uint64) *Bounded[T] {
	return newAt[T](capacity, start)
}
