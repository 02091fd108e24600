// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package index implements the global node-index space partitioning:
// the global range [0, IntMax) is split statically at startup into a master band,
// one disjoint hub band per cluster, and one disjoint worker sub-band
// per worker inside its hub's band. Each range is handed out to its
// owner in fixed-size batches; a process running low requests more from
// its parent (worker -> hub -> master).
package index

import (
	"fmt"
	"sync"
)

// IntMax bounds the index space, matching the source's use of INT_MAX
// as the partition ceiling.
const IntMax = 1 << 31

// ErrExhausted is returned when a range request cannot be satisfied by
// the parent. Fatal on the requester.
var ErrExhausted = fmt.Errorf("index: band exhausted and no parent to request more from")

// MasterBand returns the master's static low band, [0, IntMax/4).
func MasterBand() (lo, hi int) {
	return 0, IntMax / 4
}

// HubBand returns the disjoint band owned by hub number hubIdx (0-based)
// out of hubNum hubs, carved from the remaining 3/4 of the space above
// the master band. Hub 0 is the master acting as hub 0 and therefore
// does not receive a separate HubBand call — it works directly out of
// MasterBand.
func HubBand(hubNum, hubIdx int) (lo, hi int) {
	_, masterHi := MasterBand()
	span := (3 * IntMax / 4) / hubNum
	lo = masterHi + hubIdx*span
	hi = lo + span
	return lo, hi
}

// WorkerBand returns the disjoint sub-band owned by worker workerIdx
// (0-based) out of numWorkers workers inside the hub band [hubLo,
// hubHi).
func WorkerBand(hubLo, hubHi, numWorkers, workerIdx int) (lo, hi int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	span := (hubHi - hubLo) / numWorkers
	lo = hubLo + workerIdx*span
	hi = lo + span
	return lo, hi
}

// RequestMoreFunc asks a parent (hub or master) for a new band when the
// local one runs low. It returns the new [lo, hi) to switch to.
type RequestMoreFunc func() (lo, hi int, err error)

// Allocator hands out unique node indices in increasing order from a
// band, requesting a fresh band from its parent once exhausted.
// Safe for concurrent use; the scheduler loop is single-threaded per
// process but an Allocator may be shared with the control plane's
// read-only /stats handler, hence the mutex.
type Allocator struct {
	mu sync.Mutex
	lo, hi, nxt int
	requestMore RequestMoreFunc
}

// NewAllocator returns an Allocator initially owning [lo, hi). If the
// band is exhausted, requestMore is called to fetch a new one; pass nil
// for the master, whose initial band is never refilled — exhausting
// [0, IntMax/4) means 2^29 indices have been handed out (indices are
// never reused, and batches for hubs come from the same band), an
// IndexExhausted condition with no parent to ask.
func NewAllocator(lo, hi int, requestMore RequestMoreFunc) *Allocator {
	return &Allocator{lo: lo, hi: hi, nxt: lo, requestMore: requestMore}
}

// Next returns the next unique index owned by this allocator, unique
// and always within its band. When the band is exhausted it requests a
// new one from requestMore; if that returns an error or requestMore is
// nil, Next returns ErrExhausted.
func (a *Allocator) Next() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.nxt >= a.hi {
		if a.requestMore == nil {
			return 0, ErrExhausted
		}
		lo, hi, err := a.requestMore()
		if err != nil {
			return 0, fmt.Errorf("index: %w: %v", ErrExhausted, err)
		}
		if hi <= lo {
			return 0, ErrExhausted
		}
		a.lo, a.hi, a.nxt = lo, hi, lo
	}

	idx := a.nxt
	a.nxt++
	return idx, nil
}

// NextBatch reserves n contiguous indices in one step and returns the
// resulting [lo, hi) range, refilling from requestMore if the current
// band cannot satisfy it whole. Used by a hub or the master to carve
// off a fresh sub-band for a child that asked for more.
func (a *Allocator) NextBatch(n int) (lo, hi int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 {
		return 0, 0, fmt.Errorf("index: NextBatch requires n > 0")
	}
	if a.hi-a.nxt < n {
		if a.requestMore == nil {
			return 0, 0, ErrExhausted
		}
		newLo, newHi, err := a.requestMore()
		if err != nil {
			return 0, 0, fmt.Errorf("index: %w: %v", ErrExhausted, err)
		}
		if newHi-newLo < n {
			return 0, 0, ErrExhausted
		}
		a.lo, a.hi, a.nxt = newLo, newHi, newLo
	}

	lo = a.nxt
	a.nxt += n
	return lo, a.nxt, nil
}

// Remaining reports how many indices are left in the currently-held
// band, used to decide when to proactively ask for more: a worker
// whose band is running out requests more from its hub.
func (a *Allocator) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hi - a.nxt
}

// Band returns the currently-held [lo, hi) range, for diagnostics.
func (a *Allocator) Band() (lo, hi int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lo, a.hi
}

// InBand reports whether idx falls within this allocator's
// currently-held band. The engine itself does not call it.
func (a *Allocator) InBand(idx int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return idx >= a.lo && idx < a.hi
}
