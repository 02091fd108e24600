// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/oss-hpc/alpsearch/internal/log"
	"github.com/oss-hpc/alpsearch/pkg/encoded"
	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

const solutionPoolTag = "solution-pool"

// EncodeSolutionPool serializes a snapshot of pool's contents,
// best-first, so a crashed run's incumbent is still visible post
// mortem. This is a snapshot of pool.All() at call time, not a live
// view — the pool's own mutex (if any) must guard the read before this
// is called, matching single-writer clarification.
func EncodeSolutionPool(pool *searchtree.SolutionPool) []byte {
	buf := encoded.New(solutionPoolTag)
	items := pool.All()
	buf.WriteUint32(uint32(len(items)))
	for _, sol := range items {
		buf.WriteInt32(int32(sol.Index))
		buf.WriteInt32(int32(sol.Depth))
		buf.WriteInt32(int32(sol.OriginID))
		buf.WriteFloat64(sol.Value.Quality())
		sol.Value.Encode(buf)
	}
	return buf.Bytes()
}

// Snapshotter drives periodic master-side snapshot: a gocron/v2
// job, entirely outside the scheduler loop, that reads the solution
// pool under its own synchronization and writes the encoding to a
// backend asynchronously to the scheduler tick.
type Snapshotter struct {
	backend Backend
	pool *searchtree.SolutionPool
	poolMu Locker

	scheduler gocron.Scheduler
}

// Locker is satisfied by *sync.Mutex and *sync.RWMutex; Snapshotter
// only ever calls Lock/Unlock, never acquiring a write lock on the
// scheduler's own state.
type Locker interface {
	Lock()
	Unlock()
}

// NewSnapshotter builds a Snapshotter that will read pool (guarded by
// poolMu) and write its encoding to backend. Call StartEvery to begin
// the periodic job; Stop to shut it down at run end.
func NewSnapshotter(backend Backend, pool *searchtree.SolutionPool, poolMu Locker) (*Snapshotter, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: new scheduler: %w", err)
	}
	return &Snapshotter{backend: backend, pool: pool, poolMu: poolMu, scheduler: scheduler}, nil
}

// StartEvery registers the periodic snapshot job on the given interval
// and starts the scheduler; it writes "<runID>-<unixnano>.bin" on every
// tick.
func (sn *Snapshotter) StartEvery(runID string, interval time.Duration) error {
	_, err := sn.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			sn.poolMu.Lock()
			data := EncodeSolutionPool(sn.pool)
			sn.poolMu.Unlock()

			name := fmt.Sprintf("%s-%d.bin", runID, time.Now().UnixNano())
			if err := sn.backend.Write(context.Background(), name, data); err != nil {
				log.Warnf("checkpoint: snapshot write failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("checkpoint: register snapshot job: %w", err)
	}
	sn.scheduler.Start()
	return nil
}

// Stop shuts the snapshot scheduler down.
func (sn *Snapshotter) Stop() error {
	return sn.scheduler.Shutdown()
}
