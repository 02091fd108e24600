// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package broker implements the parallel broker: the master/hub/worker
// scheduler loop, incumbent propagation, load balancing, index
// allocation, and termination detection. Package searchtree owns the
// tree/subtree data model this package drives; package transport owns
// the messaging primitives it dispatches over.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/oss-hpc/alpsearch/internal/log"
	"github.com/oss-hpc/alpsearch/internal/telemetry"
	"github.com/oss-hpc/alpsearch/internal/transport"
	"github.com/oss-hpc/alpsearch/pkg/encoded"
	"github.com/oss-hpc/alpsearch/pkg/index"
	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

// Broker drives one process's role in the hierarchy: one process,
// one broker, one single-threaded cooperative loop — all concurrency
// is cross-process.
type Broker struct {
	rank int
	topology Topology
	role Role
	params Params
	model searchtree.Model

	bus *transport.Bus
	mailbox *transport.Mailbox
	indicesMailbox *transport.Mailbox

	allocator *index.Allocator

	subtree *searchtree.Subtree
	subtreePool *searchtree.SubtreePool

	// solutions and solutionsMu are the one exception to this package's
	// single-goroutine rule (package doc above): internal/checkpoint
	// reads the pool from its own gocron goroutine, so every access
	// from Run's own goroutine takes the same lock.
	solutions *searchtree.SolutionPool
	solutionsMu sync.Mutex

	incumbentQuality *float64
	incumbentOrigin int

	sendCount, recvCount int

	forceTerminate bool
	terminationCheckMode bool
	rampUpDone bool

	// hub/master bookkeeping
	workerReports map[int]StatusReport
	hubReports map[int]StatusReport
	outstandingHubDonations int
	outstandingMasterDonations int

	// termination-detection snapshot
	termWorkerReplies map[int]StatusReport
	termHubReplies map[int]StatusReport
	termSnapshotSends int
	termSnapshotRecvs int

	// cadenceLimiter enforces this role's report/rebalance period
	// (masterBalancePeriod/hubReportPeriod/workerAskPeriod) via
	// rate.Limiter.Allow()/Wait() instead of stored-timestamp bookkeeping.
	cadenceLimiter *rate.Limiter

	tel *telemetry.Registry
	lineSink telemetry.Sink
}

// New constructs a Broker for this process. model must already have
// its AppNode bound. No tree is built here: Bootstrap creates the
// master's root from model and every other rank receives its first
// nodes during ramp-up.
func New(rank int, topology Topology, params Params, model searchtree.Model, bus *transport.Bus) (*Broker, error) {
	b := &Broker{
		rank: rank,
		topology: topology,
		role: topology.RoleOf(rank),
		params: params,
		model: model,
		bus: bus,
		subtreePool: searchtree.NewSubtreePool(searchtree.SubtreeComparator(params.SearchStrategy)),
		solutions: searchtree.NewSolutionPool(params.SolLimit),
		workerReports: make(map[int]StatusReport),
		hubReports: make(map[int]StatusReport),
		termWorkerReplies: make(map[int]StatusReport),
		termHubReplies: make(map[int]StatusReport),
	}

	mailbox, err := bus.NewMailbox("work", params.LargeSize)
	if err != nil {
		return nil, err
	}
	b.mailbox = mailbox

	indicesTag := "IndicesFromHub"
	if b.role == RoleHub {
		indicesTag = "IndicesFromMaster"
	}
	if b.role != RoleMaster {
		indicesMailbox, err := bus.NewMailbox(indicesTag, params.SmallSize)
		if err != nil {
			return nil, err
		}
		b.indicesMailbox = indicesMailbox
	}

	if err := b.setupAllocator(); err != nil {
		return nil, err
	}

	cadence := params.WorkerAskPeriod
	switch b.role {
	case RoleMaster:
		cadence = params.MasterBalancePeriod
	case RoleHub:
		cadence = params.HubReportPeriod
	}
	b.cadenceLimiter = telemetry.NewCadenceLimiter(cadence)
	b.tel = telemetry.NewRegistry(rank, b.role.String())
	b.lineSink = telemetry.LogSink{}

	return b, nil
}

// Metrics exposes this broker's telemetry registry so the control
// plane can scrape it.
func (b *Broker) Metrics() *telemetry.Registry { return b.tel }

// Stats is a read-only snapshot of this process's local pool sizes and
// best-known quality, for the control plane's /stats endpoint.
// It reads the same pools the scheduler loop already publishes to
// telemetry every tick, never the comparator or incumbent directly.
type Stats struct {
	Rank int `json:"rank"`
	Role string `json:"role"`
	NodePoolSize int `json:"nodePoolSize"`
	SubtreePoolSize int `json:"subtreePoolSize"`
	SolutionCount int `json:"solutionCount"`
	BestQuality float64 `json:"bestQuality"`
}

func (b *Broker) Stats() Stats {
	b.solutionsMu.Lock()
	solCount := b.solutions.Size()
	b.solutionsMu.Unlock()

	s := Stats{
		Rank: b.rank,
		Role: b.role.String(),
		SubtreePoolSize: b.subtreePool.Size(),
		SolutionCount: solCount,
		BestQuality: b.bestQualitySeen(),
	}
	if b.subtree != nil {
		s.NodePoolSize = b.subtree.Size()
	}
	return s
}

// SolutionPool exposes the broker's solution pool to internal/checkpoint
// for periodic snapshotting. Callers must hold SolutionPoolLock while
// reading it.
func (b *Broker) SolutionPool() *searchtree.SolutionPool { return b.solutions }

// SolutionPoolLock returns the mutex guarding concurrent access to the
// solution pool (see solutionsMu).
func (b *Broker) SolutionPoolLock() *sync.Mutex { return &b.solutionsMu }

func (b *Broker) setupAllocator() error {
	switch b.role {
	case RoleMaster:
		lo, hi := index.MasterBand()
		b.allocator = index.NewAllocator(lo, hi, nil)
	case RoleHub:
		hubIdx := -1
		for i, h := range b.topology.HubRanks {
			if h == b.rank {
				hubIdx = i
			}
		}
		if hubIdx <= 0 {
			return fmt.Errorf("broker: hub rank %d not found past position 0 in topology", b.rank)
		}
		lo, hi := index.HubBand(b.topology.HubNum, hubIdx)
		b.allocator = index.NewAllocator(lo, hi, b.requestIndicesFromMaster)
	case RoleWorker:
		hubRank := b.topology.HubOfRank[b.rank]
		hubIdx := -1
		for i, h := range b.topology.HubRanks {
			if h == hubRank {
				hubIdx = i
			}
		}
		hubLo, hubHi := index.HubBand(b.topology.HubNum, hubIdx)
		members := b.topology.ClusterMembers[hubRank]
		workerIdx := 0
		for i, m := range members {
			if m == b.rank {
				workerIdx = i
			}
		}
		lo, hi := index.WorkerBand(hubLo, hubHi, len(members), workerIdx)
		b.allocator = index.NewAllocator(lo, hi, b.requestIndicesFromHub)
	}
	return nil
}

const indexBatchSize = 4096
const indicesRequestTimeout = 5 * time.Second

func (b *Broker) requestIndicesFromHub() (int, int, error) {
	hubRank := b.topology.HubOfRank[b.rank]
	if err := b.send(context.Background(), hubRank, TagWorkerAskIndices, nil); err != nil {
		return 0, 0, err
	}
	return b.waitForIndices("IndicesFromHub")
}

func (b *Broker) requestIndicesFromMaster() (int, int, error) {
	if err := b.send(context.Background(), 0, TagHubAskIndices, nil); err != nil {
		return 0, 0, err
	}
	return b.waitForIndices("IndicesFromMaster")
}

func (b *Broker) waitForIndices(tag string) (int, int, error) {
	deadline := time.Now().Add(indicesRequestTimeout)
	for time.Now().Before(deadline) {
		env, ok := b.indicesMailbox.Poll(50 * time.Millisecond)
		if !ok {
			continue
		}
		return decodeRange(tag, env.Payload)
	}
	return 0, 0, fmt.Errorf("broker: IndexExhausted: no reply to %s within %s", tag, indicesRequestTimeout)
}

func (b *Broker) nextIndex() (int, error) {
	return b.allocator.Next()
}

func (b *Broker) send(ctx context.Context, dstRank int, tag string, payload []byte) error {
	if err := b.bus.Send(ctx, dstRank, tag, payload); err != nil {
		return err
	}
	b.sendCount++
	return nil
}

func (b *Broker) sendSubtree(ctx context.Context, dstRank int, tag string, sub *searchtree.Subtree) error {
	buf := encoded.New(tag)
	sub.Encode(buf)
	return b.send(ctx, dstRank, tag, buf.Bytes())
}

// Run executes this process's scheduler loop until
// forceTerminate is set or termination is declared. It is the uniform
// shape shared by all three roles; role-specific behavior is gated
// inline by b.role.
func (b *Broker) Run(ctx context.Context) error {
	log.Infof("broker: rank %d starting as %s", b.rank, b.role)

	period := b.params.WorkerAskPeriod
	switch b.role {
	case RoleMaster:
		period = b.params.MasterBalancePeriod
	case RoleHub:
		period = b.params.HubReportPeriod
	}

	for {
		if b.forceTerminate {
			b.mailbox.Cancel()
			if b.indicesMailbox != nil {
				b.indicesMailbox.Cancel()
			}
			b.tel.SetUp(false)
			log.Infof("broker: rank %d terminated", b.rank)
			return nil
		}

		drained := false
		for !drained {
			var env transport.Envelope
			var ok bool
			if b.role == RoleWorker {
				env, ok = b.mailbox.TryPoll()
			} else {
				env, ok = b.mailbox.Poll(period)
			}
			if !ok {
				drained = true
				break
			}
			b.recvCount++
			if err := b.dispatch(ctx, env); err != nil {
				return fmt.Errorf("broker: rank %d dispatch %q: %w", b.rank, env.Tag, err)
			}
			if b.role != RoleWorker {
				// hubs/master dispatch at most one message per tick,
				// having waited at most `period` for it.
				drained = true
			}
		}

		hubWorks := b.role == RoleHub && b.topology.IsHubWorker(b.rank)

		if (b.role == RoleWorker || hubWorks) && !b.terminationCheckMode && b.subtree != nil {
			if err := b.runUnitOfWork(ctx); err != nil {
				return err
			}
		}

		if b.role == RoleWorker && (b.sendCount != 0 || b.recvCount != 0 || b.subtree == nil) {
			if err := b.reportWorkerStatus(ctx); err != nil {
				return err
			}
		}

		if b.role == RoleHub {
			if b.cadenceLimiter.Allow() {
				if err := b.reportHubStatus(ctx); err != nil {
					return err
				}
			}
			if err := b.runIntraClusterBalance(ctx); err != nil {
				return err
			}
		}

		if b.role == RoleMaster {
			if b.readyForTerminationCheck() {
				if err := b.beginTerminationCheck(ctx); err != nil {
					return err
				}
			} else if b.cadenceLimiter.Allow() {
				if err := b.runInterClusterBalance(ctx); err != nil {
					return err
				}
			}
		}

		b.tel.SetBestQuality(b.bestQualitySeen())
		if b.subtree != nil {
			b.tel.SetPoolSize("node", b.subtree.Size())
		}
		b.tel.SetPoolSize("subtree", b.subtreePool.Size())
		b.solutionsMu.Lock()
		b.tel.SetPoolSize("solution", b.solutions.Size())
		b.solutionsMu.Unlock()

		if b.role == RoleWorker {
			if err := b.cadenceLimiter.Wait(ctx); err != nil {
				return err
			}
		}
	}
}

func (b *Broker) bestQualitySeen() float64 {
	b.solutionsMu.Lock()
	defer b.solutionsMu.Unlock()
	if best := b.solutions.Best(); best != nil {
		return best.Value.Quality()
	}
	return 0
}

// runUnitOfWork drives the worker's one-tick slice of processing
// (step 3): explore, swap in a better pooled subtree if the
// quality gap exceeds changeWorkThreshold, and propagate any newly
// discovered incumbent.
func (b *Broker) runUnitOfWork(ctx context.Context) error {
	status, stats, err := b.subtree.ExploreUnitWork(
		subtreeSink{b}, b.nextIndex,
		b.params.UnitWorkNodes, b.params.UnitWorkTime,
		true, false, b.params.DeleteDeadNode,
	)
	if err != nil {
		return err
	}

	switch status {
	case searchtree.StatusUnbounded:
		b.forceTerminate = true
		return nil
	case searchtree.StatusPoolEmpty:
		if best := b.subtreePool.Pop(); best != nil {
			b.subtree = best
		} else {
			b.subtree = nil
		}
	default:
		if best := b.subtreePool.Top(); best != nil {
			gap := b.subtree.Quality() - best.Quality()
			if gap > b.params.ChangeWorkThreshold {
				b.subtreePool.Push(b.subtree)
				b.subtree = b.subtreePool.Pop()
			}
		}
	}

	b.tel.AddExploreStats(stats.NumProcessed, stats.NumBranched, stats.NumFathomed, stats.NumDiscarded)

	if stats.FoundBetter {
		b.solutionsMu.Lock()
		best := b.solutions.Best()
		b.solutionsMu.Unlock()
		if best != nil {
			if err := b.announceLocalIncumbent(ctx, best.Value.Quality()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Broker) reportWorkerStatus(ctx context.Context) error {
	r := b.localStatusReport()
	if err := b.send(ctx, b.topology.HubOfRank[b.rank], TagWorkerStatus, encodeStatusReport(TagWorkerStatus, r)); err != nil {
		return err
	}
	b.emitTelemetryPoint(r)
	b.sendCount, b.recvCount = 0, 0
	return nil
}

func (b *Broker) reportHubStatus(ctx context.Context) error {
	r := b.selfHubReport()
	if err := b.send(ctx, 0, TagHubPeriodReport, encodeStatusReport(TagHubPeriodReport, r)); err != nil {
		return err
	}
	b.emitTelemetryPoint(r)
	return nil
}

// emitTelemetryPoint is the other half of periodic-report
// instrumentation: every WorkerStatus/HubPeriodReport is additionally
// encoded as a line-protocol point and handed to the configured sink.
func (b *Broker) emitTelemetryPoint(r StatusReport) {
	b.tel.SetOutstanding(r.Sends, r.Receives)
	point, err := telemetry.EncodeStatusPoint(b.rank, b.role.String(), r.Quantity, r.Quality, r.Sends, r.Receives, time.Now())
	if err != nil {
		log.Warnf("broker: rank %d encode telemetry point: %v", b.rank, err)
		return
	}
	if err := b.lineSink.Write(point); err != nil {
		log.Warnf("broker: rank %d write telemetry point: %v", b.rank, err)
	}
}

func (b *Broker) localStatusReport() StatusReport {
	r := StatusReport{Sends: b.sendCount, Receives: b.recvCount}
	if b.subtree != nil {
		r.Quality = b.subtree.Quality()
		r.Quantity = b.subtree.Size()
	}
	return r
}

// subtreeSink adapts Broker to searchtree.SolutionSink without
// exporting SolutionPool's internals to the searchtree package.
type subtreeSink struct{ b *Broker }

func (s subtreeSink) AddSolution(sol *searchtree.Solution) bool {
	sol.OriginID = s.b.rank
	s.b.solutionsMu.Lock()
	defer s.b.solutionsMu.Unlock()
	return s.b.solutions.Add(sol)
}
