// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import (
	"fmt"
	"time"

	"github.com/oss-hpc/alpsearch/pkg/encoded"
)

// ExitStatus is the reason ExploreUnitWork returned (—
// LimitReached/Unbounded are not errors, they convert to one of these).
type ExitStatus int

const (
	StatusPoolEmpty ExitStatus = iota
	StatusUnitNodeLimit
	StatusUnitTimeLimit
	StatusBetterSolution
	StatusUnbounded
	StatusInfeasible
)

func (e ExitStatus) String() string {
	switch e {
	case StatusPoolEmpty:
		return "PoolEmpty"
	case StatusUnitNodeLimit:
		return "UnitNodeLimit"
	case StatusUnitTimeLimit:
		return "UnitTimeLimit"
	case StatusBetterSolution:
		return "BetterSolution"
	case StatusUnbounded:
		return "Unbounded"
	case StatusInfeasible:
		return "Infeasible"
	default:
		return "Unknown"
	}
}

// UnitStats accumulates the counters ExploreUnitWork returns.
type UnitStats struct {
	NumProcessed int
	NumBranched int
	NumDiscarded int
	NumFathomed int
	NumPartial int
	MaxDepth int
	FoundBetter bool
}

// SolutionSink is how a Subtree reports a solution discovered while
// processing a node; it is always the owning broker's solution pool
// (wrapped so the subtree package does not depend on internal/broker).
type SolutionSink interface {
	AddSolution(sol *Solution) (isNewBest bool)
}

// NextIndexFunc allocates the next unique node index (pkg/index.Allocator.Next).
type NextIndexFunc func() (int, error)

// Subtree is a logically contiguous piece of the search tree:
// an owning root, a primary node pool, a dive pool consumed first during
// a Hybrid dive streak, and the node currently being processed, if any.
type Subtree struct {
	Root *Node
	Pool *NodePool
	DivePool *NodePool
	Active *Node

	strategy Strategy
	diveStop DiveStopPredicate
	diving bool

	quality float64
	qualityValid bool

	diveDepthCounter int
	sinceImprovementCtr int
}

// NewSubtree creates a Subtree rooted at root (may be nil for an as-yet
// unpopulated subtree), using strategy's node comparator and diveStop as
// the Hybrid dive-streak predicate (pass searchtree.AlwaysDive to end a
// streak only when the dive pool empties).
func NewSubtree(root *Node, strategy Strategy, diveStop DiveStopPredicate) *Subtree {
	cmp := NodeComparator(strategy)
	s := &Subtree{
		Root: root,
		Pool: NewNodePool(cmp),
		DivePool: NewNodePool(cmp),
		strategy: strategy,
		diveStop: diveStop,
	}
	if root != nil && root.IsLeafCandidate() {
		s.Pool.Push(root)
	}
	return s
}

// SetStrategy swaps the comparator used by both pools, reheapifying
// eagerly. Used by the broker when transitioning ramp-up (always
// BestFirst) to the configured search strategy.
func (s *Subtree) SetStrategy(strategy Strategy) {
	s.strategy = strategy
	cmp := NodeComparator(strategy)
	s.Pool.SetComparator(cmp)
	s.DivePool.SetComparator(cmp)
}

// Quality returns the subtree's cached aggregate quality, used by
// SubtreePool ordering. It is the best quality among the
// main pool, the dive pool, and the active node, refreshed after every
// ExploreUnitWork call.
func (s *Subtree) Quality() float64 {
	if s.qualityValid {
		return s.quality
	}
	s.refreshQuality()
	return s.quality
}

func (s *Subtree) refreshQuality() {
	best := float64(0)
	has := false
	if q, ok := s.Pool.BestQuality(); ok {
		best, has = q, true
	}
	if q, ok := s.DivePool.BestQuality(); ok && (!has || q < best) {
		best, has = q, true
	}
	if s.Active != nil && (!has || s.Active.Quality < best) {
		best, has = s.Active.Quality, true
	}
	if s.Root != nil && !has {
		best, has = s.Root.Quality, true
	}
	s.quality = best
	s.qualityValid = true
}

// Size returns the number of open (pooled or active) nodes this subtree
// currently holds, used by splitSubTree's size estimate.
func (s *Subtree) Size() int {
	n := s.Pool.Size() + s.DivePool.Size()
	if s.Active != nil {
		n++
	}
	return n
}

func (s *Subtree) spillDive() {
	for _, n := range s.DivePool.Items() {
		s.Pool.Push(n)
	}
	s.DivePool.Clear()
	s.diving = false
	s.diveDepthCounter = 0
}

func (s *Subtree) selectNode() *Node {
	if s.strategy == Hybrid && s.diving {
		stats := DiveStats{
			DiveDepth: s.diveDepthCounter,
			SinceImprovement: s.sinceImprovementCtr,
			DivePoolSize: s.DivePool.Size(),
		}
		if s.DivePool.Size() == 0 || s.diveStop(stats) {
			s.spillDive()
		} else {
			return s.DivePool.Pop()
		}
	}
	return s.Pool.Pop()
}

func (s *Subtree) destPoolForChildren() *NodePool {
	if s.strategy == Hybrid {
		s.diving = true
		return s.DivePool
	}
	return s.Pool
}

// ExploreUnitWork is the per-worker unit of work: it processes
// nodes from the subtree's pools under the node-selection strategy
// until one of the stopping conditions in ExitStatus is hit. On exit
// for a limit or better-solution event, if leaveAsIt is false the dive
// pool is spilled back to the main pool and the active node (if any) is
// returned to the pool, so no work is stranded outside any pool.
func (s *Subtree) ExploreUnitWork(
	sink SolutionSink,
	nextIndex NextIndexFunc,
	unitNodes int,
	unitTime time.Duration,
	exitOnBetter bool,
	leaveAsIt bool,
	deleteDeadNode bool,
) (status ExitStatus, stats UnitStats, err error) {
	deadline := time.Now().Add(unitTime)

	defer func() {
		s.qualityValid = false
		if !leaveAsIt && status != StatusPoolEmpty {
			s.spillDive()
			if s.Active != nil {
				s.Pool.Push(s.Active)
				s.Active = nil
			}
		}
	}()

	for {
		if stats.NumProcessed+stats.NumPartial >= unitNodes {
			return StatusUnitNodeLimit, stats, nil
		}
		if unitTime > 0 && time.Now().After(deadline) {
			return StatusUnitTimeLimit, stats, nil
		}

		node := s.selectNode()
		if node == nil {
			return StatusPoolEmpty, stats, nil
		}
		s.Active = node

		switch node.Status {
		case Pregnant:
			triples, berr := node.App.Branch(node)
			if berr != nil {
				return status, stats, fmt.Errorf("searchtree: branch node %d: %w", node.Index, berr)
			}
			if err := node.CreateChildren(triples, s.destPoolForChildren(), nextIndex, deleteDeadNode); err != nil {
				return status, stats, err
			}
			stats.NumBranched++
			if node.Depth+1 > stats.MaxDepth {
				stats.MaxDepth = node.Depth + 1
			}
			for _, c := range node.Children {
				switch c.Status {
				case Fathomed:
					stats.NumFathomed++
				case Discarded:
					stats.NumDiscarded++
				}
			}
			s.diveDepthCounter++
			s.Active = nil

		case Candidate, Evaluated:
			isRoot := node.Parent == nil && node == s.Root
			res, perr := node.App.Process(node, isRoot, false)
			if perr != nil {
				return status, stats, fmt.Errorf("searchtree: process node %d: %w", node.Index, perr)
			}
			stats.NumProcessed++
			if node.Depth > stats.MaxDepth {
				stats.MaxDepth = node.Depth
			}
			if res.Unbounded {
				s.Active = nil
				return StatusUnbounded, stats, nil
			}
			if res.FoundBetter {
				stats.FoundBetter = true
				s.sinceImprovementCtr = 0
				appSol, serr := node.App.Solution(node)
				if serr != nil {
					return status, stats, fmt.Errorf("searchtree: extract solution at node %d: %w", node.Index, serr)
				}
				sink.AddSolution(&Solution{Value: appSol, Index: node.Index, Depth: node.Depth})
			} else {
				s.sinceImprovementCtr++
			}

			switch node.Status {
			case Fathomed:
				stats.NumFathomed++
				if node.Parent != nil {
					node.Parent.pruneDeadChild(node, deleteDeadNode)
				}
			case Discarded:
				stats.NumDiscarded++
				if node.Parent != nil {
					node.Parent.pruneDeadChild(node, deleteDeadNode)
				}
			case Pregnant:
				s.Pool.Push(node)
			case Candidate, Evaluated:
				s.Pool.Push(node)
			}
			s.Active = nil

			if res.FoundBetter && exitOnBetter {
				return StatusBetterSolution, stats, nil
			}
		default:
			return status, stats, fmt.Errorf("searchtree: InvariantViolation: popped terminal node %d (status %s)", node.Index, node.Status)
		}
	}
}

// adaptRampUpTarget implements adaptive sizing: more nodes when
// processing is fast, fewer when slow, relative to a 1ms/node
// reference, clamped to [minNodes, 50*minNodes] and to 20000.
func adaptRampUpTarget(requiredNodes, minNodes int, avgPerNode time.Duration) int {
	if avgPerNode <= 0 {
		avgPerNode = time.Millisecond
	}
	factor := float64(time.Millisecond) / float64(avgPerNode)
	target := int(float64(requiredNodes) * factor)
	if target < minNodes {
		target = minNodes
	}
	max := minNodes * 50
	if max > 20000 {
		max = 20000
	}
	if target > max {
		target = max
	}
	return target
}

// RampUp generates breadth-first-ish (whatever comparator the caller
// installed — says the broker installs BestFirst before calling
// this) to populate the pool with enough nodes to hand out to the next
// tier of the hierarchy. The number of nodes actually produced
// adapts to measured per-node processing time.
func (s *Subtree) RampUp(sink SolutionSink, nextIndex NextIndexFunc, minNodes, requiredNodes int) (numProcessed int, err error) {
	target := requiredNodes
	var totalElapsed time.Duration
	const sampleSize = 10
	timed := 0

	for s.Pool.Size()+s.DivePool.Size() < target {
		node := s.Pool.Pop()
		if node == nil {
			break
		}
		s.Active = node
		start := time.Now()

		switch node.Status {
		case Pregnant:
			triples, berr := node.App.Branch(node)
			if berr != nil {
				s.Active = nil
				return numProcessed, fmt.Errorf("searchtree: rampUp branch node %d: %w", node.Index, berr)
			}
			if err := node.CreateChildren(triples, s.Pool, nextIndex, true); err != nil {
				s.Active = nil
				return numProcessed, err
			}
		case Candidate, Evaluated:
			isRoot := node.Parent == nil && node == s.Root
			res, perr := node.App.Process(node, isRoot, true)
			if perr != nil {
				s.Active = nil
				return numProcessed, fmt.Errorf("searchtree: rampUp process node %d: %w", node.Index, perr)
			}
			numProcessed++
			if !res.Unbounded {
				if res.FoundBetter {
					appSol, serr := node.App.Solution(node)
					if serr != nil {
						s.Active = nil
						return numProcessed, fmt.Errorf("searchtree: rampUp extract solution at node %d: %w", node.Index, serr)
					}
					sink.AddSolution(&Solution{Value: appSol, Index: node.Index, Depth: node.Depth})
				}
				switch node.Status {
				case Fathomed, Discarded:
					if node.Parent != nil {
						node.Parent.pruneDeadChild(node, true)
					}
				default:
					s.Pool.Push(node)
				}
			}

			if timed < sampleSize {
				totalElapsed += time.Since(start)
				timed++
				if timed == sampleSize {
					target = adaptRampUpTarget(requiredNodes, minNodes, totalElapsed/sampleSize)
				}
			}
		default:
			s.Active = nil
			return numProcessed, fmt.Errorf("searchtree: rampUp InvariantViolation: popped terminal node %d", node.Index)
		}
		s.Active = nil
	}
	s.qualityValid = false
	return numProcessed, nil
}

// collectReachable walks root's subtree depth-first, pre-order.
func collectReachable(root *Node) []*Node {
	if root == nil {
		return nil
	}
	out := []*Node{root}
	for _, c := range root.Children {
		out = append(out, collectReachable(c)...)
	}
	return out
}

// countOpen counts open (Candidate/Evaluated/Pregnant) nodes reachable
// from root; this realizes "estimating the number of open nodes
// in the subtree rooted at the current ancestor by depth-first counting
// with a sentMark" — sentMark itself is set on every visited node;
// nothing reads it afterwards, and SplitSubTree's partition pass builds
// its own reachable set instead.
func countOpen(root *Node) int {
	n := 0
	for _, node := range collectReachable(root) {
		node.SentMark = true
		if node.IsLeafCandidate() {
			n++
		}
	}
	return n
}

// averageEncodedNodeSize is a rough per-node byte estimate used by
// SplitSubTree's "large message" cap; a real deployment would measure
// this from a sample Encode call, but a fixed estimate keeps the
// heuristic's shape faithful to the source without requiring a model
// instance just to size a split decision.
const averageEncodedNodeSize = 128

// SplitSubTree partitions this subtree for inter-cluster donation:
// flatten the dive pool, find the best (lowest-quality) leaf, walk
// toward the root estimating open-node count at each ancestor,
// and stop at the first ancestor whose subtree either exceeds
// one-sixth of this subtree's total open-node count or whose estimated
// encoded size exceeds largeMessageThreshold bytes. Returns nil if no
// ancestor satisfies the estimate before the root, or if the candidate
// piece would be smaller than 2 nodes.
func (s *Subtree) SplitSubTree(largeMessageThreshold int) (*Subtree, int, error) {
	s.spillDive()

	leaf := s.Pool.BestNode()
	if leaf == nil {
		return nil, 0, nil
	}

	total := s.Size()
	threshold := total / 6
	if threshold < 1 {
		threshold = 1
	}

	var chosen *Node
	cur := leaf
	for cur.Parent != nil {
		ancestor := cur.Parent
		count := countOpen(ancestor)
		estimatedBytes := count * averageEncodedNodeSize
		if count > threshold || estimatedBytes > largeMessageThreshold {
			chosen = ancestor
			break
		}
		cur = ancestor
	}
	if chosen == nil {
		return nil, 0, nil
	}

	outSize := countOpen(chosen)
	if outSize < 2 {
		return nil, 0, nil
	}

	chosen.Desc.SetExplicit(true)

	if parent := chosen.Parent; parent != nil {
		kept := make([]*Node, 0, len(parent.Children)-1)
		for _, c := range parent.Children {
			if c != chosen {
				kept = append(kept, c)
			}
		}
		parent.Children = kept
		parent.NumChildren = len(kept)
	}
	chosen.Parent = nil

	reachable := make(map[*Node]bool)
	for _, n := range collectReachable(chosen) {
		reachable[n] = true
	}

	newSub := NewSubtree(nil, s.strategy, s.diveStop)
	newSub.Root = chosen
	if chosen.IsLeafCandidate() {
		newSub.Pool.Push(chosen)
	}

	remaining := make([]*Node, 0, s.Pool.Size())
	for _, n := range s.Pool.Items() {
		if n == chosen {
			continue
		}
		if reachable[n] {
			newSub.Pool.Push(n)
		} else {
			remaining = append(remaining, n)
		}
	}
	s.Pool = NewNodePool(NodeComparator(s.strategy))
	for _, n := range remaining {
		s.Pool.Push(n)
	}
	s.qualityValid = false

	return newSub, outSize, nil
}

// --- encode / decode ---

const (
	poolLocationNone = iota
	poolLocationMain
	poolLocationDive
	poolLocationActive
)

func (s *Subtree) locationOf(n *Node) int {
	if s.Active == n {
		return poolLocationActive
	}
	if s.Pool.IndexOf(n) >= 0 {
		return poolLocationMain
	}
	if s.DivePool.IndexOf(n) >= 0 {
		return poolLocationDive
	}
	return poolLocationNone
}

// Encode writes every node reachable from root in depth-first pre-order:
// index, parentIndex, depth, status, quality, solEstimate, pool
// location, the explicit/partial flag, then the application's NodeDesc
// encoding and any extra AppNode-level fields.
func (s *Subtree) Encode(buf *encoded.Buffer) {
	buf.WriteInt32(int32(s.strategy))
	nodes := collectReachable(s.Root)
	buf.WriteUint32(uint32(len(nodes)))
	for _, n := range nodes {
		buf.WriteInt32(int32(n.Index))
		buf.WriteInt32(int32(n.ParentIndex))
		buf.WriteInt32(int32(n.Depth))
		buf.WriteInt32(int32(n.Status))
		buf.WriteFloat64(n.Quality)
		buf.WriteFloat64(n.SolEstimate)
		buf.WriteInt32(int32(s.locationOf(n)))
		explicit := n.Desc != nil && n.Desc.Explicit()
		buf.WriteBool(explicit)
		if n.Desc != nil {
			n.Desc.Encode(buf)
		}
		if n.App != nil {
			n.App.Encode(n, buf)
		}
	}
}

// DecodeSubtree rebuilds a Subtree from buf, wiring parent/child
// pointers by matching parentIndex and restoring pool membership from
// each node's recorded location. decodeDesc reconstructs one
// application NodeDesc per node; app supplies the shared, stateless
// AppNode behavior bound to every reconstructed Node.
func DecodeSubtree(buf *encoded.Buffer, app AppNode, decodeDesc func(buf *encoded.Buffer, explicit bool) (NodeDesc, error), diveStop DiveStopPredicate) (*Subtree, error) {
	strategyRaw, err := buf.ReadInt32()
	if err != nil {
		return nil, err
	}
	strategy := Strategy(strategyRaw)

	n, err := buf.ReadUint32()
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]*Node, n)
	order := make([]*Node, 0, n)
	locations := make([]int32, 0, n)

	for i := uint32(0); i < n; i++ {
		index, err := buf.ReadInt32()
		if err != nil {
			return nil, err
		}
		parentIndex, err := buf.ReadInt32()
		if err != nil {
			return nil, err
		}
		depth, err := buf.ReadInt32()
		if err != nil {
			return nil, err
		}
		statusRaw, err := buf.ReadInt32()
		if err != nil {
			return nil, err
		}
		quality, err := buf.ReadFloat64()
		if err != nil {
			return nil, err
		}
		solEstimate, err := buf.ReadFloat64()
		if err != nil {
			return nil, err
		}
		location, err := buf.ReadInt32()
		if err != nil {
			return nil, err
		}
		explicit, err := buf.ReadBool()
		if err != nil {
			return nil, err
		}
		desc, err := decodeDesc(buf, explicit)
		if err != nil {
			return nil, err
		}

		node := &Node{
			Index: int(index),
			ParentIndex: int(parentIndex),
			Depth: int(depth),
			Status: Status(statusRaw),
			Quality: quality,
			SolEstimate: solEstimate,
			Desc: desc,
			App: app,
		}
		byIndex[node.Index] = node
		order = append(order, node)
		locations = append(locations, location)
	}

	var root *Node
	for _, n := range order {
		if n.ParentIndex == -1 {
			root = n
			continue
		}
		parent, ok := byIndex[n.ParentIndex]
		if !ok {
			continue
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
		parent.NumChildren = len(parent.Children)
	}
	if root == nil && len(order) > 0 {
		root = order[0]
	}

	sub := NewSubtree(nil, strategy, diveStop)
	sub.Root = root

	for i, n := range order {
		switch locations[i] {
		case poolLocationMain:
			sub.Pool.Push(n)
		case poolLocationDive:
			sub.DivePool.Push(n)
		case poolLocationActive:
			sub.Active = n
		}
	}
	return sub, nil
}
