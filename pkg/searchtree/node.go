// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package searchtree implements the core search-tree data model:
// TreeNode, NodeDesc, Solution, the node/subtree/solution pools, and
// the Subtree container. Responsibilities are split across files the
// way the original CHiPPS-ALPS sources split them one class per file
// (AlpsTreeNode, AlpsNodePool, AlpsSubTree,...), but inheritance is
// replaced by a tagged interface plus a shared, stateless behavior
// object (see the "Polymorphic TreeNode" design note in DESIGN.md).
package searchtree

import (
	"fmt"

	"github.com/oss-hpc/alpsearch/pkg/encoded"
)

// Status is one of the six node life-cycle states.
type Status int

const (
	Candidate Status = iota
	Evaluated
	Pregnant
	Branched
	Fathomed
	Discarded
)

func (s Status) String() string {
	switch s {
	case Candidate:
		return "Candidate"
	case Evaluated:
		return "Evaluated"
	case Pregnant:
		return "Pregnant"
	case Branched:
		return "Branched"
	case Fathomed:
		return "Fathomed"
	case Discarded:
		return "Discarded"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is one of the life-cycle's terminal states.
func (s Status) Terminal() bool {
	return s == Branched || s == Fathomed || s == Discarded
}

var legalTransitions = map[Status]map[Status]bool{
	Candidate: {Candidate: true, Evaluated: true, Pregnant: true, Fathomed: true, Discarded: true},
	Evaluated: {Evaluated: true, Pregnant: true, Fathomed: true},
	Pregnant: {Branched: true},
}

// NodeDesc is the opaque application payload attached to a node.
// The core never inspects its fields; it only needs to move it across a
// process boundary (Encode) and duplicate it cheaply when diffing a
// child against its parent (Clone).
type NodeDesc interface {
	// Encode appends this description's fields to buf. The matching
	// decode lives on the application's Model (see DecodeNodeDesc in
	// model.go), mirroring the source's decodeToSelf.
	Encode(buf *encoded.Buffer)

	// Clone returns a shallow, independent copy suitable for either a
	// full or a differenced ("explicit" vs not) child description.
	Clone() NodeDesc

	// Explicit reports whether this description is a full (vs
	// parent-differenced) representation.
	Explicit() bool

	// SetExplicit flips the full/differenced flag; used by
	// Subtree.splitSubTree to materialise a detached ancestor
	// before handing it to another process.
	SetExplicit(bool)
}

// ChildSpec is one of the (desc, initialStatus, quality) triples
// returned by AppNode.Branch (createChildren contract).
type ChildSpec struct {
	Desc NodeDesc
	Status Status
	Quality float64
}

// ProcessResult is returned by AppNode.Process.
type ProcessResult struct {
	// FoundBetter is true when processing this node produced a new
	// incumbent solution (added to the broker's solution pool).
	FoundBetter bool
	// Unbounded, when true, converts to exit status Unbounded and
	// is propagated by the broker; the search cannot be completed.
	Unbounded bool
}

// AppNode is the behavior half of the application's TreeNode contract:
// process(isRoot, rampUp) and branch(). It is intentionally
// stateless and shared by every Node of one application run — Go has
// no class hierarchy to subclass per node, so rather than one AppNode
// instance per Node (which would just duplicate the same vtable), every
// Node carries a pointer to the single shared AppNode for its model and
// passes itself in; CreateNewTreeNode exists on the Model (see Model in
// model.go) instead of on AppNode for the same reason.
type AppNode interface {
	// Process mutates n's own Quality/SolEstimate and returns via
	// ProcessResult whether a new incumbent was found. isRoot is true
	// only for the tree's root; ramp is true during the ramp-up phase
	// (rampUp), in which the application may want to skip
	// expensive bounding.
	Process(n *Node, isRoot, ramp bool) (ProcessResult, error)

	// Branch is called exactly when n.Status == Pregnant.
	Branch(n *Node) ([]ChildSpec, error)

	// Encode appends n's application-visible fields (those not already
	// covered by NodeDesc) to buf. Most applications leave this a
	// no-op and carry everything in NodeDesc; it exists for parity
	// with the source's AlpsTreeNode::encode.
	Encode(n *Node, buf *encoded.Buffer)

	// Solution extracts n's AppSolution immediately after a Process
	// call reports ProcessResult.FoundBetter — the Go counterpart of
	// the source's inline getKnowledgeBroker()->addKnowledge call
	// inside KnapTreeNode::process, pulled out into its own method
	// since Go's Process has no broker reference to call into.
	Solution(n *Node) (AppSolution, error)
}

// Node is a vertex of the search tree. Children are owned
// (Children); Parent is a non-owning back reference used only for
// upward pruning ("Cyclic parent/child references") and is cleared
// the moment a node is freed so it cannot dangle.
type Node struct {
	Index int
	Depth int
	ParentIndex int
	Parent *Node
	Children []*Node
	NumChildren int

	Quality float64
	SolEstimate float64
	Status Status
	Active bool
	SentMark bool

	Desc NodeDesc
	App AppNode
}

// NewRootNode constructs the tree's root. Its parentIndex is -1 (no
// parent).
func NewRootNode(index int, desc NodeDesc, app AppNode) *Node {
	return &Node{
		Index: index,
		Depth: 0,
		ParentIndex: -1,
		Desc: desc,
		App: app,
		Status: Candidate,
	}
}

// SetStatus enforces the legal transition table above. Quality is
// never relaxed elsewhere in this package; callers that tighten quality
// do so directly on n.Quality before or after the transition.
func (n *Node) SetStatus(next Status) error {
	if n.Status == next {
		// Candidate->Candidate / Evaluated->Evaluated (re-processed,
		// still not pregnant) are both explicitly legal no-ops.
		if n.Status == Candidate || n.Status == Evaluated {
			return nil
		}
	}
	allowed, ok := legalTransitions[n.Status]
	if !ok || !allowed[next] {
		return fmt.Errorf("searchtree: illegal status transition %s -> %s for node %d", n.Status, next, n.Index)
	}
	n.Status = next
	return nil
}

// IsLeafCandidate reports whether n still needs work done on it: a
// Candidate, Evaluated or Pregnant (not yet branched) node is "open" in
// the sense used by splitSubTree's leaf-counting walk; terminal nodes
// are not.
func (n *Node) IsLeafCandidate() bool {
	return n.Status == Candidate || n.Status == Evaluated || n.Status == Pregnant
}

// CreateChildren materialises the triples returned by AppNode.Branch:
// allocates a child Node per triple, assigns it a fresh index via
// nextIndex, wires parent/child pointers, and pushes it into
// destPool (the dive pool while diving, the subtree's main pool
// otherwise). If a child is born Fathomed or Discarded, the tree is
// pruned upward: when a parent's live-child count drops to zero and
// the parent is itself terminal, the parent is freed too, provided
// deleteDeadNode is set ("deletePrunedNodes under fathom all").
//
// parent must be Pregnant on entry; it is left Branched on success.
func (parent *Node) CreateChildren(triples []ChildSpec, destPool *NodePool, nextIndex func() (int, error), deleteDeadNode bool) error {
	if parent.Status != Pregnant {
		return fmt.Errorf("searchtree: CreateChildren called on non-Pregnant node %d (status %s)", parent.Index, parent.Status)
	}
	if len(triples) == 0 {
		return fmt.Errorf("searchtree: InvariantViolation: Pregnant node %d branched into zero children", parent.Index)
	}

	children := make([]*Node, 0, len(triples))
	for _, t := range triples {
		idx, err := nextIndex()
		if err != nil {
			return err
		}
		child := &Node{
			Index: idx,
			Depth: parent.Depth + 1,
			ParentIndex: parent.Index,
			Parent: parent,
			Desc: t.Desc,
			App: parent.App,
			Status: t.Status,
			Quality: t.Quality,
		}
		children = append(children, child)
	}

	parent.Children = children
	parent.NumChildren = len(children)
	if err := parent.SetStatus(Branched); err != nil {
		return err
	}

	for _, child := range children {
		if child.Status.Terminal() {
			parent.pruneDeadChild(child, deleteDeadNode)
			continue
		}
		destPool.Push(child)
	}
	return nil
}

// pruneDeadChild detaches a terminal child from its parent's live set.
// When deleteDeadNode is set and the parent has no remaining live
// children and is itself terminal, the parent is recursively detached
// from its own parent too — this is the "no work is lost on branching"
// invariant's complement: dead weight does not linger forever. Only no
// *open* leaves may be lost — terminal bookkeeping nodes are free to
// go.
func (parent *Node) pruneDeadChild(child *Node, deleteDeadNode bool) {
	if !deleteDeadNode {
		return
	}
	child.Parent = nil

	// live counts children not yet pruned by some earlier call, not just
	// this one: a sibling pruned in a prior call also has Parent == nil,
	// and must not keep counting as live here.
	live := 0
	for _, c := range parent.Children {
		if c != nil && c.Parent != nil {
			live++
		}
	}
	allTerminal := true
	for _, c := range parent.Children {
		if c == child {
			continue
		}
		if c != nil && !c.Status.Terminal() {
			allTerminal = false
			break
		}
	}
	if live == 0 && allTerminal && parent.Status.Terminal() && parent.Parent != nil {
		gp := parent.Parent
		gp.pruneDeadChild(parent, deleteDeadNode)
	}
}
