// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import "github.com/oss-hpc/alpsearch/pkg/encoded"

// Model is the application's entry point into the engine: it
// knows how to produce a root NodeDesc, decode one that arrived over
// the wire, and report the shared, stateless AppNode behavior every
// Node of this run carries. A Model is constructed once per process
// and handed to the broker at startup; the broker never constructs a
// Model itself.
//
// Keeping CreateNewTreeNode here rather than on AppNode is what
// replaces the source's polymorphic TreeNode subclassing: in C++ each
// application subclasses AlpsTreeNode and AlpsModel together and the
// virtual dispatch table does the rest. Go has no class hierarchy to
// subclass, so the per-application behavior is pulled out into one
// stateless AppNode value the Model hands out, and every Node just
// carries a pointer to it.
type Model interface {
	// CreateRoot builds the initial NodeDesc for a fresh search; only
	// the master constructs the root node.
	CreateRoot() (NodeDesc, error)

	// DecodeNodeDesc reconstructs a NodeDesc from its wire encoding;
	// explicit reports whether the encoding is a full (vs
	// parent-differenced) representation, mirroring NodeDesc.Explicit.
	DecodeNodeDesc(buf *encoded.Buffer, explicit bool) (NodeDesc, error)

	// DecodeSolution reconstructs an AppSolution from its wire encoding.
	DecodeSolution(buf *encoded.Buffer) (AppSolution, error)

	// AppNode returns the single shared behavior object bound to every
	// Node this Model produces or decodes.
	AppNode() AppNode
}

// CreateNewTreeNode builds the root Node of a fresh search tree from
// model, wiring in its shared AppNode behavior (NodeDesc-only
// construction contract). index is normally allocated from the
// master's pkg/index.Allocator.
func CreateNewTreeNode(index int, model Model) (*Node, error) {
	desc, err := model.CreateRoot()
	if err != nil {
		return nil, err
	}
	return NewRootNode(index, desc, model.AppNode()), nil
}

// DecodeNodeFromDesc rebuilds a single Node (not a whole Subtree) from
// a bare NodeDesc encoding — used when a ramp-up seed or a donated
// single node travels alone rather than as part of a Subtree.Encode
// dump.
func DecodeNodeFromDesc(buf *encoded.Buffer, index int, model Model, explicit bool) (*Node, error) {
	desc, err := model.DecodeNodeDesc(buf, explicit)
	if err != nil {
		return nil, err
	}
	return &Node{
		Index: index,
		ParentIndex: -1,
		Desc: desc,
		App: model.AppNode(),
		Status: Candidate,
	}, nil
}
