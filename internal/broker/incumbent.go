// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import "context"

// incumbentChildren returns the at-most-two ranks this process should
// re-broadcast to in the balanced binary tree rooted at originRank:
// every rank is conceptually renumbered so originRank is sequence 0,
// then leftSeq = 2*mySeq+1, rightSeq = 2*mySeq+2.
func incumbentChildren(myRank, originRank, nprocs int) []int {
	seq := (myRank - originRank + nprocs) % nprocs
	children := make([]int, 0, 2)
	for _, childSeq := range [2]int{2*seq + 1, 2*seq + 2} {
		if childSeq >= nprocs {
			continue
		}
		childRank := (originRank + childSeq) % nprocs
		children = append(children, childRank)
	}
	return children
}

// adoptIncumbent applies (quality, originId) lexicographic
// adoption rule: strictly better quality, or equal quality with a
// smaller originId, replaces the current incumbent. Returns true if p
// was adopted.
func (b *Broker) adoptIncumbent(p incumbentPayload) bool {
	if b.incumbentQuality == nil || p.Quality < *b.incumbentQuality ||
		(p.Quality == *b.incumbentQuality && p.OriginID < b.incumbentOrigin) {
		q := p.Quality
		b.incumbentQuality = &q
		b.incumbentOrigin = p.OriginID
		return true
	}
	return false
}

// propagateIncumbent adopts and re-broadcasts p to this rank's two
// children in the binary tree rooted at p.OriginID, if p improves on
// what this process already knows. Idempotent under the
// (quality, originId) key: a duplicate or reordered delivery is simply
// not adopted twice, so the storm dies out within one log-N round per
// improvement.
func (b *Broker) propagateIncumbent(ctx context.Context, p incumbentPayload) error {
	if !b.adoptIncumbent(p) {
		return nil
	}
	payload := encodeIncumbent(p)
	for _, child := range incumbentChildren(b.rank, p.OriginID, b.topology.NProcs) {
		if err := b.send(ctx, child, TagIncumbentTwo, payload); err != nil {
			return err
		}
	}
	return nil
}

// announceLocalIncumbent is called when this process's own subtree
// discovers a new best solution: it originates a fresh incumbent
// broadcast rooted at its own rank.
func (b *Broker) announceLocalIncumbent(ctx context.Context, quality float64) error {
	p := incumbentPayload{Quality: quality, OriginID: b.rank}
	return b.propagateIncumbent(ctx, p)
}
