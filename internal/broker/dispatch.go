// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import (
	"context"

	"github.com/oss-hpc/alpsearch/internal/log"
	"github.com/oss-hpc/alpsearch/internal/transport"
	"github.com/oss-hpc/alpsearch/pkg/encoded"
	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

func (b *Broker) decodeSubtreeBytes(tag string, data []byte) (*searchtree.Subtree, error) {
	if len(data) == 0 {
		return nil, nil
	}
	buf := encoded.NewFromBytes(tag, data)
	return searchtree.DecodeSubtree(buf, b.model.AppNode(), b.model.DecodeNodeDesc, b.params.DiveStop)
}

func (b *Broker) leastLoadedWorker() int {
	members := b.topology.ClusterMembers[b.rank]
	if len(members) == 0 {
		return b.rank
	}
	best := members[0]
	bestQty := -1
	for _, w := range members {
		qty := b.workerReports[w].Quantity
		if bestQty == -1 || qty < bestQty {
			best, bestQty = w, qty
		}
	}
	return best
}

// dispatch routes an inbound envelope to its handler by tag.
func (b *Broker) dispatch(ctx context.Context, env transport.Envelope) error {
	switch env.Tag {
	case TagWorkerStatus:
		report, err := decodeStatusReport(TagWorkerStatus, env.Payload)
		if err != nil {
			return err
		}
		b.workerReports[env.SrcRank] = report

	case TagHubPeriodReport:
		report, err := decodeStatusReport(TagHubPeriodReport, env.Payload)
		if err != nil {
			return err
		}
		b.hubReports[env.SrcRank] = report

	case TagTellMasterRecv:
		if b.outstandingMasterDonations > 0 {
			b.outstandingMasterDonations--
		}

	case TagTellHubRecv:
		if b.outstandingHubDonations > 0 {
			b.outstandingHubDonations--
		}

	case TagWorkerNeedWork:
		donor := b.mostLoadedWorker()
		if donor == 0 {
			return nil
		}
		return b.send(ctx, donor, TagAskDonate, encodeDestRank(TagAskDonate, env.SrcRank))

	case TagAskHubShare:
		receiverHub, err := decodeDestRank(TagAskHubShare, env.Payload)
		if err != nil {
			return err
		}
		return b.donateToHub(ctx, receiverHub)

	case TagAskDonate:
		receiver, err := decodeDestRank(TagAskDonate, env.Payload)
		if err != nil {
			return err
		}
		if err := b.donateWork(ctx, receiver, TagSubTree); err != nil {
			return err
		}
		return b.send(ctx, b.topology.HubOfRank[b.rank], TagTellHubRecv, nil)

	case TagAskDonateToHub:
		receiverHub, err := decodeDestRank(TagAskDonateToHub, env.Payload)
		if err != nil {
			return err
		}
		if err := b.donateWork(ctx, receiverHub, TagSubTreeByMaster); err != nil {
			return err
		}
		return b.send(ctx, 0, TagTellMasterRecv, nil)

	case TagAskDonateToWorker:
		receiver, err := decodeDestRank(TagAskDonateToWorker, env.Payload)
		if err != nil {
			return err
		}
		return b.donateWork(ctx, receiver, TagSubTreeByWorker)

	case TagSubTree, TagSubTreeByWorker:
		sub, err := b.decodeSubtreeBytes(env.Tag, env.Payload)
		if err != nil {
			return err
		}
		if sub != nil {
			b.subtreePool.Push(sub)
			if b.subtree == nil {
				b.subtree = b.subtreePool.Pop()
			}
		}

	case TagSubTreeByMaster:
		sub, err := b.decodeSubtreeBytes(env.Tag, env.Payload)
		if err != nil {
			return err
		}
		if sub == nil {
			return nil
		}
		target := b.leastLoadedWorker()
		if target == b.rank {
			b.subtreePool.Push(sub)
			return nil
		}
		return b.sendSubtree(ctx, target, TagSubTree, sub)

	case TagIncumbentTwo:
		payload, err := decodeIncumbent(env.Payload)
		if err != nil {
			return err
		}
		return b.propagateIncumbent(ctx, payload)

	case TagAskPause:
		return b.enterPausedMode(ctx, TagWorkerTermStatus, b.topology.HubOfRank[b.rank])

	case TagAskHubPause:
		b.terminationCheckMode = true
		b.termWorkerReplies = make(map[int]StatusReport)
		for _, w := range b.topology.ClusterMembers[b.rank] {
			if err := b.send(ctx, w, TagAskPause, nil); err != nil {
				return err
			}
		}
		return b.hubRelayTermination(ctx)

	case TagWorkerTermStatus:
		report, err := decodeStatusReport(TagWorkerTermStatus, env.Payload)
		if err != nil {
			return err
		}
		b.termWorkerReplies[env.SrcRank] = report
		if b.role == RoleHub {
			return b.hubRelayTermination(ctx)
		}
		return b.maybeFinalizeTermination(ctx)

	case TagHubTermStatus:
		report, err := decodeStatusReport(TagHubTermStatus, env.Payload)
		if err != nil {
			return err
		}
		b.termHubReplies[env.SrcRank] = report
		return b.maybeFinalizeTermination(ctx)

	case TagContOrTerm:
		terminate, err := decodeContOrTerm(env.Payload)
		if err != nil {
			return err
		}
		b.applyContOrTerm(terminate)

	case TagForceTerm:
		b.forceTerminate = true

	case TagFinishInit:
		b.rampUpDone = true

	case TagHubAskIndices:
		lo, hi, err := b.allocator.NextBatch(indexBatchSize)
		if err != nil {
			return err
		}
		return b.send(ctx, env.SrcRank, TagIndicesFromMaster, encodeRange(TagIndicesFromMaster, lo, hi))

	case TagWorkerAskIndices:
		lo, hi, err := b.allocator.NextBatch(indexBatchSize)
		if err != nil {
			return err
		}
		return b.send(ctx, env.SrcRank, TagIndicesFromHub, encodeRange(TagIndicesFromHub, lo, hi))

	case TagModel:
		// Every process builds its model locally, so no rank sends
		// Model; an arrival is ignored.

	default:
		log.Warnf("broker: rank %d ignoring unrecognized tag %q from rank %d", b.rank, env.Tag, env.SrcRank)
	}
	return nil
}
