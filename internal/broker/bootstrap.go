// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import (
	"context"
	"time"

	"github.com/oss-hpc/alpsearch/pkg/encoded"
	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

const rampUpPollPeriod = 100 * time.Millisecond

// Bootstrap runs the ramp-up phase ("Ramp-up" paragraph) and
// leaves b.subtree populated with this process's initial share of the
// tree, under the configured search strategy. Call once before Run.
func (b *Broker) Bootstrap(ctx context.Context) error {
	switch b.role {
	case RoleMaster:
		return b.bootstrapMaster(ctx)
	case RoleHub:
		return b.bootstrapHub(ctx)
	default:
		return b.bootstrapWorker(ctx)
	}
}

// bootstrapMaster seeds a fresh root, ramps it up under BestFirst
// (ramp-up-is-always-best-first rule), then round-robins the
// resulting pool over hubComm — itself included as hub 0.
func (b *Broker) bootstrapMaster(ctx context.Context) error {
	rootIdx, err := b.nextIndex()
	if err != nil {
		return err
	}
	root, err := searchtree.CreateNewTreeNode(rootIdx, b.model)
	if err != nil {
		return err
	}
	sub := searchtree.NewSubtree(root, searchtree.BestFirst, b.params.DiveStop)
	if _, err := sub.RampUp(subtreeSink{b}, b.nextIndex, b.params.MasterInitNodeNum, b.params.MasterInitNodeNum*len(b.topology.HubRanks)); err != nil {
		return err
	}

	var otherHubs []int
	for _, h := range b.topology.HubRanks {
		if h != 0 {
			otherHubs = append(otherHubs, h)
		}
	}
	groups := len(otherHubs) + 1

	ownSeeds := searchtree.NewSubtree(nil, searchtree.BestFirst, b.params.DiveStop)
	i := 0
	for {
		node := sub.Pool.Pop()
		if node == nil {
			break
		}
		slot := i % groups
		if slot == 0 {
			ownSeeds.Pool.Push(node)
		} else if err := b.sendNodeDesc(ctx, otherHubs[slot-1], node); err != nil {
			return err
		}
		i++
	}
	for _, h := range otherHubs {
		if err := b.send(ctx, h, TagFinishInit, nil); err != nil {
			return err
		}
	}

	return b.actAsHub(ctx, ownSeeds)
}

func (b *Broker) bootstrapHub(ctx context.Context) error {
	seedSub, err := b.receiveSeeds(ctx)
	if err != nil {
		return err
	}
	return b.actAsHub(ctx, seedSub)
}

func (b *Broker) bootstrapWorker(ctx context.Context) error {
	seedSub, err := b.receiveSeeds(ctx)
	if err != nil {
		return err
	}
	seedSub.SetStrategy(b.params.SearchStrategy)
	b.subtree = seedSub
	return nil
}

// actAsHub is the bootstrap step every hub (including the master
// acting as hub 0) performs once it has its own seed pool: ramp it up
// to seed every worker in its cluster, hand every pooled node out
// round-robin to those workers, and keep the subtree as its own
// working subtree. Its pool is left empty when the cluster has
// workers, and keeps every node when it has none.
func (b *Broker) actAsHub(ctx context.Context, seeds *searchtree.Subtree) error {
	workers := b.topology.ClusterMembers[b.rank]
	required := b.params.HubInitNodeNum
	if len(workers) > 0 {
		required = b.params.HubInitNodeNum * len(workers)
	}
	if _, err := seeds.RampUp(subtreeSink{b}, b.nextIndex, b.params.HubInitNodeNum, required); err != nil {
		return err
	}
	seeds.SetStrategy(b.params.SearchStrategy)
	if err := b.distributeSeeds(ctx, seeds, workers); err != nil {
		return err
	}
	b.subtree = seeds
	return nil
}

// distributeSeeds round-robins sub's pooled nodes to targets as bare
// NodeDesc messages, then signals FinishInit to every target — the
// distinguished end-of-ramp-up marker.
func (b *Broker) distributeSeeds(ctx context.Context, sub *searchtree.Subtree, targets []int) error {
	if len(targets) == 0 {
		return nil
	}
	i := 0
	for {
		node := sub.Pool.Pop()
		if node == nil {
			break
		}
		dst := targets[i%len(targets)]
		if err := b.sendNodeDesc(ctx, dst, node); err != nil {
			return err
		}
		i++
	}
	for _, t := range targets {
		if err := b.send(ctx, t, TagFinishInit, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broker) sendNodeDesc(ctx context.Context, dst int, node *searchtree.Node) error {
	buf := encoded.New(TagNode)
	buf.WriteBool(node.Desc.Explicit())
	node.Desc.Encode(buf)
	return b.send(ctx, dst, TagNode, buf.Bytes())
}

// receiveSeeds blocks until this process's FinishInit arrives,
// collecting every Node in between into a fresh Subtree. Any other tag
// received meanwhile (load-balancing traffic arriving early is
// possible but rare) is handled through the normal dispatch table so
// it isn't lost.
func (b *Broker) receiveSeeds(ctx context.Context) (*searchtree.Subtree, error) {
	sub := searchtree.NewSubtree(nil, searchtree.BestFirst, b.params.DiveStop)
	for {
		env, ok := b.mailbox.Poll(rampUpPollPeriod)
		if !ok {
			continue
		}
		switch env.Tag {
		case TagNode:
			buf := encoded.NewFromBytes(TagNode, env.Payload)
			explicit, err := buf.ReadBool()
			if err != nil {
				return nil, err
			}
			idx, err := b.nextIndex()
			if err != nil {
				return nil, err
			}
			node, err := searchtree.DecodeNodeFromDesc(buf, idx, b.model, explicit)
			if err != nil {
				return nil, err
			}
			sub.Pool.Push(node)
		case TagFinishInit:
			return sub, nil
		default:
			if err := b.dispatch(ctx, env); err != nil {
				return nil, err
			}
		}
	}
}
