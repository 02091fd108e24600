// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import (
	"context"
	"math"
	"sort"
)

// classifyAndPair implements two-rhythm classification, shared
// between the hub's intra-cluster pass and the master's inter-cluster
// pass (the algorithm is identical one granularity level up — workers
// vs hubs). It returns (donorRank, receiverRank) pairs, donors paired
// to receivers in greatest-quality order.
//
// Quantity balance takes priority: if any participant's Quantity is
// below needWorkThreshold, every participant whose Quantity exceeds it
// becomes a donor, forced to balance quantity regardless of quality.
// Only when there are no quantity receivers does quality balance run:
// participants below the mean quality by more than donorThreshold
// (as a fraction of the mean) are donors; participants above the mean
// by more than receiverThreshold are receivers.
func classifyAndPair(reports map[int]StatusReport, needWorkThreshold int, donorThreshold, receiverThreshold float64) [][2]int {
	if len(reports) == 0 {
		return nil
	}

	var quantityReceivers, quantityDonors []int
	for rank, r := range reports {
		if r.Quantity < needWorkThreshold {
			quantityReceivers = append(quantityReceivers, rank)
		}
	}
	if len(quantityReceivers) > 0 {
		for rank, r := range reports {
			if r.Quantity > needWorkThreshold {
				quantityDonors = append(quantityDonors, rank)
			}
		}
		sort.Slice(quantityDonors, func(i, j int) bool {
			return reports[quantityDonors[i]].Quantity > reports[quantityDonors[j]].Quantity
		})
		sort.Slice(quantityReceivers, func(i, j int) bool {
			return reports[quantityReceivers[i]].Quantity < reports[quantityReceivers[j]].Quantity
		})
		return pairUp(quantityDonors, quantityReceivers)
	}

	sum := 0.0
	for _, r := range reports {
		sum += r.Quality
	}
	avg := sum / float64(len(reports))

	var donors, receivers []int
	for rank, r := range reports {
		var deviation float64
		if avg != 0 {
			deviation = (avg - r.Quality) / math.Abs(avg)
		} else {
			deviation = avg - r.Quality
		}
		switch {
		case deviation > donorThreshold:
			donors = append(donors, rank)
		case deviation < -receiverThreshold:
			receivers = append(receivers, rank)
		}
	}
	sort.Slice(donors, func(i, j int) bool { return reports[donors[i]].Quality < reports[donors[j]].Quality })
	sort.Slice(receivers, func(i, j int) bool { return reports[receivers[i]].Quality > reports[receivers[j]].Quality })
	return pairUp(donors, receivers)
}

func pairUp(donors, receivers []int) [][2]int {
	n := len(donors)
	if len(receivers) < n {
		n = len(receivers)
	}
	pairs := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2]int{donors[i], receivers[i]})
	}
	return pairs
}

// runIntraClusterBalance is the hub's half of: once every worker
// in this hub's cluster has reported at least once, and no donation is
// still outstanding (to avoid oversubscription), pair donors to
// receivers and ask each donor worker to send a subtree directly to
// its paired receiver.
func (b *Broker) runIntraClusterBalance(ctx context.Context) error {
	if !b.params.IntraClusterBalance || b.outstandingHubDonations > 0 {
		return nil
	}
	members := b.topology.ClusterMembers[b.rank]
	for _, w := range members {
		if _, ok := b.workerReports[w]; !ok {
			return nil
		}
	}
	pairs := classifyAndPair(b.workerReports, b.params.NeedWorkThreshold, b.params.DonorThreshold, b.params.ReceiverThreshold)
	for _, pair := range pairs {
		donor, receiver := pair[0], pair[1]
		if err := b.send(ctx, donor, TagAskDonate, encodeDestRank(TagAskDonate, receiver)); err != nil {
			return err
		}
		b.outstandingHubDonations++
	}
	return nil
}

// runInterClusterBalance is the master's half of: identical
// classification at hub granularity, with one level of indirection —
// the master tells the donor hub who the receiver hub is via
// AskHubShare; the hub itself picks which of its workers actually
// sends the subtree.
func (b *Broker) runInterClusterBalance(ctx context.Context) error {
	if !b.params.InterClusterBalance || b.outstandingMasterDonations > 0 {
		return nil
	}
	for _, h := range b.topology.HubRanks {
		if h == b.rank {
			continue
		}
		if _, ok := b.hubReports[h]; !ok {
			return nil
		}
	}
	reports := make(map[int]StatusReport, len(b.hubReports)+1)
	for k, v := range b.hubReports {
		reports[k] = v
	}
	reports[b.rank] = b.selfHubReport()

	pairs := classifyAndPair(reports, b.params.NeedWorkThreshold, b.params.DonorThreshold, b.params.ReceiverThreshold)
	for _, pair := range pairs {
		donorHub, receiverHub := pair[0], pair[1]
		if donorHub == b.rank {
			// The master is itself hub 0 and the chosen donor; it picks
			// its own most-loaded worker (or itself) directly.
			if err := b.donateToHub(ctx, receiverHub); err != nil {
				return err
			}
			continue
		}
		if err := b.send(ctx, donorHub, TagAskHubShare, encodeDestRank(TagAskHubShare, receiverHub)); err != nil {
			return err
		}
		b.outstandingMasterDonations++
	}
	return nil
}

// selfHubReport aggregates the master's own cluster load the same way
// a hub aggregates for HubPeriodReport, so the master can participate
// in its own inter-cluster classification as hub 0.
func (b *Broker) selfHubReport() StatusReport {
	var r StatusReport
	first := true
	for _, w := range b.workerReports {
		r.Quality = minQuality(r.Quality, w.Quality, first)
		first = false
		r.Quantity += w.Quantity
		r.Sends += w.Sends
		r.Receives += w.Receives
	}
	if b.subtree != nil {
		q := b.subtree.Quality()
		if len(b.workerReports) == 0 || q < r.Quality {
			r.Quality = q
		}
		r.Quantity += b.subtree.Size()
	}
	return r
}

func minQuality(cur, candidate float64, first bool) float64 {
	if first || candidate < cur {
		return candidate
	}
	return cur
}

// donateWork implements donateWork(destId, tag): try the
// subtree pool first, then split the working subtree, then give up
// with an empty donation.
func (b *Broker) donateWork(ctx context.Context, destRank int, tag string) error {
	if sub := b.subtreePool.Pop(); sub != nil {
		return b.sendSubtree(ctx, destRank, tag, sub)
	}
	if b.subtree != nil {
		piece, _, err := b.subtree.SplitSubTree(b.params.LargeSize)
		if err != nil {
			return err
		}
		if piece != nil {
			return b.sendSubtree(ctx, destRank, tag, piece)
		}
	}
	return b.send(ctx, destRank, tag, nil)
}

// donateToHub is the hub-side half of AskHubShare: pick the
// most-loaded worker (or self) and forward a donation addressed to the
// receiving hub.
func (b *Broker) donateToHub(ctx context.Context, receiverHub int) error {
	donorWorker := b.mostLoadedWorker()
	if donorWorker == 0 {
		return b.donateWork(ctx, receiverHub, TagSubTreeByMaster)
	}
	return b.send(ctx, donorWorker, TagAskDonateToHub, encodeDestRank(TagAskDonateToHub, receiverHub))
}

func (b *Broker) mostLoadedWorker() int {
	best := 0
	bestQty := -1
	for w, r := range b.workerReports {
		if r.Quantity > bestQty {
			best, bestQty = w, r.Quantity
		}
	}
	return best
}
