// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import "context"

// readyForTerminationCheck is the master-only gate: every worker in
// its own cluster and every other hub must have reported at least
// once, aggregate system work must be below zeroLoad, and system sends
// must equal system receives.
func (b *Broker) readyForTerminationCheck() bool {
	if b.terminationCheckMode {
		return false
	}
	for _, h := range b.topology.HubRanks {
		if h == b.rank {
			continue
		}
		if _, ok := b.hubReports[h]; !ok {
			return false
		}
	}
	for _, w := range b.topology.ClusterMembers[b.rank] {
		if _, ok := b.workerReports[w]; !ok {
			return false
		}
	}

	quantity := b.selfHubReport().Quantity
	for _, r := range b.hubReports {
		quantity += r.Quantity
	}
	if quantity >= b.params.ZeroLoad {
		return false
	}

	sends, recvs := b.systemSendRecvTotals()
	return sends == recvs
}

func (b *Broker) systemSendRecvTotals() (sends, recvs int) {
	sends, recvs = b.sendCount, b.recvCount
	for _, r := range b.workerReports {
		sends += r.Sends
		recvs += r.Receives
	}
	for _, r := range b.hubReports {
		sends += r.Sends
		recvs += r.Receives
	}
	return sends, recvs
}

// beginTerminationCheck is step 1: snapshot system send/receive
// totals, pause every hub and this cluster's workers, and start
// collecting their paused status.
func (b *Broker) beginTerminationCheck(ctx context.Context) error {
	b.terminationCheckMode = true
	b.termWorkerReplies = make(map[int]StatusReport)
	b.termHubReplies = make(map[int]StatusReport)
	b.termSnapshotSends, b.termSnapshotRecvs = b.systemSendRecvTotals()

	for _, h := range b.topology.HubRanks {
		if h == b.rank {
			continue
		}
		if err := b.send(ctx, h, TagAskHubPause, nil); err != nil {
			return err
		}
	}
	for _, w := range b.topology.ClusterMembers[b.rank] {
		if err := b.send(ctx, w, TagAskPause, nil); err != nil {
			return err
		}
	}
	return b.maybeFinalizeTermination(ctx)
}

// enterPausedMode is what a worker does on receiving AskPause
// (step 1): enter termination-check mode, which suspends its unit of
// work, and reply with its current status. Its send/receive counters
// keep counting every message while the mode is set.
func (b *Broker) enterPausedMode(ctx context.Context, replyTag string, replyTo int) error {
	b.terminationCheckMode = true
	r := b.localStatusReport()
	return b.send(ctx, replyTo, replyTag, encodeStatusReport(replyTag, r))
}

// maybeFinalizeTermination is the master's steps 4-5: once every
// hub and every worker in its own cluster has replied under
// termination-check mode, compare totals to the pre-check snapshot and
// broadcast the verdict.
func (b *Broker) maybeFinalizeTermination(ctx context.Context) error {
	for _, h := range b.topology.HubRanks {
		if h == b.rank {
			continue
		}
		if _, ok := b.termHubReplies[h]; !ok {
			return nil
		}
	}
	for _, w := range b.topology.ClusterMembers[b.rank] {
		if _, ok := b.termWorkerReplies[w]; !ok {
			return nil
		}
	}

	quantity := 0
	sends, recvs := 0, 0
	for _, r := range b.termWorkerReplies {
		quantity += r.Quantity
		sends += r.Sends
		recvs += r.Receives
	}
	for _, r := range b.termHubReplies {
		quantity += r.Quantity
		sends += r.Sends
		recvs += r.Receives
	}

	terminate := quantity == 0 && sends == recvs &&
		sends == b.termSnapshotSends && recvs == b.termSnapshotRecvs

	for _, h := range b.topology.HubRanks {
		if h == b.rank {
			continue
		}
		if err := b.send(ctx, h, TagContOrTerm, encodeContOrTerm(terminate)); err != nil {
			return err
		}
	}
	for _, w := range b.topology.ClusterMembers[b.rank] {
		if err := b.send(ctx, w, TagContOrTerm, encodeContOrTerm(terminate)); err != nil {
			return err
		}
	}

	if terminate {
		b.forceTerminate = true
	} else {
		b.terminationCheckMode = false
	}
	return nil
}

// applyContOrTerm handles a hub's or worker's reply to the master's
// verdict (step 5): terminate, or resume the ordinary loop.
func (b *Broker) applyContOrTerm(terminate bool) {
	if terminate {
		b.forceTerminate = true
		return
	}
	b.terminationCheckMode = false
}

// hubRelayTermination is a hub's role once it has gathered every one
// of its own workers' paused replies: total its cluster, add itself,
// and reply to the master (step 3).
func (b *Broker) hubRelayTermination(ctx context.Context) error {
	for _, w := range b.topology.ClusterMembers[b.rank] {
		if _, ok := b.termWorkerReplies[w]; !ok {
			return nil
		}
	}
	total := StatusReport{}
	for _, r := range b.termWorkerReplies {
		total.Quantity += r.Quantity
		total.Sends += r.Sends
		total.Receives += r.Receives
	}
	self := b.localStatusReport()
	total.Quantity += self.Quantity
	total.Sends += self.Sends
	total.Receives += self.Receives
	return b.send(ctx, 0, TagHubTermStatus, encodeStatusReport(TagHubTermStatus, total))
}
