// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import "github.com/oss-hpc/alpsearch/pkg/encoded"

// StatusReport is the (quality, quantity, sends, receives) tuple every
// worker sends its hub and every hub sends the master.
type StatusReport struct {
	Quality float64
	Quantity int
	Sends int
	Receives int
}

func encodeStatusReport(tag string, r StatusReport) []byte {
	buf := encoded.New(tag)
	buf.WriteFloat64(r.Quality)
	buf.WriteInt32(int32(r.Quantity))
	buf.WriteInt32(int32(r.Sends))
	buf.WriteInt32(int32(r.Receives))
	return buf.Bytes()
}

func decodeStatusReport(tag string, data []byte) (StatusReport, error) {
	buf := encoded.NewFromBytes(tag, data)
	q, err := buf.ReadFloat64()
	if err != nil {
		return StatusReport{}, err
	}
	qty, err := buf.ReadInt32()
	if err != nil {
		return StatusReport{}, err
	}
	sends, err := buf.ReadInt32()
	if err != nil {
		return StatusReport{}, err
	}
	recvs, err := buf.ReadInt32()
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{Quality: q, Quantity: int(qty), Sends: int(sends), Receives: int(recvs)}, nil
}

// incumbentPayload is IncumbentTwo's (value, originId) pair.
type incumbentPayload struct {
	Quality float64
	OriginID int
}

func encodeIncumbent(p incumbentPayload) []byte {
	buf := encoded.New(TagIncumbentTwo)
	buf.WriteFloat64(p.Quality)
	buf.WriteInt32(int32(p.OriginID))
	return buf.Bytes()
}

func decodeIncumbent(data []byte) (incumbentPayload, error) {
	buf := encoded.NewFromBytes(TagIncumbentTwo, data)
	q, err := buf.ReadFloat64()
	if err != nil {
		return incumbentPayload{}, err
	}
	origin, err := buf.ReadInt32()
	if err != nil {
		return incumbentPayload{}, err
	}
	return incumbentPayload{Quality: q, OriginID: int(origin)}, nil
}

// encodeDestRank/decodeDestRank carry a single target rank, used by
// AskDonate, AskDonateToHub, AskDonateToWorker, AskHubShare.
// WorkerNeedWork carries no payload: its requester is the sender.
func encodeDestRank(tag string, destRank int) []byte {
	buf := encoded.New(tag)
	buf.WriteInt32(int32(destRank))
	return buf.Bytes()
}

func decodeDestRank(tag string, data []byte) (int, error) {
	buf := encoded.NewFromBytes(tag, data)
	v, err := buf.ReadInt32()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// encodeRange/decodeRange carry an index-allocator [lo, hi) band,
// used by IndicesFromHub/IndicesFromMaster replies.
func encodeRange(tag string, lo, hi int) []byte {
	buf := encoded.New(tag)
	buf.WriteInt32(int32(lo))
	buf.WriteInt32(int32(hi))
	return buf.Bytes()
}

func decodeRange(tag string, data []byte) (lo, hi int, err error) {
	buf := encoded.NewFromBytes(tag, data)
	l, err := buf.ReadInt32()
	if err != nil {
		return 0, 0, err
	}
	h, err := buf.ReadInt32()
	if err != nil {
		return 0, 0, err
	}
	return int(l), int(h), nil
}

// encodeContOrTerm encodes the single-byte 'T'/'C' reply of step 5.
func encodeContOrTerm(terminate bool) []byte {
	buf := encoded.New(TagContOrTerm)
	if terminate {
		buf.WriteUint8('T')
	} else {
		buf.WriteUint8('C')
	}
	return buf.Bytes()
}

func decodeContOrTerm(data []byte) (bool, error) {
	buf := encoded.NewFromBytes(TagContOrTerm, data)
	b, err := buf.ReadUint8()
	if err != nil {
		return false, err
	}
	return b == 'T', nil
}
