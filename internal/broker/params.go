// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import (
	"time"

	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

// Params collects every recognized configuration parameter for a run.
// internal/config is responsible for loading, validating and
// defaulting these from JSON; this package only consumes the finished
// struct.
type Params struct {
	// diagnostics
	MsgLevel string
	HubMsgLevel string
	WorkerMsgLevel string
	LogFileLevel string
	LogFile string

	// limits
	NodeLimit int
	TimeLimit time.Duration
	SolLimit int

	// selection rules
	SearchStrategy searchtree.Strategy
	SearchStrategyRampUp searchtree.Strategy

	// topology
	HubNum int
	MaxHubWorkSize int

	// balancing
	MasterBalancePeriod time.Duration
	HubReportPeriod time.Duration
	WorkerAskPeriod time.Duration
	ZeroLoad int
	NeedWorkThreshold int
	ChangeWorkThreshold float64
	DonorThreshold float64
	ReceiverThreshold float64
	Rho float64

	// unit of work
	UnitWorkNodes int
	UnitWorkTime time.Duration

	// buffer sizing
	LargeSize int
	MediumSize int
	SmallSize int
	BufSpare int

	// ramp-up
	MasterInitNodeNum int
	HubInitNodeNum int
	EliteSize int

	// behavior
	DeleteDeadNode bool
	InterClusterBalance bool
	IntraClusterBalance bool
	PrintSolution bool
	ClockType string
	Instance string

	// dive-stop predicate compiled from the diveStopRule expression
	// (Open Question resolution); defaults to AlwaysDive.
	DiveStop searchtree.DiveStopPredicate
}

// DefaultParams returns the parameter set that yields "a functional
// best-first search" for a single-process run with no configuration,
// per closing sentence.
func DefaultParams() Params {
	return Params{
		MsgLevel: "info",
		HubMsgLevel: "info",
		WorkerMsgLevel: "info",
		LogFileLevel: "info",

		NodeLimit: 0, // 0 == unlimited
		TimeLimit: 0,
		SolLimit: 0,

		SearchStrategy: searchtree.BestFirst,
		SearchStrategyRampUp: searchtree.BestFirst,

		HubNum: 1,
		MaxHubWorkSize: 1,

		MasterBalancePeriod: 500 * time.Millisecond,
		HubReportPeriod: 250 * time.Millisecond,
		WorkerAskPeriod: 100 * time.Millisecond,
		ZeroLoad: 0,
		NeedWorkThreshold: 1,
		ChangeWorkThreshold: 0.1,
		DonorThreshold: 0.2,
		ReceiverThreshold: 0.2,
		Rho: 0.5,

		UnitWorkNodes: 100,
		UnitWorkTime: 200 * time.Millisecond,

		LargeSize: 1 << 20,
		MediumSize: 1 << 16,
		SmallSize: 1 << 12,
		BufSpare: 64,

		MasterInitNodeNum: 4,
		HubInitNodeNum: 8,
		EliteSize: 10,

		DeleteDeadNode: true,
		InterClusterBalance: true,
		IntraClusterBalance: true,
		PrintSolution: true,
		ClockType: "wall",

		DiveStop: searchtree.AlwaysDive,
	}
}
