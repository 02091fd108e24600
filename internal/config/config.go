// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/expr-lang/expr"

	"github.com/oss-hpc/alpsearch/internal/broker"
	"github.com/oss-hpc/alpsearch/internal/transport"
	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

// raw is the on-disk shape of the engine's parameter file, as
// JSON-native types. Keys left unset fall back to
// defaultRaw(), so a run works with zero configuration.
type raw struct {
	MsgLevel string `json:"msgLevel"`
	HubMsgLevel string `json:"hubMsgLevel"`
	WorkerMsgLevel string `json:"workerMsgLevel"`
	LogFileLevel string `json:"logFileLevel"`
	LogFile string `json:"logFile"`

	NodeLimit int `json:"nodeLimit"`
	TimeLimit string `json:"timeLimit"`
	SolLimit int `json:"solLimit"`

	SearchStrategy string `json:"searchStrategy"`
	SearchStrategyRampUp string `json:"searchStrategyRampUp"`

	HubNum int `json:"hubNum"`
	MaxHubWorkSize int `json:"maxHubWorkSize"`

	MasterBalancePeriod string `json:"masterBalancePeriod"`
	HubReportPeriod string `json:"hubReportPeriod"`
	WorkerAskPeriod string `json:"workerAskPeriod"`
	ZeroLoad int `json:"zeroLoad"`
	NeedWorkThreshold int `json:"needWorkThreshold"`
	ChangeWorkThreshold float64 `json:"changeWorkThreshold"`
	DonorThreshold float64 `json:"donorThreshold"`
	ReceiverThreshold float64 `json:"receiverThreshold"`
	Rho float64 `json:"rho"`

	UnitWorkNodes int `json:"unitWorkNodes"`
	UnitWorkTime string `json:"unitWorkTime"`

	LargeSize int `json:"largeSize"`
	MediumSize int `json:"mediumSize"`
	SmallSize int `json:"smallSize"`
	BufSpare int `json:"bufSpare"`

	MasterInitNodeNum int `json:"masterInitNodeNum"`
	HubInitNodeNum int `json:"hubInitNodeNum"`
	EliteSize int `json:"eliteSize"`

	DeleteDeadNode *bool `json:"deleteDeadNode"`
	InterClusterBalance *bool `json:"interClusterBalance"`
	IntraClusterBalance *bool `json:"intraClusterBalance"`
	PrintSolution *bool `json:"printSolution"`
	ClockType string `json:"clockType"`
	Instance string `json:"instance"`

	NatsAddress string `json:"natsAddress"`
	NatsCredsFile string `json:"natsCredsFile"`

	ControlPlaneAddr string `json:"controlPlaneAddr"`

	LedgerDriver string `json:"ledgerDriver"`
	LedgerDSN string `json:"ledgerDSN"`

	CheckpointBackend string `json:"checkpointBackend"`
	CheckpointDir string `json:"checkpointDir"`
	CheckpointBucket string `json:"checkpointBucket"`
	CheckpointInterval string `json:"checkpointInterval"`

	DiveStopRule string `json:"diveStopRule"`
}

// EngineConfig is the fully resolved, defaulted, and parsed
// configuration for one run: everything internal/broker,
// internal/transport, and the ledger/checkpoint/control-plane
// packages need, derived from a single JSON file plus the run's ID.
type EngineConfig struct {
	Params broker.Params
	Transport transport.Config

	LedgerDriver string
	LedgerDSN string

	CheckpointBackend string
	CheckpointDir string
	CheckpointBucket string
	CheckpointInterval time.Duration

	ControlPlaneAddr string
}

// Load reads and validates flagConfigFile (if it exists — a missing
// file is not an error, matching cc-backend's Init behavior of running
// on defaults alone) and resolves it into an EngineConfig, runID
// identifying this run's transport subjects.
func Load(flagConfigFile string, runID string) (EngineConfig, error) {
	r := defaultRaw()

	if data, err := os.ReadFile(flagConfigFile); err != nil {
		if !os.IsNotExist(err) {
			return EngineConfig{}, fmt.Errorf("config: read %s: %w", flagConfigFile, err)
		}
	} else {
		if err := Validate(configSchema, json.RawMessage(data)); err != nil {
			return EngineConfig{}, err
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return EngineConfig{}, fmt.Errorf("config: decode %s: %w", flagConfigFile, err)
		}
	}

	return r.resolve(runID)
}

func defaultRaw() raw {
	d := broker.DefaultParams()
	t := true
	return raw{
		MsgLevel: d.MsgLevel,
		HubMsgLevel: d.HubMsgLevel,
		WorkerMsgLevel: d.WorkerMsgLevel,
		LogFileLevel: d.LogFileLevel,

		SolLimit: d.SolLimit,

		SearchStrategy: d.SearchStrategy.String(),
		SearchStrategyRampUp: d.SearchStrategyRampUp.String(),

		HubNum: d.HubNum,
		MaxHubWorkSize: d.MaxHubWorkSize,

		MasterBalancePeriod: d.MasterBalancePeriod.String(),
		HubReportPeriod: d.HubReportPeriod.String(),
		WorkerAskPeriod: d.WorkerAskPeriod.String(),
		ZeroLoad: d.ZeroLoad,
		NeedWorkThreshold: d.NeedWorkThreshold,
		ChangeWorkThreshold: d.ChangeWorkThreshold,
		DonorThreshold: d.DonorThreshold,
		ReceiverThreshold: d.ReceiverThreshold,
		Rho: d.Rho,

		UnitWorkNodes: d.UnitWorkNodes,
		UnitWorkTime: d.UnitWorkTime.String(),

		LargeSize: d.LargeSize,
		MediumSize: d.MediumSize,
		SmallSize: d.SmallSize,
		BufSpare: d.BufSpare,

		MasterInitNodeNum: d.MasterInitNodeNum,
		HubInitNodeNum: d.HubInitNodeNum,
		EliteSize: d.EliteSize,

		DeleteDeadNode: &d.DeleteDeadNode,
		InterClusterBalance: &d.InterClusterBalance,
		IntraClusterBalance: &d.IntraClusterBalance,
		PrintSolution: &t,
		ClockType: d.ClockType,

		NatsAddress: "nats://127.0.0.1:4222",

		LedgerDriver: "sqlite3",
		LedgerDSN: "./var/alpsearch.db",

		CheckpointBackend: "file",
		CheckpointDir: "./var/checkpoints",
		CheckpointInterval: "1m",

		DiveStopRule: "false",
	}
}

func (r raw) resolve(runID string) (EngineConfig, error) {
	p := broker.DefaultParams()

	p.MsgLevel, p.HubMsgLevel, p.WorkerMsgLevel, p.LogFileLevel, p.LogFile =
		r.MsgLevel, r.HubMsgLevel, r.WorkerMsgLevel, r.LogFileLevel, r.LogFile

	p.NodeLimit, p.SolLimit = r.NodeLimit, r.SolLimit
	var err error
	if p.TimeLimit, err = parseDuration(r.TimeLimit); err != nil {
		return EngineConfig{}, err
	}

	if p.SearchStrategy, err = parseStrategy(r.SearchStrategy); err != nil {
		return EngineConfig{}, err
	}
	if p.SearchStrategyRampUp, err = parseStrategy(r.SearchStrategyRampUp); err != nil {
		return EngineConfig{}, err
	}

	p.HubNum, p.MaxHubWorkSize = r.HubNum, r.MaxHubWorkSize

	if p.MasterBalancePeriod, err = parseDuration(r.MasterBalancePeriod); err != nil {
		return EngineConfig{}, err
	}
	if p.HubReportPeriod, err = parseDuration(r.HubReportPeriod); err != nil {
		return EngineConfig{}, err
	}
	if p.WorkerAskPeriod, err = parseDuration(r.WorkerAskPeriod); err != nil {
		return EngineConfig{}, err
	}
	p.ZeroLoad, p.NeedWorkThreshold = r.ZeroLoad, r.NeedWorkThreshold
	p.ChangeWorkThreshold, p.DonorThreshold, p.ReceiverThreshold, p.Rho =
		r.ChangeWorkThreshold, r.DonorThreshold, r.ReceiverThreshold, r.Rho

	p.UnitWorkNodes = r.UnitWorkNodes
	if p.UnitWorkTime, err = parseDuration(r.UnitWorkTime); err != nil {
		return EngineConfig{}, err
	}

	p.LargeSize, p.MediumSize, p.SmallSize, p.BufSpare = r.LargeSize, r.MediumSize, r.SmallSize, r.BufSpare
	p.MasterInitNodeNum, p.HubInitNodeNum, p.EliteSize = r.MasterInitNodeNum, r.HubInitNodeNum, r.EliteSize

	p.DeleteDeadNode = boolOr(r.DeleteDeadNode, p.DeleteDeadNode)
	p.InterClusterBalance = boolOr(r.InterClusterBalance, p.InterClusterBalance)
	p.IntraClusterBalance = boolOr(r.IntraClusterBalance, p.IntraClusterBalance)
	p.PrintSolution = boolOr(r.PrintSolution, p.PrintSolution)
	if r.ClockType != "" {
		p.ClockType = r.ClockType
	}
	p.Instance = r.Instance

	if p.DiveStop, err = compileDiveStopRule(r.DiveStopRule); err != nil {
		return EngineConfig{}, err
	}

	checkpointInterval, err := parseDuration(r.CheckpointInterval)
	if err != nil {
		return EngineConfig{}, err
	}

	return EngineConfig{
		Params: p,
		Transport: transport.Config{
			Address: r.NatsAddress,
			CredsFilePath: r.NatsCredsFile,
			RunID: runID,
		},
		LedgerDriver: r.LedgerDriver,
		LedgerDSN: r.LedgerDSN,
		CheckpointBackend: r.CheckpointBackend,
		CheckpointDir: r.CheckpointDir,
		CheckpointBucket: r.CheckpointBucket,
		CheckpointInterval: checkpointInterval,
		ControlPlaneAddr: r.ControlPlaneAddr,
	}, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: parse duration %q: %w", s, err)
	}
	return d, nil
}

func parseStrategy(s string) (searchtree.Strategy, error) {
	switch s {
	case "", "BestFirst":
		return searchtree.BestFirst, nil
	case "BreadthFirst":
		return searchtree.BreadthFirst, nil
	case "DepthFirst":
		return searchtree.DepthFirst, nil
	case "BestEstimate":
		return searchtree.BestEstimate, nil
	case "Hybrid":
		return searchtree.Hybrid, nil
	default:
		return 0, fmt.Errorf("config: unknown searchStrategy %q", s)
	}
}

// compileDiveStopRule compiles rule once at startup into a
// searchtree.DiveStopPredicate that runs the compiled program per dive
// decision, matching the compile-once/run-many rule idiom of
// internal/tagger's classifier.
func compileDiveStopRule(rule string) (searchtree.DiveStopPredicate, error) {
	if rule == "" {
		rule = "false"
	}
	program, err := expr.Compile(rule, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("config: compile diveStopRule %q: %w", rule, err)
	}
	return func(stats searchtree.DiveStats) bool {
		env := map[string]any{
			"diveDepth": stats.DiveDepth,
			"sinceImprovement": stats.SinceImprovement,
			"divePoolSize": stats.DivePoolSize,
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return false
		}
		stop, _ := out.(bool)
		return stop
	}, nil
}
