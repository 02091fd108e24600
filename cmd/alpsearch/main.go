// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command alpsearch is the knapsack application's entry point, the Go
// counterpart of KnapMain.cpp: it builds a Model, constructs the
// process's broker for its role in the hierarchy, and drives the
// search to completion. A single binary serves every rank — nprocs=1
// takes the degenerate SerialBroker path (KnapMain's non-MPI build),
// nprocs>1 takes the master/hub/worker path over NATS (KnapMain's MPI
// build), selected at runtime by flags rather than a compile-time
// #ifdef.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/oss-hpc/alpsearch/examples/knapsack"
	"github.com/oss-hpc/alpsearch/internal/broker"
	"github.com/oss-hpc/alpsearch/internal/checkpoint"
	"github.com/oss-hpc/alpsearch/internal/config"
	"github.com/oss-hpc/alpsearch/internal/controlplane"
	"github.com/oss-hpc/alpsearch/internal/ledger"
	"github.com/oss-hpc/alpsearch/internal/log"
	"github.com/oss-hpc/alpsearch/internal/transport"
)

var (
	flagRank             int
	flagNProcs           int
	flagConfigFile       string
	flagRunID            string
	flagGops             bool
	flagCapacity         int
	flagItemsFile        string
	flagControlPlaneAddr string
)

func cliInit() {
	flag.IntVar(&flagRank, "rank", 0, "this process's rank within the run (0 is always the master)")
	flag.IntVar(&flagNProcs, "nprocs", 1, "total number of processes in this run; 1 runs the serial in-process search")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "path to the engine parameter file (missing file runs on defaults)")
	flag.StringVar(&flagRunID, "run-id", "", "shared identifier for every process in this run; required when -nprocs > 1")
	flag.BoolVar(&flagGops, "gops", false, "listen via github.com/google/gops/agent (for debugging)")
	flag.IntVar(&flagCapacity, "capacity", 0, "knapsack capacity for the -items instance; 0 uses the built-in example's capacity")
	flag.StringVar(&flagItemsFile, "items", "", "path to a JSON array of {\"size\":.,\"profit\":.} items; empty uses the built-in example instance")
	flag.StringVar(&flagControlPlaneAddr, "control-plane-addr", "", "overrides the config file's controlPlaneAddr when non-empty")
	flag.Parse()
}

func main() {
	cliInit()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if flagNProcs > 1 && flagRunID == "" {
		log.Abortf("-run-id is required when -nprocs > 1")
	}
	runID := flagRunID
	if runID == "" {
		runID = fmt.Sprintf("local-%d", time.Now().UnixNano())
	}

	cfg, err := config.Load(flagConfigFile, runID)
	if err != nil {
		log.Fatalf("config: %s", err.Error())
	}
	if flagControlPlaneAddr != "" {
		cfg.ControlPlaneAddr = flagControlPlaneAddr
	}
	logLevel := cfg.Params.MsgLevel
	if flagNProcs > 1 {
		switch broker.NewTopology(flagNProcs, cfg.Params.HubNum, cfg.Params.MaxHubWorkSize).RoleOf(flagRank) {
		case broker.RoleHub:
			logLevel = cfg.Params.HubMsgLevel
		case broker.RoleWorker:
			logLevel = cfg.Params.WorkerMsgLevel
		}
	}
	log.SetLogLevel(logLevel)

	model, err := loadModel()
	if err != nil {
		log.Fatalf("model: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Infof("alpsearch: signal received, shutting down")
		cancel()
	}()

	if flagNProcs <= 1 {
		runSerial(model, cfg, runID)
		return
	}
	runDistributed(ctx, model, cfg, runID)
}

func loadModel() (*knapsack.Model, error) {
	if flagItemsFile == "" {
		return knapsack.NewModel(exampleCapacity, exampleItems), nil
	}
	data, err := os.ReadFile(flagItemsFile)
	if err != nil {
		return nil, fmt.Errorf("read items file %s: %w", flagItemsFile, err)
	}
	var items []knapsack.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode items file %s: %w", flagItemsFile, err)
	}
	capacity := flagCapacity
	if capacity == 0 {
		capacity = exampleCapacity
	}
	return knapsack.NewModel(capacity, items), nil
}

// exampleCapacity/exampleItems are the built-in instance used when no
// -items file is given, so the binary is runnable with zero setup —
// the same "functional search with no configuration" guarantee
// broker.DefaultParams makes for the engine's parameters.
const exampleCapacity = 165

var exampleItems = []knapsack.Item{
	{Size: 23, Profit: 92}, {Size: 31, Profit: 57}, {Size: 29, Profit: 49},
	{Size: 44, Profit: 68}, {Size: 53, Profit: 60}, {Size: 38, Profit: 43},
	{Size: 63, Profit: 67}, {Size: 85, Profit: 84}, {Size: 89, Profit: 87},
	{Size: 82, Profit: 72},
}

func runSerial(model *knapsack.Model, cfg config.EngineConfig, runID string) {
	sb, err := broker.NewSerialBroker(model, cfg.Params)
	if err != nil {
		log.Fatalf("broker: %s", err.Error())
	}

	result, err := sb.Run()
	if err != nil {
		log.Fatalf("search: %s", err.Error())
	}
	reportResult(runID, result)
}

func reportResult(runID string, result broker.SerialResult) {
	log.Infof("alpsearch: run %s finished (%s) in %s: processed=%d branched=%d fathomed=%d discarded=%d",
		runID, result.ExitedOn, result.Elapsed,
		result.Stats.NumProcessed, result.Stats.NumBranched, result.Stats.NumFathomed, result.Stats.NumDiscarded)
	if result.Best == nil {
		log.Infof("alpsearch: no feasible solution found")
		return
	}
	sol := result.Best.Value.(*knapsack.Solution)
	log.Infof("alpsearch: best value %d, picks=%v", sol.Value, sol.Picks)
}

func runDistributed(ctx context.Context, model *knapsack.Model, cfg config.EngineConfig, runID string) {
	bus, err := transport.NewBus(cfg.Transport, flagRank)
	if err != nil {
		log.Fatalf("transport: %s", err.Error())
	}
	defer bus.Close()

	topology := broker.NewTopology(flagNProcs, cfg.Params.HubNum, cfg.Params.MaxHubWorkSize)
	b, err := broker.New(flagRank, topology, cfg.Params, model, bus)
	if err != nil {
		log.Fatalf("broker: %s", err.Error())
	}

	var ctrl *controlplane.Server
	if cfg.ControlPlaneAddr != "" {
		ctrl = controlplane.New(cfg.ControlPlaneAddr, brokerStats{b}, b.Metrics().Gatherer())
		go func() {
			if err := ctrl.ListenAndServe(); err != nil {
				log.Warnf("control plane: %s", err.Error())
			}
		}()
	}

	var led *ledger.Ledger
	if flagRank == 0 {
		led, err = ledger.NewLedger(cfg.LedgerDriver, cfg.LedgerDSN)
		if err != nil {
			log.Fatalf("ledger: %s", err.Error())
		}
		defer led.Close()
		rec := ledger.RunRecord{
			RunID:          runID,
			StartedAt:      time.Now(),
			NProcs:         flagNProcs,
			HubNum:         cfg.Params.HubNum,
			SearchStrategy: cfg.Params.SearchStrategy.String(),
			Instance:       cfg.Params.Instance,
		}
		if err := led.StartRun(ctx, rec); err != nil {
			log.Fatalf("ledger: start run: %s", err.Error())
		}
	}

	if flagRank == 0 && cfg.CheckpointInterval > 0 {
		backend, err := checkpointBackend(cfg)
		if err != nil {
			log.Fatalf("checkpoint: %s", err.Error())
		}
		snap, err := checkpoint.NewSnapshotter(backend, b.SolutionPool(), b.SolutionPoolLock())
		if err != nil {
			log.Fatalf("checkpoint: %s", err.Error())
		}
		if err := snap.StartEvery(runID, cfg.CheckpointInterval); err != nil {
			log.Fatalf("checkpoint: %s", err.Error())
		}
		defer snap.Stop()
	}

	if err := b.Bootstrap(ctx); err != nil {
		log.Fatalf("bootstrap: %s", err.Error())
	}

	runErr := b.Run(ctx)
	if ctrl != nil {
		if err := ctrl.Shutdown(); err != nil {
			log.Warnf("control plane: shutdown: %s", err.Error())
		}
	}
	if runErr != nil {
		log.Fatalf("search: %s", runErr.Error())
	}

	if flagRank == 0 && led != nil {
		stats := b.Stats()
		nodeStats := b.Metrics().NodeStats()
		searchStats := ledger.NewSearchStats(nodeStats.Processed, nodeStats.Branched, nodeStats.Fathomed, nodeStats.Discarded)
		// Records rank 0's own cumulative counters only: no
		// termination-time stats gather exists to sum every worker's
		// totals into one figure, so this is a lower bound on the
		// whole run's node count, not the true total.
		if err := led.FinishRun(ctx, runID, time.Now(), "Terminated", searchStats, stats.BestQuality); err != nil {
			log.Warnf("ledger: finish run: %s", err.Error())
		}
	}
	log.Infof("alpsearch: rank %d done", flagRank)
}

func checkpointBackend(cfg config.EngineConfig) (checkpoint.Backend, error) {
	switch cfg.CheckpointBackend {
	case "", "file":
		return checkpoint.NewFileBackend(cfg.CheckpointDir)
	case "s3":
		return checkpoint.NewS3Backend(context.Background(), checkpoint.S3Config{Bucket: cfg.CheckpointBucket})
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.CheckpointBackend)
	}
}

type brokerStats struct{ b *broker.Broker }

func (s brokerStats) Stats() controlplane.Stats {
	bs := s.b.Stats()
	return controlplane.Stats{
		Rank:            bs.Rank,
		Role:            bs.Role,
		NodePoolSize:    bs.NodePoolSize,
		SubtreePoolSize: bs.SubtreePoolSize,
		SolutionCount:   bs.SolutionCount,
		BestQuality:     bs.BestQuality,
	}
}
