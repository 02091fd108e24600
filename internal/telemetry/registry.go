// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package telemetry exposes the Prometheus gauges/counters and the
// InfluxDB line-protocol encoding a broker reports its per-tick state
// through, plus a rate.Limiter-based helper for the report/
// rebalance cadence (masterBalancePeriod/hubReportPeriod/
// workerAskPeriod) that replaces hand-rolled time.Since bookkeeping.
package telemetry

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promm "github.com/prometheus/common/model"
)

// metricNames lists every metric this package registers; validated once
// at package init. The Name fields in NewRegistry are separate literals
// and are not checked against this list.
var metricNames = []string{
	"alpsearch_up",
	"alpsearch_pool_size",
	"alpsearch_best_quality",
	"alpsearch_nodes_processed_total",
	"alpsearch_nodes_branched_total",
	"alpsearch_nodes_fathomed_total",
	"alpsearch_nodes_discarded_total",
	"alpsearch_outstanding_sends",
	"alpsearch_outstanding_receives",
}

func init() {
	for _, n := range metricNames {
		if !promm.IsValidMetricName(promm.LabelValue(n)) {
			panic(fmt.Sprintf("telemetry: invalid metric name %q", n))
		}
	}
}

// Registry holds one process's set of registered metrics, labeled with
// its rank and role, in their own prometheus.Registry rather than the
// global DefaultRegisterer — each broker process (and each test case)
// gets an independent collector namespace instead of panicking on
// duplicate registration when more than one Registry exists in the
// same binary.
type Registry struct {
	reg *prometheus.Registry

	up *prometheus.GaugeVec

	poolSize *prometheus.GaugeVec
	bestQuality *prometheus.GaugeVec

	processed *prometheus.CounterVec
	branched *prometheus.CounterVec
	fathomed *prometheus.CounterVec
	discarded *prometheus.CounterVec

	outstandingSends *prometheus.GaugeVec
	outstandingRecvs *prometheus.GaugeVec

	rank string
	role string

	// cumulative mirrors processed/branched/fathomed/discarded so a
	// ledger entry (internal/ledger) can read this process's totals
	// back out directly, without scraping its own Prometheus registry.
	cumulative NodeStats
}

// NodeStats is a plain snapshot of one process's cumulative exploration
// counters, for internal/ledger.FinishRun.
type NodeStats struct {
	Processed int
	Branched int
	Fathomed int
	Discarded int
}

// NewRegistry registers a fresh set of metrics for this rank/role in a
// new prometheus.Registry of its own, so calling it more than once in
// the same binary never collides.
func NewRegistry(rank int, role string) *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	r := &Registry{reg: reg, rank: strconv.Itoa(rank), role: role}

	r.up = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alpsearch_up",
		Help: "1 if this process's scheduler loop is running, 0 once terminated.",
	}, []string{"rank", "role"})

	r.poolSize = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alpsearch_pool_size",
		Help: "Number of open nodes currently pooled, by pool kind.",
	}, []string{"rank", "role", "pool"})

	r.bestQuality = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alpsearch_best_quality",
		Help: "Best incumbent quality known to this process.",
	}, []string{"rank", "role"})

	r.processed = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "alpsearch_nodes_processed_total",
		Help: "Cumulative nodes processed by this process.",
	}, []string{"rank", "role"})
	r.branched = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "alpsearch_nodes_branched_total",
		Help: "Cumulative nodes branched by this process.",
	}, []string{"rank", "role"})
	r.fathomed = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "alpsearch_nodes_fathomed_total",
		Help: "Cumulative nodes fathomed by this process.",
	}, []string{"rank", "role"})
	r.discarded = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "alpsearch_nodes_discarded_total",
		Help: "Cumulative nodes discarded by this process.",
	}, []string{"rank", "role"})

	r.outstandingSends = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alpsearch_outstanding_sends",
		Help: "Sends issued by this process since its last periodic report.",
	}, []string{"rank", "role"})
	r.outstandingRecvs = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alpsearch_outstanding_receives",
		Help: "Receives processed by this process since its last periodic report.",
	}, []string{"rank", "role"})

	r.up.WithLabelValues(r.rank, r.role).Set(1)
	return r
}

// Gatherer exposes the underlying prometheus.Registry so the control
// plane's /metrics handler can scrape it with promhttp.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// SetUp flips the per-role up gauge; the broker calls this with false
// right before its scheduler loop returns.
func (r *Registry) SetUp(up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	r.up.WithLabelValues(r.rank, r.role).Set(v)
}

// SetPoolSize records the current size of one named pool (e.g. "node",
// "subtree", "solution").
func (r *Registry) SetPoolSize(pool string, size int) {
	r.poolSize.WithLabelValues(r.rank, r.role, pool).Set(float64(size))
}

// SetBestQuality records the best quality known to this process.
func (r *Registry) SetBestQuality(quality float64) {
	r.bestQuality.WithLabelValues(r.rank, r.role).Set(quality)
}

// AddExploreStats folds one ExploreUnitWork tick's counters into the
// cumulative per-process counters.
func (r *Registry) AddExploreStats(processed, branched, fathomed, discarded int) {
	r.processed.WithLabelValues(r.rank, r.role).Add(float64(processed))
	r.branched.WithLabelValues(r.rank, r.role).Add(float64(branched))
	r.fathomed.WithLabelValues(r.rank, r.role).Add(float64(fathomed))
	r.discarded.WithLabelValues(r.rank, r.role).Add(float64(discarded))

	r.cumulative.Processed += processed
	r.cumulative.Branched += branched
	r.cumulative.Fathomed += fathomed
	r.cumulative.Discarded += discarded
}

// NodeStats returns this process's cumulative exploration counters.
func (r *Registry) NodeStats() NodeStats { return r.cumulative }

// SetOutstanding records this process's sends/receives since its last
// periodic status report — the same counters termination check
// compares against its pre-pause snapshot.
func (r *Registry) SetOutstanding(sends, receives int) {
	r.outstandingSends.WithLabelValues(r.rank, r.role).Set(float64(sends))
	r.outstandingRecvs.WithLabelValues(r.rank, r.role).Set(float64(receives))
}
