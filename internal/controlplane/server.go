// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package controlplane runs the observational-only HTTP surface every
// broker process exposes: health, Prometheus metrics, a JSON dump of
// local pool sizes, and the Swagger UI (/swagger/) documenting all
// three, generated the same way cc-backend documents its REST API.
// Handlers only read already-published state — they never inject
// messages into a broker's mailbox — so they cannot violate
// single-writer-per-process concurrency model.
package controlplane

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/oss-hpc/alpsearch/internal/log"
	_ "github.com/oss-hpc/alpsearch/internal/controlplane/docs"
)

// StatsSource is satisfied by *broker.Broker; kept as a narrow
// interface here so this package need not import internal/broker.
type StatsSource interface {
	Stats() Stats
}

// Stats mirrors broker.Stats field-for-field; defined independently to
// avoid the import (see StatsSource).
type Stats struct {
	Rank int `json:"rank"`
	Role string `json:"role"`
	NodePoolSize int `json:"nodePoolSize"`
	SubtreePoolSize int `json:"subtreePoolSize"`
	SolutionCount int `json:"solutionCount"`
	BestQuality float64 `json:"bestQuality"`
}

// Server is the per-process HTTP control plane.
type Server struct {
	router *mux.Router
	http *http.Server
}

// New builds a Server exposing /healthz, /metrics (scraped from
// gatherer, normally a *telemetry.Registry's Gatherer()) and /stats
// (from stats, normally the broker itself).
func New(addr string, stats StatsSource, gatherer prometheus.Gatherer) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler).Methods(http.MethodGet)

	r.HandleFunc("/stats", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(rw).Encode(stats.Stats()); err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
		}
	})

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	logged := handlers.CustomLoggingHandler(log.DebugWriter, r, func(w io.Writer, params handlers.LogFormatterParams) {
		log.Finfof(w, "%s %s (%d)", params.Request.Method, params.URL.RequestURI(), params.StatusCode)
	})

	return &Server{
		router: r,
		http: &http.Server{
			Addr: addr,
			Handler: logged,
			ReadTimeout: 10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe starts the control plane server; it blocks until the
// server is shut down or fails.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the control plane server.
func (s *Server) Shutdown() error {
	return s.http.Shutdown(context.Background())
}
