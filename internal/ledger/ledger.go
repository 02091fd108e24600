// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// ErrRunNotFound is returned by LoadRun when no row matches the run ID.
var ErrRunNotFound = errors.New("ledger: run not found")

// Ledger is the run-history store: one row per run, written at
// start and updated at finish.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger opens dsn with driver, applying any pending schema
// migrations before returning.
func NewLedger(driver, dsn string) (*Ledger, error) {
	db, err := connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := applyMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// row is the sqlite-native shape of a run row: timestamps as unix
// seconds and a nullable finished_at/exit_status/best_quality, since
// a run still in flight has not set those yet.
type row struct {
	ID int64 `db:"id"`
	RunID string `db:"run_id"`
	StartedAt int64 `db:"started_at"`
	FinishedAt sql.NullInt64 `db:"finished_at"`
	NProcs int `db:"nprocs"`
	HubNum int `db:"hub_num"`
	SearchStrategy string `db:"search_strategy"`
	Instance string `db:"instance"`
	ExitStatus sql.NullString `db:"exit_status"`
	NodesProcessed int `db:"nodes_processed"`
	NodesBranched int `db:"nodes_branched"`
	NodesFathomed int `db:"nodes_fathomed"`
	NodesDiscarded int `db:"nodes_discarded"`
	BestQuality sql.NullFloat64 `db:"best_quality"`
}

func (r row) toRecord() RunRecord {
	rec := RunRecord{
		ID: r.ID,
		RunID: r.RunID,
		StartedAt: time.Unix(r.StartedAt, 0).UTC(),
		NProcs: r.NProcs,
		HubNum: r.HubNum,
		SearchStrategy: r.SearchStrategy,
		Instance: r.Instance,
		NodesProcessed: r.NodesProcessed,
		NodesBranched: r.NodesBranched,
		NodesFathomed: r.NodesFathomed,
		NodesDiscarded: r.NodesDiscarded,
	}
	if r.FinishedAt.Valid {
		rec.FinishedAt = time.Unix(r.FinishedAt.Int64, 0).UTC()
	}
	if r.ExitStatus.Valid {
		rec.ExitStatus = r.ExitStatus.String
	}
	if r.BestQuality.Valid {
		rec.BestQuality = r.BestQuality.Float64
	}
	return rec
}

// StartRun inserts the opening row for a run — everything known before
// the search begins.
func (l *Ledger) StartRun(ctx context.Context, rec RunRecord) error {
	query, args, err := sq.Insert("run").
		Columns("run_id", "started_at", "nprocs", "hub_num", "search_strategy", "instance").
		Values(rec.RunID, rec.StartedAt.Unix(), rec.NProcs, rec.HubNum, rec.SearchStrategy, rec.Instance).
		ToSql()
	if err != nil {
		return fmt.Errorf("ledger: build insert: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ledger: insert run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a completed run against its already
// inserted row.
func (l *Ledger) FinishRun(ctx context.Context, runID string, finishedAt time.Time, exitStatus string, stats searchStats, bestQuality float64) error {
	query, args, err := sq.Update("run").
		Set("finished_at", finishedAt.Unix()).
		Set("exit_status", exitStatus).
		Set("nodes_processed", stats.Processed).
		Set("nodes_branched", stats.Branched).
		Set("nodes_fathomed", stats.Fathomed).
		Set("nodes_discarded", stats.Discarded).
		Set("best_quality", bestQuality).
		Where(sq.Eq{"run_id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ledger: build update: %w", err)
	}
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ledger: update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// searchStats is the subset of an exploration's cumulative counters the
// ledger stores, kept primitive so this package need not import
// pkg/searchtree.
type searchStats struct {
	Processed int
	Branched int
	Fathomed int
	Discarded int
}

// NewSearchStats builds the counters FinishRun expects.
func NewSearchStats(processed, branched, fathomed, discarded int) searchStats {
	return searchStats{Processed: processed, Branched: branched, Fathomed: fathomed, Discarded: discarded}
}

// LoadRun fetches a run's row by its run ID.
func (l *Ledger) LoadRun(ctx context.Context, runID string) (*RunRecord, error) {
	query, args, err := sq.Select(
		"id", "run_id", "started_at", "finished_at", "nprocs", "hub_num",
		"search_strategy", "instance", "exit_status",
		"nodes_processed", "nodes_branched", "nodes_fathomed", "nodes_discarded",
		"best_quality",
	).From("run").Where(sq.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ledger: build select: %w", err)
	}

	var r row
	if err := l.db.GetContext(ctx, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("ledger: load run: %w", err)
	}
	rec := r.toRecord()
	return &rec, nil
}

// ListRuns returns every stored run, most recent first.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	qb := sq.Select(
		"id", "run_id", "started_at", "finished_at", "nprocs", "hub_num",
		"search_strategy", "instance", "exit_status",
		"nodes_processed", "nodes_branched", "nodes_fathomed", "nodes_discarded",
		"best_quality",
	).From("run").OrderBy("started_at DESC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ledger: build select: %w", err)
	}

	var rows []row
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("ledger: list runs: %w", err)
	}
	recs := make([]RunRecord, len(rows))
	for i, r := range rows {
		recs[i] = r.toRecord()
	}
	return recs, nil
}
