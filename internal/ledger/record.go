// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ledger

import "time"

// RunRecord is the row persisted once per run: the parameters it
// started with, plus however far it got. FinishedAt, ExitStatus and the
// node counters are zero-valued until the run completes.
type RunRecord struct {
	ID int64 `db:"id"`
	RunID string `db:"run_id"`
	StartedAt time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	NProcs int `db:"nprocs"`
	HubNum int `db:"hub_num"`
	SearchStrategy string `db:"search_strategy"`
	Instance string `db:"instance"`
	ExitStatus string `db:"exit_status"`
	NodesProcessed int `db:"nodes_processed"`
	NodesBranched int `db:"nodes_branched"`
	NodesFathomed int `db:"nodes_fathomed"`
	NodesDiscarded int `db:"nodes_discarded"`
	BestQuality float64 `db:"best_quality"`
}
