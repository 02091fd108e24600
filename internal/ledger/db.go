// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ledger persists one row per run: the parameters a run
// started with, and the exit status/counters/best quality it finished
// with. Every process in the broker hierarchy can reconstruct prior
// runs from this without replaying the search.
package ledger

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

var sqliteDriverRegistered bool

func connect(driver, dsn string) (*sqlx.DB, error) {
	if driver != "sqlite3" {
		return nil, fmt.Errorf("ledger: unsupported driver %q", driver)
	}
	if !sqliteDriverRegistered {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, hooks{}))
		sqliteDriverRegistered = true
	}
	db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", dsn))
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite3: %w", err)
	}
	// sqlite does not multithread; more than one connection just
	// waits on the same file lock.
	db.SetMaxOpenConns(1)
	return db, nil
}
