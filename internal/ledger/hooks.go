// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ledger

import (
	"context"
	"time"

	"github.com/oss-hpc/alpsearch/internal/log"
)

type sqlBeginKey struct{}

// hooks satisfies sqlhooks.Hooks, logging every query the ledger issues
// at debug level along with its elapsed time.
type hooks struct{}

func (hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("ledger: query %s %q", query, args)
	return context.WithValue(ctx, sqlBeginKey{}, time.Now()), nil
}

func (hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(sqlBeginKey{}).(time.Time); ok {
		log.Debugf("ledger: took %s", time.Since(begin))
	}
	return ctx, nil
}
