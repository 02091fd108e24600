// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import (
	"time"

	"golang.org/x/time/rate"
)

// NewCadenceLimiter returns a rate.Limiter that allows one event per
// period — the role-specific masterBalancePeriod/hubReportPeriod/
// workerAskPeriod cadence, gating the report/rebalance branch
// of the scheduler tick via Allow()/Wait() instead of comparing
// time.Since against a stored timestamp every tick.
func NewCadenceLimiter(period time.Duration) *rate.Limiter {
	if period <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(period), 1)
}
