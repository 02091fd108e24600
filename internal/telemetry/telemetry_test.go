// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStatusPointWritesTagsAndFields(t *testing.T) {
	point, err := EncodeStatusPoint(3, "worker", 42, -7.5, 10, 9, time.Unix(0, 1700000000000000000))
	require.NoError(t, err)

	line := string(point)
	assert.Contains(t, line, "alpsearch_status,rank=3,role=worker")
	assert.Contains(t, line, "quantity=42i")
	assert.Contains(t, line, "sends=10i")
	assert.Contains(t, line, "receives=9i")
}

func TestCadenceLimiterAllowsImmediatelyThenWaits(t *testing.T) {
	l := NewCadenceLimiter(50 * time.Millisecond)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestRegistryDistinctRanksDoNotCollide(t *testing.T) {
	r1 := NewRegistry(0, "master")
	r2 := NewRegistry(1, "worker")
	r1.SetPoolSize("node", 5)
	r2.SetPoolSize("node", 9)
	r1.SetBestQuality(-3)
	r1.AddExploreStats(1, 2, 3, 4)
	r1.SetOutstanding(1, 1)
	r1.SetUp(false)
}
