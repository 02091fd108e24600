// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"), "run-1")
	require.NoError(t, err)
	assert.Equal(t, searchtree.BestFirst, cfg.Params.SearchStrategy)
	assert.Equal(t, 1, cfg.Params.HubNum)
	assert.NotNil(t, cfg.Params.DiveStop)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"hubNum": 4,
		"maxHubWorkSize": 8,
		"searchStrategy": "Hybrid",
		"unitWorkNodes": 50,
		"diveStopRule": "sinceImprovement > 20"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Params.HubNum)
	assert.Equal(t, 8, cfg.Params.MaxHubWorkSize)
	assert.Equal(t, searchtree.Hybrid, cfg.Params.SearchStrategy)
	assert.Equal(t, 50, cfg.Params.UnitWorkNodes)
	assert.True(t, cfg.Params.DiveStop(searchtree.DiveStats{SinceImprovement: 21}))
	assert.False(t, cfg.Params.DiveStop(searchtree.DiveStats{SinceImprovement: 5}))
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"notAKey": 1}`), 0o644))

	_, err := Load(path, "run-3")
	assert.Error(t, err)
}

func TestLoadRejectsBadDiveStopRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"diveStopRule": "this is not valid expr("}`), 0o644))

	_, err := Load(path, "run-4")
	assert.Error(t, err)
}
