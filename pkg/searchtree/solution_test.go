// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutionLessOrdersByQualityThenOriginID(t *testing.T) {
	better := &Solution{Value: &fakeSolution{value: 10}, OriginID: 5}
	worse := &Solution{Value: &fakeSolution{value: 1}, OriginID: 0}
	assert.True(t, better.Less(worse))
	assert.False(t, worse.Less(better))

	tieA := &Solution{Value: &fakeSolution{value: 10}, OriginID: 2}
	tieB := &Solution{Value: &fakeSolution{value: 10}, OriginID: 7}
	assert.True(t, tieA.Less(tieB), "equal quality should break the tie by smaller originID")
}

func TestSolutionPoolAddTracksBest(t *testing.T) {
	p := NewSolutionPool(0)
	assert.Nil(t, p.Best())

	first := &Solution{Value: &fakeSolution{value: 3}}
	assert.True(t, p.Add(first), "the first solution added is always the new best")

	worse := &Solution{Value: &fakeSolution{value: 1}}
	assert.False(t, p.Add(worse))
	assert.Same(t, first, p.Best())

	better := &Solution{Value: &fakeSolution{value: 9}}
	assert.True(t, p.Add(better))
	assert.Same(t, better, p.Best())

	require.Equal(t, 3, p.Size())
}

func TestSolutionPoolAllIsBestFirst(t *testing.T) {
	p := NewSolutionPool(0)
	p.Add(&Solution{Value: &fakeSolution{value: 1}, OriginID: 0})
	p.Add(&Solution{Value: &fakeSolution{value: 9}, OriginID: 0})
	p.Add(&Solution{Value: &fakeSolution{value: 4}, OriginID: 0})

	all := p.All()
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Value.Quality(), all[i].Value.Quality())
	}
	// fakeSolution.Quality() is -value, so the largest value (9) has the
	// smallest (best) quality and sorts first.
	assert.Equal(t, -9.0, all[0].Value.Quality())
}

func TestSolutionPoolBoundEvictsWorst(t *testing.T) {
	p := NewSolutionPool(2)
	p.Add(&Solution{Value: &fakeSolution{value: 1}})
	p.Add(&Solution{Value: &fakeSolution{value: 9}})
	p.Add(&Solution{Value: &fakeSolution{value: 5}})

	require.Equal(t, 2, p.Size())
	qualities := []float64{p.All()[0].Value.Quality(), p.All()[1].Value.Quality()}
	assert.ElementsMatch(t, []float64{-9, -5}, qualities, "the worst (largest, i.e. value=1) solution should have been evicted")
}
