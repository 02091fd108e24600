// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package encoded

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagIsFixedAtConstruction(t *testing.T) {
	b := New("node")
	assert.Equal(t, "node", b.Tag())
}

func TestScalarRoundTrips(t *testing.T) {
	b := New("t")
	b.WriteUint8(200)
	b.WriteInt32(-7)
	b.WriteUint32(42)
	b.WriteInt64(-123456789)
	b.WriteUint64(987654321)
	b.WriteFloat64(3.14159)
	b.WriteBool(true)
	b.WriteBool(false)

	r := NewFromBytes("t", b.Bytes())

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(200), u8)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), u32)

	i64, err := r.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-123456789), i64)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(987654321), u64)

	f64, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.14159, f64)

	bTrue, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, bTrue)

	bFalse, err := r.ReadBool()
	require.NoError(t, err)
	assert.False(t, bFalse)
}

func TestStringRoundTrips(t *testing.T) {
	b := New("t")
	b.WriteString("hello, search tree")

	r := NewFromBytes("t", b.Bytes())
	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello, search tree", s)
}

func TestBytesRoundTrips(t *testing.T) {
	b := New("t")
	payload := []byte{1, 2, 3, 4, 5}
	b.WriteBytes(payload)

	r := NewFromBytes("t", b.Bytes())
	got, err := r.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestInt32ArrayRoundTrips(t *testing.T) {
	b := New("t")
	vs := []int32{1, -2, 3, -4}
	b.WriteInt32Array(vs)

	r := NewFromBytes("t", b.Bytes())
	got, err := r.ReadInt32Array()
	require.NoError(t, err)
	assert.Equal(t, vs, got)
}

func TestFloat64ArrayRoundTrips(t *testing.T) {
	b := New("t")
	vs := []float64{1.5, -2.5, 3.0}
	b.WriteFloat64Array(vs)

	r := NewFromBytes("t", b.Bytes())
	got, err := r.ReadFloat64Array()
	require.NoError(t, err)
	assert.Equal(t, vs, got)
}

func TestVectorRoundTrips(t *testing.T) {
	b := New("t")
	vs := []string{"a", "bb", "ccc"}
	b.WriteVector(vs)

	r := NewFromBytes("t", b.Bytes())
	got, err := r.ReadVector()
	require.NoError(t, err)
	assert.Equal(t, vs, got)
}

func TestEmptyArraysRoundTrip(t *testing.T) {
	b := New("t")
	b.WriteInt32Array(nil)
	b.WriteVector(nil)

	r := NewFromBytes("t", b.Bytes())
	arr, err := r.ReadInt32Array()
	require.NoError(t, err)
	assert.Empty(t, arr)

	vec, err := r.ReadVector()
	require.NoError(t, err)
	assert.Empty(t, vec)
}

func TestReadPastEndReturnsBufferOverrun(t *testing.T) {
	b := New("t")
	b.WriteUint8(1)
	r := NewFromBytes("t", b.Bytes())

	_, err := r.ReadInt32()
	assert.ErrorIs(t, err, ErrBufferOverrun)
}

func TestReadStringWithTruncatedPayloadReturnsBufferOverrun(t *testing.T) {
	b := New("t")
	b.WriteUint32(100)
	r := NewFromBytes("t", b.Bytes())

	_, err := r.ReadString()
	assert.ErrorIs(t, err, ErrBufferOverrun)
}

func TestResetRewindsCursorWithoutDiscardingData(t *testing.T) {
	b := New("t")
	b.WriteInt32(9)
	r := NewFromBytes("t", b.Bytes())

	first, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(9), first)

	r.Reset()
	assert.Equal(t, 0, r.Pos())

	second, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLenReflectsBytesWritten(t *testing.T) {
	b := New("t")
	b.WriteInt32(1)
	b.WriteInt32(2)
	assert.Equal(t, 8, b.Len())
}
