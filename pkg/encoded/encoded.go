// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package encoded implements the growable, cursor-addressed byte buffer
// that carries a knowledge object (a TreeNode, a NodeDesc, a Solution,
// or a whole Subtree) across a process boundary without the core
// knowing its concrete shape. See AlpsEncoded.h in the original source
// for the contract this mirrors.
package encoded

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrBufferOverrun is returned whenever a read would advance the cursor
// past the written length: fatal within the local decode operation.
var ErrBufferOverrun = errors.New("encoded: buffer overrun")

// ErrUnknownType names a type-tag lookup miss. No function in this
// module returns it.
var ErrUnknownType = errors.New("encoded: unknown type tag")

var order = binary.LittleEndian

// Buffer is a growable byte buffer with a read cursor, tagged once at
// construction with the application type string it carries. The tag is
// never rewritten.
type Buffer struct {
	tag string
	data []byte
	pos int
}

// New creates an empty, writable Buffer tagged with typeTag.
func New(typeTag string) *Buffer {
	return &Buffer{tag: typeTag}
}

// NewFromBytes wraps an existing byte slice for reading, tagged with
// typeTag. The cursor starts at zero.
func NewFromBytes(typeTag string, data []byte) *Buffer {
	return &Buffer{tag: typeTag, data: data}
}

// Tag returns the type tag fixed at construction.
func (b *Buffer) Tag() string { return b.tag }

// Bytes returns the buffer's full backing slice (for handing off to a
// transport Send).
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.data) }

// Pos returns the current read cursor.
func (b *Buffer) Pos() int { return b.pos }

// Reset rewinds the read cursor to zero without discarding the data;
// used when a buffer is decoded more than once (e.g. in tests).
func (b *Buffer) Reset() { b.pos = 0 }

func (b *Buffer) ensure(n int) error {
	if b.pos+n > len(b.data) {
		return fmt.Errorf("%w: need %d bytes at pos %d, have %d", ErrBufferOverrun, n, b.pos, len(b.data))
	}
	return nil
}

// --- fixed-width scalars ---

func (b *Buffer) WriteUint8(v uint8) { b.data = append(b.data, v) }
func (b *Buffer) WriteInt32(v int32) { b.writeFixed(uint32(v)) }
func (b *Buffer) WriteUint32(v uint32) { b.writeFixed(v) }
func (b *Buffer) WriteInt64(v int64) { b.writeFixed(uint64(v)) }
func (b *Buffer) WriteUint64(v uint64) { b.writeFixed(v) }
func (b *Buffer) WriteFloat64(v float64) {
	b.writeFixed(math.Float64bits(v))
}
func (b *Buffer) WriteBool(v bool) {
	if v {
		b.WriteUint8(1)
	} else {
		b.WriteUint8(0)
	}
}

func (b *Buffer) writeFixed(v interface{}) {
	switch x := v.(type) {
	case uint32:
		var tmp [4]byte
		order.PutUint32(tmp[:], x)
		b.data = append(b.data, tmp[:]...)
	case uint64:
		var tmp [8]byte
		order.PutUint64(tmp[:], x)
		b.data = append(b.data, tmp[:]...)
	}
}

func (b *Buffer) ReadUint8() (uint8, error) {
	if err := b.ensure(1); err != nil {
		return 0, err
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadUint32() (uint32, error) {
	if err := b.ensure(4); err != nil {
		return 0, err
	}
	v := order.Uint32(b.data[b.pos:])
	b.pos += 4
	return v, nil
}

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) ReadUint64() (uint64, error) {
	if err := b.ensure(8); err != nil {
		return 0, err
	}
	v := order.Uint64(b.data[b.pos:])
	b.pos += 8
	return v, nil
}

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadUint8()
	return v != 0, err
}

// --- counted strings, arrays, vectors ---

// WriteString writes a length prefix (uint32) followed by the raw bytes.
func (b *Buffer) WriteString(s string) {
	b.WriteUint32(uint32(len(s)))
	b.data = append(b.data, s...)
}

func (b *Buffer) ReadString() (string, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return "", err
	}
	if err := b.ensure(int(n)); err != nil {
		return "", err
	}
	s := string(b.data[b.pos : b.pos+int(n)])
	b.pos += int(n)
	return s, nil
}

// WriteBytes writes a counted byte array: length prefix then raw bytes.
func (b *Buffer) WriteBytes(p []byte) {
	b.WriteUint32(uint32(len(p)))
	b.data = append(b.data, p...)
}

func (b *Buffer) ReadBytes() ([]byte, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := b.ensure(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.data[b.pos:b.pos+int(n)])
	b.pos += int(n)
	return out, nil
}

// WriteInt32Array writes a counted array of int32 (writeArray(T=int32)).
func (b *Buffer) WriteInt32Array(vs []int32) {
	b.WriteUint32(uint32(len(vs)))
	for _, v := range vs {
		b.WriteInt32(v)
	}
}

func (b *Buffer) ReadInt32Array() ([]int32, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		v, err := b.ReadInt32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// WriteFloat64Array mirrors WriteInt32Array for float64.
func (b *Buffer) WriteFloat64Array(vs []float64) {
	b.WriteUint32(uint32(len(vs)))
	for _, v := range vs {
		b.WriteFloat64(v)
	}
}

func (b *Buffer) ReadFloat64Array() ([]float64, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		v, err := b.ReadFloat64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// WriteVector writes a counted sequence of strings, e.g. for a
// NodeDesc's label set.
func (b *Buffer) WriteVector(vs []string) {
	b.WriteUint32(uint32(len(vs)))
	for _, v := range vs {
		b.WriteString(v)
	}
}

func (b *Buffer) ReadVector() ([]string, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		v, err := b.ReadString()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
