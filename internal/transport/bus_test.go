// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

import "testing"

func TestEnvelopePayloadRoundTrip(t *testing.T) {
	payload := []byte("donate subtree")
	encoded := encodeEnvelopePayload(7, payload)

	env, err := decodeEnvelopePayload("donate", encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.SrcRank != 7 {
		t.Fatalf("SrcRank = %d, want 7", env.SrcRank)
	}
	if string(env.Payload) != "donate subtree" {
		t.Fatalf("Payload = %q, want %q", env.Payload, "donate subtree")
	}
	if env.Tag != "donate" {
		t.Fatalf("Tag = %q, want %q", env.Tag, "donate")
	}
}

func TestDecodeEnvelopePayloadTooShort(t *testing.T) {
	if _, err := decodeEnvelopePayload("x", []byte{1, 2}); err == nil {
		t.Fatal("expected error decoding truncated envelope")
	}
}

func TestNewBusRejectsEmptyAddress(t *testing.T) {
	if _, err := NewBus(Config{}, 0); err == nil {
		t.Fatal("expected error for empty address")
	}
}
