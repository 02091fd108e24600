// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport wraps nats-io/nats.go, shaped for the broker
// hierarchy's messaging needs instead of pub/sub fan-out:
// point-to-point Send/Mailbox pairs addressed by rank, a Broadcast
// primitive (no broker role calls it), and Group
// for addressing a statically-known subset of ranks (a cluster or a
// hub's worker set) without any runtime coordination message. NATS has
// no native MPI-style communicator or non-blocking Irecv/Test/Wait, so
// this package manufactures the needed shape out of subjects, a
// buffered channel, and explicit unsubscribe.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oss-hpc/alpsearch/internal/log"
)

// Envelope is one received message: its tag, the rank that sent it,
// and the raw application payload (an encoded.Buffer's bytes).
type Envelope struct {
	Tag string
	SrcRank int
	Payload []byte
}

// Bus is one process's connection into the messaging fabric. Every
// process in the hierarchy (master, hub, worker) owns exactly one.
type Bus struct {
	conn *nats.Conn
	runID string
	rank int

	mu sync.Mutex
	subs []*nats.Subscription
}

// NewBus connects to the NATS server described by cfg and returns a
// Bus bound to rank (this process's global rank).
func NewBus(cfg Config, rank int) (*Bus, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("transport: NATS address is required")
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts, nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			log.Warnf("transport: NATS disconnected: %v", err)
		}
	}))
	opts = append(opts, nats.ReconnectHandler(func(nc *nats.Conn) {
		log.Infof("transport: NATS reconnected to %s", nc.ConnectedUrl())
	}))
	opts = append(opts, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		log.Errorf("transport: NATS error: %v", err)
	}))

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: connect failed: %w", err)
	}
	log.Infof("transport: connected to %s as rank %d (run %s)", cfg.Address, rank, cfg.RunID)

	return &Bus{conn: nc, runID: cfg.RunID, rank: rank}, nil
}

func (b *Bus) subjectFor(tag string, rank int) string {
	return fmt.Sprintf("alps.%s.%s.%d", b.runID, tag, rank)
}

func (b *Bus) broadcastSubject(tag string) string {
	return fmt.Sprintf("alps.%s.broadcast.%s", b.runID, tag)
}

func encodeEnvelopePayload(srcRank int, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], uint32(srcRank))
	copy(buf[4:], payload)
	return buf
}

func decodeEnvelopePayload(tag string, data []byte) (Envelope, error) {
	if len(data) < 4 {
		return Envelope{}, fmt.Errorf("transport: BufferOverrun decoding envelope header for tag %q", tag)
	}
	src := int(int32(binary.LittleEndian.Uint32(data[:4])))
	return Envelope{Tag: tag, SrcRank: src, Payload: data[4:]}, nil
}

// Send delivers payload to dstRank under tag. Bounded by NATS's own
// publish buffer/flush backpressure ("blocking sends must be
// bounded") rather than by any queueing this package does itself.
func (b *Bus) Send(ctx context.Context, dstRank int, tag string, payload []byte) error {
	subject := b.subjectFor(tag, dstRank)
	if err := b.conn.Publish(subject, encodeEnvelopePayload(b.rank, payload)); err != nil {
		return fmt.Errorf("transport: send to rank %d tag %q failed: %w", dstRank, tag, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Broadcast publishes payload to every rank subscribed to tag via a
// BroadcastMailbox. No broker role calls it: every process builds its
// model locally and no end-of-run stats gather is performed.
func (b *Bus) Broadcast(ctx context.Context, tag string, payload []byte) error {
	subject := b.broadcastSubject(tag)
	if err := b.conn.Publish(subject, encodeEnvelopePayload(b.rank, payload)); err != nil {
		return fmt.Errorf("transport: broadcast tag %q failed: %w", tag, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Flush blocks until every message published so far has been sent to
// the server, surfacing NATS's own backpressure synchronously.
func (b *Bus) Flush() error {
	return b.conn.Flush()
}

// Group names a statically-known subset of ranks — a cluster or a
// hub's worker set — so the broker can address "everyone in my
// hub" without a coordination message: membership is computed locally
// from (hubNum, N) at startup, the same way every rank derives its own
// subject set.
type Group struct {
	Name string
	Members []int
}

// NewGroup returns a Group with the given name and member ranks.
func NewGroup(name string, members []int) Group {
	return Group{Name: name, Members: append([]int(nil), members...)}
}

// SendToGroup delivers payload to every member of g under tag.
func (b *Bus) SendToGroup(ctx context.Context, g Group, tag string, payload []byte) error {
	for _, rank := range g.Members {
		if err := b.Send(ctx, rank, tag, payload); err != nil {
			return err
		}
	}
	return nil
}

// Close unsubscribes every Mailbox/BroadcastMailbox this Bus has
// created and closes the underlying connection.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warnf("transport: unsubscribe failed: %v", err)
		}
	}
	b.subs = nil
	if b.conn != nil {
		b.conn.Close()
		log.Info("transport: connection closed")
	}
}

func (b *Bus) track(sub *nats.Subscription) {
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// Mailbox is the non-blocking receive endpoint for one (tag, rank)
// pair: a single nats.Subscription bound into a buffered channel,
// standing in for one outstanding non-blocking receive into a fixed
// buffer.
type Mailbox struct {
	tag string
	sub *nats.Subscription
	ch chan *nats.Msg
}

// NewMailbox opens a Mailbox for messages addressed to this Bus's own
// rank under tag, with room for bufSize unread messages before NATS
// starts dropping (slow-consumer behavior is left to the server
// default, matching pkg/nats's ChanSubscribe usage).
func (b *Bus) NewMailbox(tag string, bufSize int) (*Mailbox, error) {
	subject := b.subjectFor(tag, b.rank)
	ch := make(chan *nats.Msg, bufSize)
	sub, err := b.conn.ChanSubscribe(subject, ch)
	if err != nil {
		return nil, fmt.Errorf("transport: mailbox subscribe to %q failed: %w", subject, err)
	}
	b.track(sub)
	return &Mailbox{tag: tag, sub: sub, ch: ch}, nil
}

// NewBroadcastMailbox opens a Mailbox that receives every Broadcast
// published under tag, regardless of rank.
func (b *Bus) NewBroadcastMailbox(tag string, bufSize int) (*Mailbox, error) {
	subject := b.broadcastSubject(tag)
	ch := make(chan *nats.Msg, bufSize)
	sub, err := b.conn.ChanSubscribe(subject, ch)
	if err != nil {
		return nil, fmt.Errorf("transport: broadcast mailbox subscribe to %q failed: %w", subject, err)
	}
	b.track(sub)
	return &Mailbox{tag: tag, sub: sub, ch: ch}, nil
}

// Poll waits up to period for one message, returning (Envelope, true)
// if one arrived, or (zero, false) on timeout. This is the engine's
// non-blocking receive: the scheduler loop calls Poll with a small
// period on every tick rather than blocking indefinitely.
func (m *Mailbox) Poll(period time.Duration) (Envelope, bool) {
	select {
	case msg, ok := <-m.ch:
		if !ok {
			return Envelope{}, false
		}
		env, err := decodeEnvelopePayload(m.tag, msg.Data)
		if err != nil {
			log.Warnf("transport: %v", err)
			return Envelope{}, false
		}
		return env, true
	case <-time.After(period):
		return Envelope{}, false
	}
}

// TryPoll is Poll with a zero wait: it returns immediately, used when
// the scheduler wants a strictly non-blocking check between other
// work.
func (m *Mailbox) TryPoll() (Envelope, bool) {
	select {
	case msg, ok := <-m.ch:
		if !ok {
			return Envelope{}, false
		}
		env, err := decodeEnvelopePayload(m.tag, msg.Data)
		if err != nil {
			log.Warnf("transport: %v", err)
			return Envelope{}, false
		}
		return env, true
	default:
		return Envelope{}, false
	}
}

// Cancel unsubscribes the mailbox; it stops receiving but does not
// close the owning Bus.
func (m *Mailbox) Cancel() error {
	return m.sub.Unsubscribe()
}
