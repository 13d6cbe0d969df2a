// SPDX-License-Identifier: Apache-2.0
// Copyright 2021-present Intel Corporation

package metrics

import "time"

// Direction tells whether a PFCP message was received or sent by the gateway.
type Direction string

const (
	Incoming Direction = "Incoming"
	Outgoing Direction = "Outgoing"
)

// Exchange times the handling of one PFCP message, from decode to reply for
// incoming messages and from marshal to write for outgoing ones.
type Exchange struct {
	MsgType   string
	Direction Direction

	peer    string
	failed  bool
	started time.Time
	elapsed time.Duration
}

func StartExchange(msgType string, dir Direction) *Exchange {
	return &Exchange{
		MsgType:   msgType,
		Direction: dir,
		started:   time.Now(),
	}
}

// Done closes the exchange against peer. A non-nil err marks it failed.
func (e *Exchange) Done(peer string, err error) {
	e.peer = peer
	e.failed = err != nil
	e.elapsed = time.Since(e.started)
}

func (e *Exchange) Peer() string { return e.peer }

func (e *Exchange) Elapsed() time.Duration { return e.elapsed }

func (e *Exchange) Result() string {
	if e.failed {
		return "Failure"
	}

	return "Success"
}

// SessionEvent reports a session entering or leaving the gateway on behalf
// of the control plane peer NodeID.
type SessionEvent struct {
	NodeID  string
	Removed bool
	// Lifetime is only set on removal.
	Lifetime time.Duration
}

func SessionEstablished(nodeID string) SessionEvent {
	return SessionEvent{NodeID: nodeID}
}

func SessionRemoved(nodeID string, createdAt, now time.Time) SessionEvent {
	return SessionEvent{
		NodeID:   nodeID,
		Removed:  true,
		Lifetime: now.Sub(createdAt),
	}
}

// Recorder receives control plane events; Service is the Prometheus
// implementation.
type Recorder interface {
	RecordExchange(e *Exchange)
	RecordSession(ev SessionEvent)
	Stop() error
}
