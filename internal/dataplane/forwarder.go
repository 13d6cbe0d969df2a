// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package dataplane

import (
	"net/netip"

	"github.com/omec-project/pdngw/internal/pdn"
	"github.com/omec-project/pdngw/logger"
)

// Packet is an opaque buffer; only its length matters for policing.
type Packet interface {
	Size() int
}

// Buffer is a Packet backed by a byte slice.
type Buffer []byte

func (b Buffer) Size() int { return len(b) }

func (b Buffer) Bytes() []byte { return b }

// Transmitter delivers packets. Both calls are fire-and-forget.
type Transmitter interface {
	// ForwardToAPN sends uplink traffic to the APN gateway.
	ForwardToAPN(gateway netip.Addr, pkt Packet)
	// ForwardToPeer sends downlink traffic to the control-side gateway,
	// addressed to the remote tunnel endpoint peer.
	ForwardToPeer(gateway netip.Addr, peer pdn.DataID, pkt Packet)
}

// Observer is notified of every forwarding decision.
type Observer interface {
	Forwarded(dir Direction, size int)
	Dropped(dir Direction, reason DropReason)
}

// Lookup is the read-only view of the tunnel registry used for dispatch.
type Lookup interface {
	FindBearerByDataID(id pdn.DataID) (*pdn.Bearer, bool)
	FindSessionBySubscriberAddr(addr netip.Addr) (*pdn.Session, bool)
	OwningSession(b *pdn.Bearer) (*pdn.Session, bool)
	DefaultBearerOf(s *pdn.Session) (*pdn.Bearer, bool)
}

type Direction int

const (
	Uplink Direction = iota
	Downlink
)

func (d Direction) String() string {
	switch d {
	case Uplink:
		return "uplink"
	case Downlink:
		return "downlink"
	default:
		return "unknown"
	}
}

type DropReason int

const (
	BearerNotFound DropReason = iota
	SessionNotFound
	DefaultBearerMissing
	RateLimited
)

var dropReasons = [...]string{
	BearerNotFound:       "BearerNotFound",
	SessionNotFound:      "SessionNotFound",
	DefaultBearerMissing: "DefaultBearerMissing",
	RateLimited:          "RateLimited",
}

func (r DropReason) String() string {
	if r < 0 || int(r) >= len(dropReasons) {
		return "Unknown"
	}

	return dropReasons[r]
}

// DropReasons lists every reason a packet can be dropped for.
func DropReasons() []DropReason {
	return []DropReason{BearerNotFound, SessionNotFound, DefaultBearerMissing, RateLimited}
}

// Forwarder dispatches packets between the tunnel registry and a
// Transmitter. It holds no state of its own; drops are never reported to the
// caller.
type Forwarder struct {
	lookup Lookup
	tx     Transmitter
	obs    Observer
}

type Option func(*Forwarder)

func WithObserver(obs Observer) Option {
	return func(f *Forwarder) {
		f.obs = obs
	}
}

func NewForwarder(lookup Lookup, tx Transmitter, opts ...Option) *Forwarder {
	f := &Forwarder{lookup: lookup, tx: tx}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// HandleUplink polices and forwards a packet received on tunnel id toward
// the APN gateway of its session.
func (f *Forwarder) HandleUplink(id pdn.DataID, pkt Packet) {
	b, ok := f.lookup.FindBearerByDataID(id)
	if !ok {
		f.drop(Uplink, BearerNotFound)
		return
	}

	s, ok := f.lookup.OwningSession(b)
	if !ok {
		f.drop(Uplink, SessionNotFound)
		return
	}

	if !b.AllowUplink(pkt.Size()) {
		f.drop(Uplink, RateLimited)
		return
	}

	f.tx.ForwardToAPN(s.APNGateway(), pkt)
	f.forwarded(Uplink, pkt.Size())
}

// HandleDownlink polices and forwards a packet destined to a subscriber
// address over the default bearer of its session.
func (f *Forwarder) HandleDownlink(addr netip.Addr, pkt Packet) {
	s, ok := f.lookup.FindSessionBySubscriberAddr(addr)
	if !ok {
		f.drop(Downlink, SessionNotFound)
		return
	}

	b, ok := f.lookup.DefaultBearerOf(s)
	if !ok {
		f.drop(Downlink, DefaultBearerMissing)
		return
	}

	if !b.AllowDownlink(pkt.Size()) {
		f.drop(Downlink, RateLimited)
		return
	}

	f.tx.ForwardToPeer(s.PeerGateway(), b.PeerDataID(), pkt)
	f.forwarded(Downlink, pkt.Size())
}

func (f *Forwarder) drop(dir Direction, reason DropReason) {
	logger.FwdLog.Debugw("packet dropped", "direction", dir, "reason", reason)

	if f.obs != nil {
		f.obs.Dropped(dir, reason)
	}
}

func (f *Forwarder) forwarded(dir Direction, size int) {
	if f.obs != nil {
		f.obs.Forwarded(dir, size)
	}
}
