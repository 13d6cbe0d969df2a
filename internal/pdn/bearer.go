// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import "fmt"

// DataID is the user-plane tunnel endpoint identifier (TEID) of a bearer.
type DataID uint32

// Bearer is one data tunnel of a Session. It refers to its session by handle
// and owns one token bucket per direction.
type Bearer struct {
	dataID     DataID
	peerDataID DataID
	session    SessionHandle

	uplink   *TokenBucket
	downlink *TokenBucket
}

// NewBearer creates a bearer bound to s. A nil session is a programming
// error and panics.
func NewBearer(dataID DataID, s *Session, clock Clock) *Bearer {
	if s == nil {
		panic("pdn: bearer requires an owning session")
	}

	return &Bearer{
		dataID:   dataID,
		session:  s.handle,
		uplink:   NewTokenBucket(clock),
		downlink: NewTokenBucket(clock),
	}
}

func (b *Bearer) DataID() DataID {
	return b.dataID
}

// PeerDataID is the remote endpoint TEID used to address downlink traffic.
func (b *Bearer) PeerDataID() DataID {
	return b.peerDataID
}

func (b *Bearer) SetPeerDataID(id DataID) {
	b.peerDataID = id
}

// Session returns the handle of the owning session. Resolve it with
// Registry.OwningSession.
func (b *Bearer) Session() SessionHandle {
	return b.session
}

func (b *Bearer) SetUplinkRate(bytesPerSec uint64) {
	b.uplink.Configure(bytesPerSec)
}

func (b *Bearer) SetDownlinkRate(bytesPerSec uint64) {
	b.downlink.Configure(bytesPerSec)
}

func (b *Bearer) UplinkRate() uint64 {
	return b.uplink.Ceiling()
}

func (b *Bearer) DownlinkRate() uint64 {
	return b.downlink.Ceiling()
}

// AllowUplink charges the uplink bucket. State is refreshed even on denial.
func (b *Bearer) AllowUplink(size int) bool {
	return b.uplink.Admit(size)
}

// AllowDownlink charges the downlink bucket. State is refreshed even on denial.
func (b *Bearer) AllowDownlink(size int) bool {
	return b.downlink.Admit(size)
}

func (b *Bearer) String() string {
	return fmt.Sprintf("Bearer(TEID=%v, peerTEID=%v, session=%v, uplink=%v, downlink=%v)",
		b.dataID, b.peerDataID, b.session, b.uplink, b.downlink)
}
