// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import (
	"fmt"
	"net/netip"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set"
)

// ControlID is the control-plane identifier of a session (F-SEID or TEID-C).
type ControlID uint64

// SessionHandle is the stable arena key of a session inside its Registry.
type SessionHandle uint64

// Session is a PDN connection: one subscriber attachment and its bearers.
type Session struct {
	handle    SessionHandle
	controlID ControlID
	ueAddr    netip.Addr
	apn       string
	apnGW     netip.Addr
	peerGW    netip.Addr
	createdAt time.Time

	// bearers holds the DataIDs of the bearers attached to this session.
	bearers       mapset.Set
	defaultBearer DataID
	hasDefault    bool
}

func newSession(handle SessionHandle, controlID ControlID, ueAddr netip.Addr, apn string,
	apnGW, peerGW netip.Addr, createdAt time.Time) *Session {
	return &Session{
		handle:    handle,
		controlID: controlID,
		ueAddr:    ueAddr,
		apn:       apn,
		apnGW:     apnGW,
		peerGW:    peerGW,
		createdAt: createdAt,
		bearers:   mapset.NewThreadUnsafeSet(),
	}
}

func (s *Session) Handle() SessionHandle {
	return s.handle
}

func (s *Session) ControlID() ControlID {
	return s.controlID
}

// SubscriberAddr is the address allocated to the UE.
func (s *Session) SubscriberAddr() netip.Addr {
	return s.ueAddr
}

func (s *Session) APN() string {
	return s.apn
}

func (s *Session) APNGateway() netip.Addr {
	return s.apnGW
}

// PeerGateway is the control-side gateway that receives downlink traffic.
func (s *Session) PeerGateway() netip.Addr {
	return s.peerGW
}

func (s *Session) SetPeerGateway(addr netip.Addr) {
	s.peerGW = addr
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// AddBearer attaches b to the session. It does not change the default bearer.
func (s *Session) AddBearer(b *Bearer) {
	s.bearers.Add(b.DataID())
}

// RemoveBearer detaches a bearer. Removing an absent bearer is a no-op.
// A default bearer that is removed stops being the default.
func (s *Session) RemoveBearer(id DataID) {
	s.bearers.Remove(id)

	if s.hasDefault && s.defaultBearer == id {
		s.ClearDefaultBearer()
	}
}

func (s *Session) HasBearer(id DataID) bool {
	return s.bearers.Contains(id)
}

// Bearers returns the attached DataIDs in ascending order.
func (s *Session) Bearers() []DataID {
	ids := make([]DataID, 0, s.bearers.Cardinality())
	for _, v := range s.bearers.ToSlice() {
		ids = append(ids, v.(DataID))
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (s *Session) NumBearers() int {
	return s.bearers.Cardinality()
}

// DefaultBearer returns the bearer used for downlink traffic that carries no
// tunnel identifier.
func (s *Session) DefaultBearer() (DataID, bool) {
	return s.defaultBearer, s.hasDefault
}

// SetDefaultBearer designates an attached bearer as default.
func (s *Session) SetDefaultBearer(id DataID) error {
	if !s.HasBearer(id) {
		return errWithParam(errNotMember, "TEID", id)
	}

	s.defaultBearer = id
	s.hasDefault = true

	return nil
}

func (s *Session) ClearDefaultBearer() {
	s.defaultBearer = 0
	s.hasDefault = false
}

func (s *Session) String() string {
	defaultBearer := "none"
	if s.hasDefault {
		defaultBearer = fmt.Sprint(s.defaultBearer)
	}

	return fmt.Sprintf("Session(control-id=%v, UE=%v, APN=%s, APN GW=%v, peer GW=%v, bearers=%v, default=%s)",
		s.controlID, s.ueAddr, s.apn, s.apnGW, s.peerGW, s.Bearers(), defaultBearer)
}
