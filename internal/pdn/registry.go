// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import (
	"net/netip"
	"sort"

	"github.com/omec-project/pdngw/logger"
)

// Registry is the authority over session and bearer identity. It keeps four
// indexes mutually consistent:
//
//	control ID        -> session handle
//	subscriber address -> session handle
//	data ID           -> bearer
//	APN name          -> gateway address
//
// A Registry is not safe for concurrent use; callers serialize access.
type Registry struct {
	clock Clock

	sessions   map[SessionHandle]*Session
	nextHandle SessionHandle

	byControlID  map[ControlID]SessionHandle
	bySubscriber map[netip.Addr]SessionHandle
	bearers      map[DataID]*Bearer
	apns         map[string]netip.Addr

	addrs *addrAllocator
}

type Option func(*Registry)

// WithClock sets the clock handed to the token buckets of new bearers.
func WithClock(c Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// withAddressBlock overrides the subscriber address block. Tests use it to
// reach exhaustion quickly.
func withAddressBlock(block string) Option {
	return func(r *Registry) {
		a, err := newAddrAllocator(block)
		if err != nil {
			panic(err)
		}

		r.addrs = a
	}
}

func NewRegistry(opts ...Option) *Registry {
	addrs, err := newAddrAllocator(SubscriberAddressBlock)
	if err != nil {
		panic(err)
	}

	r := &Registry{
		clock:        SystemClock,
		sessions:     make(map[SessionHandle]*Session),
		nextHandle:   1,
		byControlID:  make(map[ControlID]SessionHandle),
		bySubscriber: make(map[netip.Addr]SessionHandle),
		bearers:      make(map[DataID]*Bearer),
		apns:         make(map[string]netip.Addr),
		addrs:        addrs,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegisterAPN maps name to gateway, replacing any previous mapping.
func (r *Registry) RegisterAPN(name string, gateway netip.Addr) {
	r.apns[name] = gateway
	logger.CtxLog.With("APN", name, "gateway", gateway).Debugln("APN registered")
}

func (r *Registry) APNGateway(name string) (netip.Addr, bool) {
	gw, ok := r.apns[name]
	return gw, ok
}

// CreateSession allocates a subscriber address and indexes a new session
// under controlID. Nothing is consumed when creation fails.
func (r *Registry) CreateSession(apn string, peerGW netip.Addr, controlID ControlID) (*Session, error) {
	apnGW, ok := r.apns[apn]
	if !ok {
		return nil, errWithParam(ErrUnknownAPN, "APN", apn)
	}

	if _, exists := r.byControlID[controlID]; exists {
		return nil, errWithParam(ErrDuplicateControlID, "control-id", controlID)
	}

	ueAddr, err := r.addrs.peek()
	if err != nil {
		return nil, err
	}

	r.addrs.commit()

	handle := r.nextHandle
	r.nextHandle++

	s := newSession(handle, controlID, ueAddr, apn, apnGW, peerGW, r.clock.Now())
	r.sessions[handle] = s
	r.byControlID[controlID] = handle
	r.bySubscriber[ueAddr] = handle

	logger.CtxLog.With("control-id", controlID, "UE", ueAddr, "APN", apn).Debugln("session created")

	return s, nil
}

// DeleteSession removes the session and every bearer attached to it. Unknown
// control IDs are ignored.
func (r *Registry) DeleteSession(controlID ControlID) {
	handle, ok := r.byControlID[controlID]
	if !ok {
		return
	}

	s := r.sessions[handle]
	for _, id := range s.Bearers() {
		delete(r.bearers, id)
		s.RemoveBearer(id)
	}

	delete(r.byControlID, controlID)
	delete(r.bySubscriber, s.ueAddr)
	delete(r.sessions, handle)

	logger.CtxLog.With("control-id", controlID, "UE", s.ueAddr).Debugln("session deleted")
}

// CreateBearer indexes a new bearer under dataID and attaches it to s. The
// first bearer of a session with no default becomes the default.
func (r *Registry) CreateBearer(s *Session, dataID DataID) (*Bearer, error) {
	if s == nil {
		return nil, ErrSessionNotFound
	}

	if live, ok := r.sessions[s.handle]; !ok || live != s {
		return nil, errWithParam(ErrSessionNotFound, "control-id", s.controlID)
	}

	if _, exists := r.bearers[dataID]; exists {
		return nil, errWithParam(ErrDuplicateDataID, "TEID", dataID)
	}

	b := NewBearer(dataID, s, r.clock)
	r.bearers[dataID] = b
	s.AddBearer(b)

	if _, ok := s.DefaultBearer(); !ok {
		// Membership was just established, so this cannot fail.
		_ = s.SetDefaultBearer(dataID)
	}

	logger.CtxLog.With("control-id", s.controlID, "TEID", dataID).Debugln("bearer created")

	return b, nil
}

// DeleteBearer removes the bearer indexed by dataID. Unknown IDs are ignored.
func (r *Registry) DeleteBearer(dataID DataID) {
	b, ok := r.bearers[dataID]
	if !ok {
		return
	}

	if s, ok := r.sessions[b.session]; ok {
		s.RemoveBearer(dataID)
	}

	delete(r.bearers, dataID)

	logger.CtxLog.With("TEID", dataID).Debugln("bearer deleted")
}

func (r *Registry) FindSessionByControlID(id ControlID) (*Session, bool) {
	handle, ok := r.byControlID[id]
	if !ok {
		return nil, false
	}

	return r.sessions[handle], true
}

func (r *Registry) FindSessionBySubscriberAddr(addr netip.Addr) (*Session, bool) {
	handle, ok := r.bySubscriber[addr.Unmap()]
	if !ok {
		return nil, false
	}

	return r.sessions[handle], true
}

func (r *Registry) FindBearerByDataID(id DataID) (*Bearer, bool) {
	b, ok := r.bearers[id]
	return b, ok
}

// OwningSession resolves the session handle held by b.
func (r *Registry) OwningSession(b *Bearer) (*Session, bool) {
	if b == nil {
		return nil, false
	}

	s, ok := r.sessions[b.session]

	return s, ok
}

// DefaultBearerOf resolves the default bearer of s.
func (r *Registry) DefaultBearerOf(s *Session) (*Bearer, bool) {
	if s == nil {
		return nil, false
	}

	id, ok := s.DefaultBearer()
	if !ok {
		return nil, false
	}

	b, ok := r.bearers[id]

	return b, ok
}

// Sessions returns the live sessions ordered by control ID.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].controlID < out[j].controlID })

	return out
}

func (r *Registry) NumSessions() int {
	return len(r.sessions)
}

func (r *Registry) NumBearers() int {
	return len(r.bearers)
}

// AllocatedAddresses is the number of subscriber addresses handed out so far.
func (r *Registry) AllocatedAddresses() uint32 {
	return r.addrs.allocated()
}
