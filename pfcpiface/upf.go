// SPDX-License-Identifier: Apache-2.0
// Copyright(c) 2020 Intel Corporation

package pfcpiface

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/omec-project/pdngw/internal/dataplane"
	"github.com/omec-project/pdngw/internal/pdn"
	"github.com/omec-project/pdngw/logger"
	"github.com/omec-project/pdngw/pfcpiface/metrics"
)

// rate is a pair of token bucket ceilings in bytes per second.
type rate struct {
	uplink   uint64
	downlink uint64
}

// bearerRule is an uplink PDR to be installed as a bearer.
type bearerRule struct {
	pdrID  uint16
	teid   uint32
	choose bool
	rate   *rate
}

type createdBearer struct {
	pdrID uint16
	teid  uint32
}

// tunnel is the downlink outer header toward the peer gateway.
type tunnel struct {
	gateway netip.Addr
	teid    uint32
}

type establishRequest struct {
	controlID pdn.ControlID
	apn       string
	peer      *tunnel
	rate      *rate
	bearers   []bearerRule
}

type modifyRequest struct {
	controlID  pdn.ControlID
	peer       *tunnel
	rate       *rate
	bearers    []bearerRule
	removePDRs []uint16
}

type sessionResult struct {
	ueAddr  netip.Addr
	bearers []createdBearer
}

// sessionCtx is the PFCP view of a registry session.
type sessionCtx struct {
	pdrs map[uint16]pdn.DataID
	rate rate
}

// upf is the serialized gateway. The mutex is the single boundary through
// which control-plane handlers and packet receive loops reach the registry.
type upf struct {
	mu sync.Mutex

	reg      *pdn.Registry
	fwd      *dataplane.Forwarder
	obs      dataplane.Observer
	teids    *FTEIDGenerator
	sessions map[pdn.ControlID]*sessionCtx

	nodeID       string
	accessIP     net.IP
	recoveryTime time.Time
	defaultRate  rate

	metrics metrics.Recorder
}

type upfOption func(*upf)

func withClock(c pdn.Clock) upfOption {
	return func(u *upf) {
		u.reg = pdn.NewRegistry(pdn.WithClock(c))
	}
}

func withObserver(obs dataplane.Observer) upfOption {
	return func(u *upf) {
		u.obs = obs
	}
}

func withMetrics(m metrics.Recorder) upfOption {
	return func(u *upf) {
		u.metrics = m
	}
}

func NewUPF(conf *Conf, opts ...upfOption) *upf {
	u := &upf{
		reg:          pdn.NewRegistry(),
		teids:        NewFTEIDGenerator(),
		sessions:     make(map[pdn.ControlID]*sessionCtx),
		nodeID:       conf.NodeID,
		accessIP:     net.ParseIP(conf.AccessAddr).To4(),
		recoveryTime: time.Now(),
		defaultRate: rate{
			uplink:   conf.DefaultRate.UplinkBps / 8,
			downlink: conf.DefaultRate.DownlinkBps / 8,
		},
	}

	for _, opt := range opts {
		opt(u)
	}

	for _, apn := range conf.APNs {
		// Validated by validateConf.
		gw, err := netip.ParseAddr(apn.Gateway)
		if err != nil {
			logger.InitLog.Warnln("skipping APN", apn.Name, err)
			continue
		}

		u.reg.RegisterAPN(apn.Name, gw)
	}

	return u
}

// setTransmitter attaches the data path. Packets are dropped until then.
func (u *upf) setTransmitter(tx dataplane.Transmitter) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var opts []dataplane.Option
	if u.obs != nil {
		opts = append(opts, dataplane.WithObserver(u.obs))
	}

	u.fwd = dataplane.NewForwarder(u.reg, tx, opts...)
}

func (u *upf) HandleUplink(id pdn.DataID, pkt dataplane.Packet) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.fwd != nil {
		u.fwd.HandleUplink(id, pkt)
	}
}

func (u *upf) HandleDownlink(addr netip.Addr, pkt dataplane.Packet) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.fwd != nil {
		u.fwd.HandleDownlink(addr, pkt)
	}
}

func (u *upf) establishSession(req establishRequest) (sessionResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var peerGW netip.Addr
	if req.peer != nil {
		peerGW = req.peer.gateway
	}

	s, err := u.reg.CreateSession(req.apn, peerGW, req.controlID)
	if err != nil {
		return sessionResult{}, err
	}

	ctx := &sessionCtx{pdrs: make(map[uint16]pdn.DataID), rate: u.defaultRate}
	if req.rate != nil {
		ctx.rate = *req.rate
	}

	u.sessions[req.controlID] = ctx

	res := sessionResult{ueAddr: s.SubscriberAddr()}

	for _, rule := range req.bearers {
		created, err := u.installBearer(s, ctx, rule, req.peer, ctx.rate)
		if err != nil {
			u.removeSession(s)
			return sessionResult{}, err
		}

		res.bearers = append(res.bearers, created)
	}

	if u.metrics != nil {
		u.metrics.RecordSession(metrics.SessionEstablished(u.nodeID))
	}

	logger.PfcpLog.With("control-id", req.controlID).Infoln("session established:", s)

	return res, nil
}

func (u *upf) modifySession(req modifyRequest) (sessionResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	s, ok := u.reg.FindSessionByControlID(req.controlID)
	if !ok {
		return sessionResult{}, pdn.ErrSessionNotFound
	}

	ctx := u.sessions[req.controlID]

	sessRate := ctx.rate
	if req.rate != nil {
		sessRate = *req.rate
	}

	peer := req.peer
	if peer == nil {
		if def, ok := u.reg.DefaultBearerOf(s); ok {
			peer = &tunnel{gateway: s.PeerGateway(), teid: uint32(def.PeerDataID())}
		}
	}

	res := sessionResult{ueAddr: s.SubscriberAddr()}

	// New bearers go in first so a failure leaves the session as it was.
	for _, rule := range req.bearers {
		created, err := u.installBearer(s, ctx, rule, peer, sessRate)
		if err != nil {
			for _, c := range res.bearers {
				u.uninstallBearer(ctx, c.pdrID)
			}

			return sessionResult{ueAddr: res.ueAddr}, err
		}

		res.bearers = append(res.bearers, created)
	}

	if req.peer != nil {
		s.SetPeerGateway(req.peer.gateway)
	}

	ctx.rate = sessRate

	for _, id := range s.Bearers() {
		b, _ := u.reg.FindBearerByDataID(id)

		if req.peer != nil {
			b.SetPeerDataID(pdn.DataID(req.peer.teid))
		}

		if req.rate != nil {
			b.SetUplinkRate(ctx.rate.uplink)
			b.SetDownlinkRate(ctx.rate.downlink)
		}
	}

	for _, pdrID := range req.removePDRs {
		if !u.uninstallBearer(ctx, pdrID) {
			logger.PfcpLog.Warnln("remove of unknown PDR", pdrID, "for control-id", req.controlID)
		}
	}

	logger.PfcpLog.With("control-id", req.controlID).Infoln("session modified:", s)

	return res, nil
}

// uninstallBearer deletes the bearer installed for pdrID and frees its TEID.
func (u *upf) uninstallBearer(ctx *sessionCtx, pdrID uint16) bool {
	id, ok := ctx.pdrs[pdrID]
	if !ok {
		return false
	}

	u.reg.DeleteBearer(id)
	u.teids.FreeID(uint32(id))
	delete(ctx.pdrs, pdrID)

	return true
}

func (u *upf) deleteSession(controlID pdn.ControlID) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	s, ok := u.reg.FindSessionByControlID(controlID)
	if !ok {
		return pdn.ErrSessionNotFound
	}

	u.removeSession(s)

	return nil
}

// deleteAllSessions tears down every session and returns how many there were.
func (u *upf) deleteAllSessions() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	sessions := u.reg.Sessions()
	for _, s := range sessions {
		u.removeSession(s)
	}

	return len(sessions)
}

func (u *upf) installBearer(s *pdn.Session, ctx *sessionCtx, rule bearerRule, peer *tunnel, sessRate rate) (createdBearer, error) {
	if _, ok := ctx.pdrs[rule.pdrID]; ok {
		return createdBearer{}, fmt.Errorf("%w: PDR ID=%v", errDuplicatePDRID, rule.pdrID)
	}

	var teid uint32

	if rule.choose {
		id, err := u.teids.Allocate()
		if err != nil {
			return createdBearer{}, err
		}

		teid = id
	} else {
		if !u.teids.Reserve(rule.teid) {
			return createdBearer{}, fmt.Errorf("%w: F-TEID=%v", pdn.ErrDuplicateDataID, rule.teid)
		}

		teid = rule.teid
	}

	b, err := u.reg.CreateBearer(s, pdn.DataID(teid))
	if err != nil {
		u.teids.FreeID(teid)
		return createdBearer{}, err
	}

	r := sessRate
	if rule.rate != nil {
		r = *rule.rate
	}

	b.SetUplinkRate(r.uplink)
	b.SetDownlinkRate(r.downlink)

	if peer != nil {
		b.SetPeerDataID(pdn.DataID(peer.teid))
	}

	ctx.pdrs[rule.pdrID] = b.DataID()

	return createdBearer{pdrID: rule.pdrID, teid: teid}, nil
}

func (u *upf) removeSession(s *pdn.Session) {
	for _, id := range s.Bearers() {
		u.teids.FreeID(uint32(id))
	}

	u.reg.DeleteSession(s.ControlID())
	delete(u.sessions, s.ControlID())

	if u.metrics != nil {
		u.metrics.RecordSession(metrics.SessionRemoved(u.nodeID, s.CreatedAt(), time.Now()))
	}

	logger.PfcpLog.With("control-id", s.ControlID()).Infoln("session removed")
}

// sessionInfo is the JSON view of a live session.
type sessionInfo struct {
	ControlID      uint64       `json:"controlId"`
	SubscriberAddr string       `json:"subscriberAddress"`
	APN            string       `json:"apn"`
	APNGateway     string       `json:"apnGateway"`
	PeerGateway    string       `json:"peerGateway"`
	Bearers        []bearerInfo `json:"bearers"`
	DefaultBearer  *uint32      `json:"defaultBearer,omitempty"`
}

type bearerInfo struct {
	TEID         uint32 `json:"teid"`
	PeerTEID     uint32 `json:"peerTeid"`
	UplinkRate   uint64 `json:"uplinkBytesPerSec"`
	DownlinkRate uint64 `json:"downlinkBytesPerSec"`
}

func (u *upf) sessionsSnapshot() []sessionInfo {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]sessionInfo, 0, u.reg.NumSessions())

	for _, s := range u.reg.Sessions() {
		info := sessionInfo{
			ControlID:      uint64(s.ControlID()),
			SubscriberAddr: s.SubscriberAddr().String(),
			APN:            s.APN(),
			APNGateway:     s.APNGateway().String(),
			PeerGateway:    addrString(s.PeerGateway()),
			Bearers:        make([]bearerInfo, 0, s.NumBearers()),
		}

		for _, id := range s.Bearers() {
			b, ok := u.reg.FindBearerByDataID(id)
			if !ok {
				continue
			}

			info.Bearers = append(info.Bearers, bearerInfo{
				TEID:         uint32(b.DataID()),
				PeerTEID:     uint32(b.PeerDataID()),
				UplinkRate:   b.UplinkRate(),
				DownlinkRate: b.DownlinkRate(),
			})
		}

		if id, ok := s.DefaultBearer(); ok {
			teid := uint32(id)
			info.DefaultBearer = &teid
		}

		out = append(out, info)
	}

	return out
}

func addrString(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}

	return addr.String()
}

type upfStats struct {
	sessions  int
	bearers   int
	addresses uint32
}

func (u *upf) stats() upfStats {
	u.mu.Lock()
	defer u.mu.Unlock()

	return upfStats{
		sessions:  u.reg.NumSessions(),
		bearers:   u.reg.NumBearers(),
		addresses: u.reg.AllocatedAddresses(),
	}
}
