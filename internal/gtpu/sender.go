// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package gtpu

import (
	"net"
	"net/netip"

	"github.com/wmnsk/go-gtp/gtpv1/message"

	"github.com/omec-project/pdngw/internal/dataplane"
	"github.com/omec-project/pdngw/internal/pdn"
	"github.com/omec-project/pdngw/logger"
)

// APNWriter delivers inner packets to an APN gateway.
type APNWriter interface {
	WriteToAPN(b []byte, gw netip.Addr) error
}

type byteser interface {
	Bytes() []byte
}

// Sender implements dataplane.Transmitter over a GTP-U socket toward peer
// gateways and an APNWriter toward APN gateways. Failures are logged and
// swallowed.
type Sender struct {
	gtpu     net.PacketConn
	apn      APNWriter
	peerPort int
}

type SenderOption func(*Sender)

// WithPeerPort overrides the destination UDP port of T-PDUs.
func WithPeerPort(port int) SenderOption {
	return func(s *Sender) {
		s.peerPort = port
	}
}

func NewSender(gtpu net.PacketConn, apn APNWriter, opts ...SenderOption) *Sender {
	s := &Sender{gtpu: gtpu, apn: apn, peerPort: Port}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Sender) ForwardToAPN(gw netip.Addr, pkt dataplane.Packet) {
	b, ok := payload(pkt)
	if !ok {
		return
	}

	if s.apn == nil || !gw.IsValid() {
		logger.GtpuLog.Debugln("no SGi socket or gateway, dropping packet for", gw)
		return
	}

	if err := s.apn.WriteToAPN(b, gw); err != nil {
		logger.GtpuLog.Debugln("failed to forward to APN gateway", gw, err)
	}
}

func (s *Sender) ForwardToPeer(gw netip.Addr, peer pdn.DataID, pkt dataplane.Packet) {
	// No downlink tunnel has been signalled yet.
	if !gw.IsValid() || gw.IsUnspecified() {
		logger.GtpuLog.Debugln("no peer gateway, dropping packet for TEID", peer)
		return
	}

	b, ok := payload(pkt)
	if !ok {
		return
	}

	out, err := message.NewTPDU(uint32(peer), b).Marshal()
	if err != nil {
		logger.GtpuLog.Debugln("failed to marshal T-PDU:", err)
		return
	}

	rAddr := &net.UDPAddr{IP: gw.AsSlice(), Port: s.peerPort}
	if _, err := s.gtpu.WriteTo(out, rAddr); err != nil {
		logger.GtpuLog.Debugln("failed to forward to peer gateway", rAddr, err)
	}
}

func payload(pkt dataplane.Packet) ([]byte, bool) {
	p, ok := pkt.(byteser)
	if !ok {
		logger.GtpuLog.Debugf("packet of type %T carries no payload", pkt)
		return nil, false
	}

	return p.Bytes(), true
}
