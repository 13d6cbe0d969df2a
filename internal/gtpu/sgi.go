// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package gtpu

import (
	"context"
	"errors"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"

	"github.com/omec-project/pdngw/internal/dataplane"
	"github.com/omec-project/pdngw/logger"
)

// ipInIP is the IPv4 protocol number of IPv4 encapsulation.
const ipInIP = "ip4:4"

// DownlinkHandler consumes packets received from the APN side. pkt is only
// valid for the duration of the call.
type DownlinkHandler interface {
	HandleDownlink(addr netip.Addr, pkt dataplane.Packet)
}

// SGiConn exchanges IP-in-IP encapsulated traffic with APN gateways. The
// kernel adds and strips the outer header; reads and writes carry the inner
// IPv4 packet.
type SGiConn struct {
	raw     net.PacketConn
	pc      *ipv4.PacketConn
	handler DownlinkHandler
}

// ListenSGi opens a raw IP-in-IP socket bound to addr. It needs CAP_NET_RAW.
func ListenSGi(addr string, h DownlinkHandler) (*SGiConn, error) {
	raw, err := net.ListenPacket(ipInIP, addr)
	if err != nil {
		return nil, err
	}

	return &SGiConn{raw: raw, pc: ipv4.NewPacketConn(raw), handler: h}, nil
}

// WriteToAPN encapsulates b toward gw.
func (s *SGiConn) WriteToAPN(b []byte, gw netip.Addr) error {
	_, err := s.pc.WriteTo(b, nil, &net.IPAddr{IP: gw.AsSlice()})
	return err
}

func (s *SGiConn) Close() error {
	return s.pc.Close()
}

// Serve reads encapsulated packets until ctx is cancelled or the socket is
// closed.
func (s *SGiConn) Serve(ctx context.Context) {
	logger.GtpuLog.Infoln("listening for IP-in-IP on", s.raw.LocalAddr().String())

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	buf := make([]byte, maxDatagram)

	for {
		n, _, src, err := s.pc.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.GtpuLog.Infoln("IP-in-IP listener closed")
				return
			}

			logger.GtpuLog.Warnln("IP-in-IP read failed:", err)

			continue
		}

		dst, err := dataplane.ClassifyDownlink(buf[:n])
		if err != nil {
			logger.GtpuLog.Debugln("ignoring packet from", src, err)
			continue
		}

		s.handler.HandleDownlink(dst, dataplane.Buffer(buf[:n]))
	}
}
