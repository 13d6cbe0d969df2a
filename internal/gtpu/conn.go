// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package gtpu

import (
	"context"
	"errors"
	"net"

	reuse "github.com/libp2p/go-reuseport"
	"github.com/wmnsk/go-gtp/gtpv1/ie"
	"github.com/wmnsk/go-gtp/gtpv1/message"

	"github.com/omec-project/pdngw/internal/dataplane"
	"github.com/omec-project/pdngw/internal/pdn"
	"github.com/omec-project/pdngw/logger"
)

const (
	// Port is the GTP-U UDP port.
	Port = 2152
	// maxDatagram bounds a single read.
	maxDatagram = 65535
)

// UplinkHandler consumes T-PDUs received from the access side. pkt is only
// valid for the duration of the call.
type UplinkHandler interface {
	HandleUplink(id pdn.DataID, pkt dataplane.Packet)
}

// Conn is the access-side GTP-U endpoint.
type Conn struct {
	net.PacketConn
	handler UplinkHandler
}

// ListenGTPU binds a GTP-U socket on laddr ("host:port").
func ListenGTPU(laddr string, h UplinkHandler) (*Conn, error) {
	pc, err := reuse.ListenPacket("udp", laddr)
	if err != nil {
		return nil, err
	}

	return &Conn{PacketConn: pc, handler: h}, nil
}

// Serve reads datagrams until ctx is cancelled or the socket is closed.
func (c *Conn) Serve(ctx context.Context) {
	logger.GtpuLog.Infoln("listening for GTP-U on", c.LocalAddr().String())

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	buf := make([]byte, maxDatagram)

	for {
		n, rAddr, err := c.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.GtpuLog.Infoln("GTP-U listener closed")
				return
			}

			logger.GtpuLog.Warnln("GTP-U read failed:", err)

			continue
		}

		c.handle(buf[:n], rAddr)
	}
}

func (c *Conn) handle(b []byte, rAddr net.Addr) {
	frame, err := dataplane.ClassifyUplink(b)
	if err != nil {
		logger.GtpuLog.Debugln("ignoring datagram from", rAddr, err)
		return
	}

	switch frame.MessageType {
	case dataplane.GTPMsgGPDU:
		c.handler.HandleUplink(frame.TEID, dataplane.Buffer(frame.Payload))
	case dataplane.GTPMsgEchoRequest:
		c.replyEcho(frame.Sequence, rAddr)
	default:
		logger.GtpuLog.Debugf("ignoring GTP-U message type %d from %v", frame.MessageType, rAddr)
	}
}

func (c *Conn) replyEcho(seq uint16, rAddr net.Addr) {
	out, err := message.NewEchoResponse(seq, ie.NewRecovery(0)).Marshal()
	if err != nil {
		logger.GtpuLog.Errorln("failed to marshal echo response:", err)
		return
	}

	if _, err := c.WriteTo(out, rAddr); err != nil {
		logger.GtpuLog.Debugln("failed to send echo response to", rAddr, err)
	}
}
