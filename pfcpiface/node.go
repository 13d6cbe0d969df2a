// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 Open Networking Foundation

package pfcpiface

import (
	"context"
	"errors"
	"net"

	reuse "github.com/libp2p/go-reuseport"

	"github.com/omec-project/pdngw/logger"
)

// PFCPNode represents a PFCP endpoint of the gateway.
type PFCPNode struct {
	// listening socket shared by all peers
	net.PacketConn
	// map of known peers keyed by remote address
	pconns map[string]*PFCPConn
	// upf
	upf *upf
}

// NewPFCPNode creates a new PFCPNode listening on lAddr.
func NewPFCPNode(lAddr string, upf *upf) (*PFCPNode, error) {
	conn, err := reuse.ListenPacket("udp", lAddr)
	if err != nil {
		return nil, err
	}

	return &PFCPNode{
		PacketConn: conn,
		pconns:     make(map[string]*PFCPConn),
		upf:        upf,
	}, nil
}

// Serve reads PFCP messages until ctx is done. Requests from one peer are
// handled in arrival order.
func (node *PFCPNode) Serve(ctx context.Context) {
	logger.PfcpLog.Infoln("listening for PFCP messages on", node.LocalAddr().String())

	go func() {
		<-ctx.Done()
		node.Shutdown()
	}()

	buf := make([]byte, PktBufSz)

	for {
		n, rAddr, err := node.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			logger.PfcpLog.Warnln("PFCP read failed:", err)

			continue
		}

		node.connFor(rAddr).HandlePFCPMsg(buf[:n])
	}
}

func (node *PFCPNode) connFor(rAddr net.Addr) *PFCPConn {
	rAddrStr := rAddr.String()

	p, ok := node.pconns[rAddrStr]
	if !ok {
		logger.PfcpLog.Infoln(node.LocalAddr(), "received new connection from", rAddrStr)

		p = NewPFCPConn(node.PacketConn, rAddr, node.upf)
		node.pconns[rAddrStr] = p
	}

	return p
}

// Shutdown closes the listening socket.
func (node *PFCPNode) Shutdown() {
	if err := node.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.PfcpLog.Errorln("error closing PFCP socket:", err)
	}

	logger.PfcpLog.Infoln("PFCPNode: Shutdown complete")
}
