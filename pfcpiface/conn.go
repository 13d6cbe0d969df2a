// SPDX-License-Identifier: Apache-2.0
// Copyright(c) 2020 Intel Corporation

package pfcpiface

import (
	"net"

	"github.com/wmnsk/go-pfcp/ie"

	"github.com/omec-project/pdngw/logger"
)

const (
	// PktBufSz : buffer size for incoming pkt
	PktBufSz = 1500
	PFCPPort = "8805"
)

type nodeID struct {
	localIE *ie.IE
	remote  string
}

// PFCPConn is the state kept for one PFCP peer. Replies go out through the
// node socket the request arrived on.
type PFCPConn struct {
	net.PacketConn
	rAddr net.Addr

	upf *upf

	nodeID     nodeID
	associated bool
}

// NewPFCPConn returns a connection for the peer at rAddr sharing the node socket.
func NewPFCPConn(pc net.PacketConn, rAddr net.Addr, upf *upf) *PFCPConn {
	return &PFCPConn{
		PacketConn: pc,
		rAddr:      rAddr,
		upf:        upf,
		nodeID:     nodeID{localIE: newNodeIDIE(upf.nodeID)},
	}
}

// RemoteAddr returns the peer address.
func (pConn *PFCPConn) RemoteAddr() net.Addr {
	return pConn.rAddr
}

// Write sends b to the peer.
func (pConn *PFCPConn) Write(b []byte) (int, error) {
	return pConn.WriteTo(b, pConn.rAddr)
}

func (pConn *PFCPConn) setAssociated(remoteNodeID string) {
	pConn.nodeID.remote = remoteNodeID
	pConn.associated = true

	logger.PfcpLog.Infoln("association established with", remoteNodeID, "at", pConn.rAddr)
}

func (pConn *PFCPConn) clearAssociation() {
	logger.PfcpLog.Infoln("association released with", pConn.nodeID.remote, "at", pConn.rAddr)

	pConn.nodeID.remote = ""
	pConn.associated = false
}

// newNodeIDIE encodes id as an IPv4 Node ID when it parses as one, else as an FQDN.
func newNodeIDIE(id string) *ie.IE {
	if ip := net.ParseIP(id); ip != nil && ip.To4() != nil {
		return ie.NewNodeID(ip.String(), "", "")
	}

	return ie.NewNodeID("", "", id)
}
