// SPDX-License-Identifier: Apache-2.0
// Copyright(c) 2020 Intel Corporation

package pfcpiface

import (
	"github.com/wmnsk/go-pfcp/message"

	"github.com/omec-project/pdngw/logger"
	"github.com/omec-project/pdngw/pfcpiface/metrics"
)

// HandlePFCPMsg handles different types of PFCP messages.
func (pConn *PFCPConn) HandlePFCPMsg(buf []byte) {
	var (
		reply message.Message
		err   error
	)

	msg, err := message.Parse(buf)
	if err != nil {
		logger.PfcpLog.Errorln("ignoring undecodable message:", buf, "error:", err)
		return
	}

	addr := pConn.RemoteAddr().String()
	msgType := msg.MessageTypeName()
	ex := metrics.StartExchange(msgType, metrics.Incoming)

	logger.PfcpLog.Debugln("received", msgType, "from", addr)

	switch msg.MessageType() {
	// Connection related messages
	case message.MsgTypeHeartbeatRequest:
		reply, err = pConn.handleHeartbeatRequest(msg)
	case message.MsgTypeHeartbeatResponse:
		reply, err = pConn.handleHeartbeatResponse(msg)
	case message.MsgTypeAssociationSetupRequest:
		reply, err = pConn.handleAssociationSetupRequest(msg)
	case message.MsgTypeAssociationReleaseRequest:
		reply, err = pConn.handleAssociationReleaseRequest(msg)

	// Session related messages
	case message.MsgTypeSessionEstablishmentRequest:
		reply, err = pConn.handleSessionEstablishmentRequest(msg)
	case message.MsgTypeSessionModificationRequest:
		reply, err = pConn.handleSessionModificationRequest(msg)
	case message.MsgTypeSessionDeletionRequest:
		reply, err = pConn.handleSessionDeletionRequest(msg)
	default:
		logger.PfcpLog.Errorln("message type:", msgType, "is currently not supported")
		return
	}

	nodeID := pConn.nodeID.remote

	ex.Done(nodeID, err)

	if err != nil {
		logger.PfcpLog.Errorln("error handling PFCP message type", msgType, "from", addr, err)
	} else {
		logger.PfcpLog.Debugln("successfully processed", msgType, "from", addr)
	}

	pConn.recordExchange(ex)

	if reply != nil {
		pConn.SendPFCPMsg(reply)
	}
}

func (pConn *PFCPConn) SendPFCPMsg(msg message.Message) {
	addr := pConn.RemoteAddr().String()
	nodeID := pConn.nodeID.remote
	replyType := msg.MessageTypeName()
	ex := metrics.StartExchange(replyType, metrics.Outgoing)

	defer pConn.recordExchange(ex)

	out := make([]byte, msg.MarshalLen())

	if err := msg.MarshalTo(out); err != nil {
		ex.Done(nodeID, err)
		logger.PfcpLog.Errorln("failed to marshal", replyType, "for", addr, err)

		return
	}

	if _, err := pConn.Write(out); err != nil {
		ex.Done(nodeID, err)
		logger.PfcpLog.Errorln("failed to transmit", replyType, "to", addr, err)

		return
	}

	ex.Done(nodeID, nil)
	logger.PfcpLog.Debugln("sent", replyType, "to", addr)
}

func (pConn *PFCPConn) recordExchange(ex *metrics.Exchange) {
	if pConn.upf.metrics != nil {
		pConn.upf.metrics.RecordExchange(ex)
	}
}
