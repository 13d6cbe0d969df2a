// SPDX-License-Identifier: Apache-2.0
// Copyright(c) 2021 Intel Corporation

package pfcpiface

import (
	"github.com/wmnsk/go-pfcp/ie"
	"github.com/wmnsk/go-pfcp/message"

	"github.com/omec-project/pdngw/logger"
)

func (pConn *PFCPConn) handleHeartbeatRequest(msg message.Message) (message.Message, error) {
	hbreq, ok := msg.(*message.HeartbeatRequest)
	if !ok {
		return nil, errUnmarshal(errMsgUnexpectedType)
	}

	// Build response message
	hbres := message.NewHeartbeatResponse(hbreq.SequenceNumber,
		ie.NewRecoveryTimeStamp(pConn.upf.recoveryTime), /* ts */
	)

	return hbres, nil
}

func (pConn *PFCPConn) handleHeartbeatResponse(msg message.Message) (message.Message, error) {
	if _, ok := msg.(*message.HeartbeatResponse); !ok {
		return nil, errUnmarshal(errMsgUnexpectedType)
	}

	return nil, nil
}

func (pConn *PFCPConn) handleAssociationSetupRequest(msg message.Message) (message.Message, error) {
	addr := pConn.RemoteAddr().String()
	upf := pConn.upf

	asreq, ok := msg.(*message.AssociationSetupRequest)
	if !ok {
		return nil, errUnmarshal(errMsgUnexpectedType)
	}

	reply := func(cause uint8) *message.AssociationSetupResponse {
		return message.NewAssociationSetupResponse(asreq.SequenceNumber,
			ie.NewRecoveryTimeStamp(upf.recoveryTime),
			pConn.nodeID.localIE,
			ie.NewCause(cause),
			// 0x41 = Spare (0) | Assoc Src Inst (1) | Assoc Net Inst (0) | Tied Range (000) | IPV6 (0) | IPV4 (1)
			//      = 01000001
			ie.NewUserPlaneIPResourceInformation(0x41, 0, upf.accessIP.String(), "", "", ie.SrcInterfaceAccess),
		)
	}

	if asreq.NodeID == nil {
		return reply(ie.CauseMandatoryIEMissing), errProcess(ErrMandatoryIEMissing("Node ID"))
	}

	nodeID, err := asreq.NodeID.NodeID()
	if err != nil {
		return reply(ie.CauseMandatoryIEIncorrect), errUnmarshal(err)
	}

	if asreq.RecoveryTimeStamp != nil {
		ts, err := asreq.RecoveryTimeStamp.RecoveryTimeStamp()
		if err != nil {
			return reply(ie.CauseMandatoryIEIncorrect), errUnmarshal(err)
		}

		logger.PfcpLog.Infoln("association setup request from", addr, "with nodeID", nodeID,
			"and recovery timestamp", ts)
	}

	pConn.setAssociated(nodeID)

	return reply(ie.CauseRequestAccepted), nil
}

func (pConn *PFCPConn) handleAssociationReleaseRequest(msg message.Message) (message.Message, error) {
	arreq, ok := msg.(*message.AssociationReleaseRequest)
	if !ok {
		return nil, errUnmarshal(errMsgUnexpectedType)
	}

	if !pConn.associated {
		arres := message.NewAssociationReleaseResponse(arreq.SequenceNumber,
			pConn.nodeID.localIE,
			ie.NewCause(ie.CauseNoEstablishedPFCPAssociation),
		)

		return arres, errProcess(errNoAssociation)
	}

	n := pConn.upf.deleteAllSessions()
	logger.PfcpLog.Infoln("association release removed", n, "sessions")

	pConn.clearAssociation()

	arres := message.NewAssociationReleaseResponse(arreq.SequenceNumber,
		pConn.nodeID.localIE,
		ie.NewCause(ie.CauseRequestAccepted),
	)

	return arres, nil
}
