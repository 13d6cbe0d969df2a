// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Open Networking Foundation

package pfcpsim

import (
	"net"

	"github.com/wmnsk/go-pfcp/ie"
)

type IEMethod uint8

const (
	Create IEMethod = iota
	Update
)

const (
	dummyPrecedence = 100

	ActionForward = 0x02
	ActionDrop    = 0x01
)

// NewUplinkPDR matches GTP-U traffic on the access side. A zero teid asks
// the gateway to choose one.
func NewUplinkPDR(id uint16, teid uint32, n3address string, farID uint32, qerID uint32) *ie.IE {
	fteid := ie.NewFTEID(0x01, teid, net.ParseIP(n3address), nil, 0)
	if teid == 0 {
		fteid = ie.NewFTEID(0x04, 0, nil, nil, 0)
	}

	return ie.NewCreatePDR(
		ie.NewPDRID(id),
		ie.NewPrecedence(dummyPrecedence),
		ie.NewPDI(
			ie.NewSourceInterface(ie.SrcInterfaceAccess),
			fteid,
		),
		ie.NewOuterHeaderRemoval(0, 0),
		ie.NewFARID(farID),
		ie.NewQERID(qerID),
	)
}

func NewDownlinkPDR(id uint16, farID uint32, qerID uint32) *ie.IE {
	return ie.NewCreatePDR(
		ie.NewPDRID(id),
		ie.NewPrecedence(dummyPrecedence),
		ie.NewPDI(
			ie.NewSourceInterface(ie.SrcInterfaceCore),
		),
		ie.NewFARID(farID),
		ie.NewQERID(qerID),
	)
}

func NewUplinkFAR(method IEMethod, id uint32, applyAction uint8) *ie.IE {
	createFunc := ie.NewCreateFAR
	if method == Update {
		createFunc = ie.NewUpdateFAR
	}

	return createFunc(
		ie.NewFARID(id),
		ie.NewApplyAction(applyAction),
		ie.NewForwardingParameters(
			ie.NewDestinationInterface(ie.DstInterfaceCore),
		),
	)
}

// NewDownlinkFAR points downlink traffic at the eNodeB tunnel teid@downlinkIP.
func NewDownlinkFAR(method IEMethod, id uint32, applyAction uint8, teid uint32, downlinkIP string) *ie.IE {
	if method == Update {
		return ie.NewUpdateFAR(
			ie.NewFARID(id),
			ie.NewApplyAction(applyAction),
			ie.NewUpdateForwardingParameters(
				ie.NewDestinationInterface(ie.DstInterfaceAccess),
				ie.NewOuterHeaderCreation(0x100, teid, downlinkIP, "", 0, 0, 0),
			),
		)
	}

	return ie.NewCreateFAR(
		ie.NewFARID(id),
		ie.NewApplyAction(applyAction),
		ie.NewForwardingParameters(
			ie.NewDestinationInterface(ie.DstInterfaceAccess),
			ie.NewOuterHeaderCreation(0x100, teid, downlinkIP, "", 0, 0, 0),
		),
	)
}

// NewQER carries the session MBR in kbit/s.
func NewQER(method IEMethod, id uint32, ulMbr uint64, dlMbr uint64) *ie.IE {
	createFunc := ie.NewCreateQER
	if method == Update {
		createFunc = ie.NewUpdateQER
	}

	return createFunc(
		ie.NewQERID(id),
		ie.NewGateStatus(0, 0),
		ie.NewMBR(ulMbr, dlMbr),
	)
}

// NewBearerRules returns the PDRs, FARs and QERs of a default bearer:
// one uplink/downlink PDR pair sharing a QER, with downlink traffic
// tunnelled to enbTEID@enbAddress.
func NewBearerRules(baseID uint16, teid uint32, n3address string, enbTEID uint32, enbAddress string,
	ulMbr, dlMbr uint64) (pdrs, fars, qers []*ie.IE) {
	ulFAR := uint32(baseID)
	dlFAR := uint32(baseID) + 1
	qerID := uint32(baseID)

	pdrs = []*ie.IE{
		NewUplinkPDR(baseID, teid, n3address, ulFAR, qerID),
		NewDownlinkPDR(baseID+1, dlFAR, qerID),
	}
	fars = []*ie.IE{
		NewUplinkFAR(Create, ulFAR, ActionForward),
		NewDownlinkFAR(Create, dlFAR, ActionForward, enbTEID, enbAddress),
	}
	qers = []*ie.IE{
		NewQER(Create, qerID, ulMbr, dlMbr),
	}

	return pdrs, fars, qers
}
