// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 Intel Corporation

package pfcpiface

import (
	"fmt"

	"github.com/wmnsk/go-pfcp/ie"

	"github.com/omec-project/pdngw/logger"
)

const (
	access = 0x1
	core   = 0x2
)

type pdr struct {
	pdrID    uint16
	srcIface uint8

	// tunnelTEID is the local F-TEID; chooseTEID means the CP asked the
	// gateway to pick one.
	tunnelTEID uint32
	chooseTEID bool

	networkInstance string

	farID     uint32
	qerIDList []uint32
}

func (p pdr) String() string {
	return fmt.Sprintf("PDR(id=%v, srcIface=%v, tunnelTEID=%v, choose=%v, networkInstance=%q, farID=%v, qerIDs=%v)",
		p.pdrID, p.srcIface, p.tunnelTEID, p.chooseTEID, p.networkInstance, p.farID, p.qerIDList)
}

func (p pdr) IsUplink() bool {
	return p.srcIface == access
}

func (p pdr) IsDownlink() bool {
	return p.srcIface == core
}

func (p *pdr) parseSourceInterfaceIE(srcIfaceIE *ie.IE) error {
	srcIface, err := srcIfaceIE.SourceInterface()
	if err != nil {
		return err
	}

	switch srcIface {
	case ie.SrcInterfaceAccess:
		p.srcIface = access
	case ie.SrcInterfaceCore, ie.SrcInterfaceSGiLANN6LAN:
		p.srcIface = core
	default:
		return ErrUnsupported("Source Interface", srcIface)
	}

	return nil
}

func (p *pdr) parseFTEID(teidIE *ie.IE) error {
	fteid, err := teidIE.FTEID()
	if err != nil {
		return err
	}

	if fteid.HasCh() {
		p.chooseTEID = true
		return nil
	}

	p.tunnelTEID = fteid.TEID

	return nil
}

func (p *pdr) parsePDI(pdiIEs []*ie.IE) error {
	for _, pdiIE := range pdiIEs {
		switch pdiIE.Type {
		case ie.SourceInterface:
			if err := p.parseSourceInterfaceIE(pdiIE); err != nil {
				logger.PfcpLog.Errorf("failed to parse Source Interface IE: %v", err)
				return err
			}
		case ie.FTEID:
			if err := p.parseFTEID(pdiIE); err != nil {
				logger.PfcpLog.Errorf("failed to parse F-TEID IE: %v", err)
				return err
			}
		case ie.NetworkInstance:
			ni, err := pdiIE.NetworkInstance()
			if err != nil {
				logger.PfcpLog.Errorf("failed to parse Network Instance IE: %v", err)
				return err
			}

			p.networkInstance = ni
		}
	}

	if p.srcIface == 0 {
		return ErrMandatoryIEMissing("Source Interface")
	}

	return nil
}

// parsePDR reads a Create PDR IE. Uplink PDRs must carry an F-TEID.
func (p *pdr) parsePDR(ie1 *ie.IE) error {
	p.qerIDList = make([]uint32, 0)

	ies, err := ie1.CreatePDR()
	if err != nil {
		return err
	}

	var pdi []*ie.IE

	for _, x := range ies {
		switch x.Type {
		case ie.PDRID:
			if p.pdrID, err = x.PDRID(); err != nil {
				return err
			}
		case ie.PDI:
			if pdi, err = x.PDI(); err != nil {
				return err
			}
		case ie.FARID:
			if p.farID, err = x.FARID(); err != nil {
				return err
			}
		case ie.QERID:
			qerID, errRead := x.QERID()
			if errRead != nil {
				logger.PfcpLog.Errorln("qerID read failed")
				continue
			}

			p.qerIDList = append(p.qerIDList, qerID)
		}
	}

	if pdi == nil {
		return ErrMandatoryIEMissing("PDI")
	}

	if err := p.parsePDI(pdi); err != nil {
		return err
	}

	if p.IsUplink() && p.tunnelTEID == 0 && !p.chooseTEID {
		return ErrMandatoryIEMissing("F-TEID")
	}

	return nil
}
