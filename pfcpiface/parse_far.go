// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 Intel Corporation

package pfcpiface

import (
	"fmt"
	"net/netip"

	"github.com/wmnsk/go-pfcp/ie"

	"github.com/omec-project/pdngw/logger"
	"github.com/omec-project/pdngw/pkg/utils"
)

type operation int

const (
	ActionForward = 0x2
	ActionDrop    = 0x1
	ActionBuffer  = 0x4
	ActionNotify  = 0x8
)

const (
	create operation = iota
	update
)

type far struct {
	farID       uint32
	applyAction uint8
	dstIntf     uint8

	// Outer header creation toward the peer gateway.
	hasTunnel    bool
	tunnelIP4Dst netip.Addr
	tunnelTEID   uint32
}

func (f far) String() string {
	return fmt.Sprintf("FAR(id=%v, dstInterface=%v, tunnel=%v, tunnelIPv4Dst=%v, tunnelTEID=%v, "+
		"drops=%v, forwards=%v)", f.farID, f.dstIntf, f.hasTunnel, f.tunnelIP4Dst, f.tunnelTEID,
		f.Drops(), f.Forwards())
}

func (f *far) Drops() bool {
	return f.applyAction&ActionDrop != 0
}

func (f *far) Forwards() bool {
	return f.applyAction&ActionForward != 0
}

// towardsAccess reports whether the FAR tunnels traffic to the peer gateway.
func (f *far) towardsAccess() bool {
	return f.hasTunnel && f.dstIntf == ie.DstInterfaceAccess
}

func (f *far) parseFAR(farIE *ie.IE, op operation) error {
	var (
		ies []*ie.IE
		err error
	)

	switch op {
	case create:
		ies, err = farIE.CreateFAR()
	case update:
		ies, err = farIE.UpdateFAR()
	default:
		return ErrInvalidArgument("FAR operation", op)
	}

	if err != nil {
		return err
	}

	var fwdIEs []*ie.IE

	for _, x := range ies {
		switch x.Type {
		case ie.FARID:
			if f.farID, err = x.FARID(); err != nil {
				return err
			}
		case ie.ApplyAction:
			if f.applyAction, err = x.ApplyAction(); err != nil {
				return err
			}
		case ie.ForwardingParameters:
			if fwdIEs, err = x.ForwardingParameters(); err != nil {
				return err
			}
		case ie.UpdateForwardingParameters:
			if fwdIEs, err = x.UpdateForwardingParameters(); err != nil {
				return err
			}
		}
	}

	if op == create && f.applyAction == 0 {
		return ErrInvalidArgument("FAR Action", f.applyAction)
	}

	for _, fwdIE := range fwdIEs {
		switch fwdIE.Type {
		case ie.OuterHeaderCreation:
			ohcFields, err := fwdIE.OuterHeaderCreation()
			if err != nil {
				logger.PfcpLog.Warnln("unable to parse OuterHeaderCreationFields:", err)
				continue
			}

			dst, ok := utils.AddrFromIP(ohcFields.IPv4Address)
			if !ok || !dst.Is4() {
				return ErrInvalidArgument("Outer Header Creation IPv4", ohcFields.IPv4Address)
			}

			f.hasTunnel = true
			f.tunnelTEID = ohcFields.TEID
			f.tunnelIP4Dst = dst
		case ie.DestinationInterface:
			if f.dstIntf, err = fwdIE.DestinationInterface(); err != nil {
				logger.PfcpLog.Warnln("unable to parse DestinationInterface field:", err)
				continue
			}
		}
	}

	return nil
}
