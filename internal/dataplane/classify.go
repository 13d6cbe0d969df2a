// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package dataplane

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/omec-project/pdngw/internal/pdn"
	"github.com/omec-project/pdngw/pkg/utils"
)

// GTP-U message types handled on the access side.
const (
	GTPMsgEchoRequest  uint8 = 1
	GTPMsgEchoResponse uint8 = 2
	GTPMsgErrorInd     uint8 = 26
	GTPMsgEndMarker    uint8 = 254
	GTPMsgGPDU         uint8 = 255
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	errNotIPv4        = errors.New("not an IPv4 packet")
)

// UplinkFrame is the decoded GTP-U header of an access-side datagram.
type UplinkFrame struct {
	TEID        pdn.DataID
	MessageType uint8
	// Sequence is valid only when HasSequence is set.
	Sequence    uint16
	HasSequence bool
	// Payload is the T-PDU (inner packet) for G-PDUs.
	Payload []byte
}

// ClassifyUplink decodes the GTPv1-U header of frame. Decoding stops at the
// tunnel header; the inner packet is returned untouched.
func ClassifyUplink(frame []byte) (UplinkFrame, error) {
	var gtp layers.GTPv1U

	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeGTPv1U, &gtp)
	parser.IgnoreUnsupported = true

	decoded := make([]gopacket.LayerType, 0, 1)
	if err := parser.DecodeLayers(frame, &decoded); err != nil {
		return UplinkFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if gtp.Version != 1 {
		return UplinkFrame{}, fmt.Errorf("%w: GTP version %d", ErrMalformedFrame, gtp.Version)
	}

	return UplinkFrame{
		TEID:        pdn.DataID(gtp.TEID),
		MessageType: gtp.MessageType,
		Sequence:    gtp.SequenceNumber,
		HasSequence: gtp.SequenceNumberFlag,
		Payload:     gtp.Payload,
	}, nil
}

// ClassifyDownlink returns the destination address of an IPv4 packet.
func ClassifyDownlink(frame []byte) (netip.Addr, error) {
	var ip4 layers.IPv4

	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeIPv4, &ip4)
	parser.IgnoreUnsupported = true

	decoded := make([]gopacket.LayerType, 0, 1)
	if err := parser.DecodeLayers(frame, &decoded); err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if ip4.Version != 4 {
		return netip.Addr{}, errNotIPv4
	}

	dst, ok := utils.AddrFromIP(ip4.DstIP)
	if !ok {
		return netip.Addr{}, errNotIPv4
	}

	return dst, nil
}
