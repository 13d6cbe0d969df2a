// SPDX-License-Identifier: Apache-2.0
// Copyright 2022-present Open Networking Foundation

package pfcpiface

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wmnsk/go-pfcp/ie"
)

type farTestCase struct {
	input       *ie.IE
	op          operation
	expected    *far
	description string
}

func downlinkFAR(id uint32, teid uint32, peer string) *ie.IE {
	return ie.NewCreateFAR(
		ie.NewFARID(id),
		ie.NewApplyAction(ActionForward),
		ie.NewForwardingParameters(
			ie.NewDestinationInterface(ie.DstInterfaceAccess),
			ie.NewOuterHeaderCreation(0x100, teid, peer, "", 0, 0, 0),
		),
	)
}

func uplinkFAR(id uint32) *ie.IE {
	return ie.NewCreateFAR(
		ie.NewFARID(id),
		ie.NewApplyAction(ActionForward),
		ie.NewForwardingParameters(
			ie.NewDestinationInterface(ie.DstInterfaceCore),
		),
	)
}

func updateDownlinkFAR(id uint32, teid uint32, peer string) *ie.IE {
	return ie.NewUpdateFAR(
		ie.NewFARID(id),
		ie.NewApplyAction(ActionForward),
		ie.NewUpdateForwardingParameters(
			ie.NewDestinationInterface(ie.DstInterfaceAccess),
			ie.NewOuterHeaderCreation(0x100, teid, peer, "", 0, 0, 0),
		),
	)
}

func TestParseFAR(t *testing.T) {
	for _, scenario := range []farTestCase{
		{
			input: downlinkFAR(2, 0x77, "192.0.2.1"),
			op:    create,
			expected: &far{
				farID:        2,
				applyAction:  ActionForward,
				dstIntf:      ie.DstInterfaceAccess,
				hasTunnel:    true,
				tunnelIP4Dst: netip.MustParseAddr("192.0.2.1"),
				tunnelTEID:   0x77,
			},
			description: "Valid downlink Create FAR",
		},
		{
			input: uplinkFAR(1),
			op:    create,
			expected: &far{
				farID:       1,
				applyAction: ActionForward,
				dstIntf:     ie.DstInterfaceCore,
			},
			description: "Valid uplink Create FAR",
		},
		{
			input: updateDownlinkFAR(2, 0x88, "192.0.2.9"),
			op:    update,
			expected: &far{
				farID:        2,
				applyAction:  ActionForward,
				dstIntf:      ie.DstInterfaceAccess,
				hasTunnel:    true,
				tunnelIP4Dst: netip.MustParseAddr("192.0.2.9"),
				tunnelTEID:   0x88,
			},
			description: "Valid Update FAR",
		},
	} {
		t.Run(scenario.description, func(t *testing.T) {
			mockFAR := &far{}

			err := mockFAR.parseFAR(scenario.input, scenario.op)
			require.NoError(t, err)

			assert.Equal(t, scenario.expected, mockFAR)
		})
	}
}

func TestParseFARShouldError(t *testing.T) {
	for _, scenario := range []farTestCase{
		{
			input: ie.NewCreateFAR(
				ie.NewFARID(1),
				ie.NewApplyAction(0),
			),
			op:          create,
			description: "Create FAR without action",
		},
		{
			input:       downlinkFAR(1, 1, "192.0.2.1"),
			op:          update,
			description: "Create FAR parsed as update",
		},
		{
			input:       downlinkFAR(1, 1, "192.0.2.1"),
			op:          operation(7),
			description: "unknown operation",
		},
	} {
		t.Run(scenario.description, func(t *testing.T) {
			mockFAR := &far{}

			err := mockFAR.parseFAR(scenario.input, scenario.op)
			require.Error(t, err)
		})
	}
}

func TestFAR_towardsAccess(t *testing.T) {
	f := far{hasTunnel: true, dstIntf: ie.DstInterfaceAccess}
	assert.True(t, f.towardsAccess())

	f.dstIntf = ie.DstInterfaceCore
	assert.False(t, f.towardsAccess())

	f = far{dstIntf: ie.DstInterfaceAccess}
	assert.False(t, f.towardsAccess())
}
