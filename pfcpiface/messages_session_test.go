// SPDX-License-Identifier: Apache-2.0
// Copyright 2022-present Open Networking Foundation

package pfcpiface

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wmnsk/go-pfcp/ie"
	"github.com/wmnsk/go-pfcp/message"

	"github.com/omec-project/pdngw/internal/pdn"
)

func establishmentRequest(seid uint64, ies ...*ie.IE) *message.SessionEstablishmentRequest {
	base := []*ie.IE{
		ie.NewNodeID("198.18.0.1", "", ""),
		ie.NewFSEID(seid, net.ParseIP("198.18.0.1"), nil),
	}

	return message.NewSessionEstablishmentRequest(0, 0, 0, 1, 0, append(base, ies...)...)
}

// defaultSessionIEs describe one bearer with TEID teid, a downlink tunnel to
// 192.0.2.1 and a 8/16 Mbit/s QER.
func defaultSessionIEs(teid uint32) []*ie.IE {
	return []*ie.IE{
		uplinkPDR(1, teid, 1),
		downlinkPDR(2, 1),
		uplinkFAR(1),
		downlinkFAR(2, 0x77, "192.0.2.1"),
		ie.NewCreateQER(ie.NewQERID(1), ie.NewMBR(8000, 16000)),
		ie.NewAPNDNN("internet"),
	}
}

func establish(t *testing.T, pConn *PFCPConn, seid uint64) *message.SessionEstablishmentResponse {
	t.Helper()

	reply, err := pConn.handleSessionEstablishmentRequest(
		roundTrip(t, establishmentRequest(seid, defaultSessionIEs(uint32(seid)<<8)...)))
	require.NoError(t, err)

	res := reply.(*message.SessionEstablishmentResponse)
	require.Equal(t, ie.CauseRequestAccepted, causeOf(t, res.Cause))

	return res
}

type createdPDR struct {
	pdrID  uint16
	teid   uint32
	ueAddr string
}

func parseCreatedPDR(t *testing.T, i *ie.IE) createdPDR {
	t.Helper()

	ies, err := i.CreatedPDR()
	require.NoError(t, err)

	var c createdPDR

	for _, x := range ies {
		switch x.Type {
		case ie.PDRID:
			c.pdrID, err = x.PDRID()
			require.NoError(t, err)
		case ie.FTEID:
			fteid, err := x.FTEID()
			require.NoError(t, err)
			c.teid = fteid.TEID
		case ie.UEIPAddress:
			ue, err := x.UEIPAddress()
			require.NoError(t, err)
			c.ueAddr = ue.IPv4Address.String()
		}
	}

	return c
}

func TestHandleSessionEstablishmentRequest(t *testing.T) {
	pConn := newTestConn(t)
	associate(t, pConn)

	res := establish(t, pConn, 0x42)

	assert.Equal(t, uint64(0x42), res.SEID())

	fseid, err := res.UPFSEID.FSEID()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x42), fseid.SEID)
	assert.Equal(t, "198.18.0.10", fseid.IPv4Address.String())

	require.Len(t, res.CreatedPDR, 1)
	assert.Equal(t, createdPDR{pdrID: 1, teid: 0x4200, ueAddr: "10.0.0.1"}, parseCreatedPDR(t, res.CreatedPDR[0]))

	reg := pConn.upf.reg

	s, ok := reg.FindSessionByControlID(0x42)
	require.True(t, ok)
	assert.Equal(t, "internet", s.APN())
	assert.Equal(t, netip.MustParseAddr("198.19.0.1"), s.APNGateway())
	assert.Equal(t, netip.MustParseAddr("192.0.2.1"), s.PeerGateway())

	b, ok := reg.DefaultBearerOf(s)
	require.True(t, ok)
	assert.Equal(t, pdn.DataID(0x4200), b.DataID())
	assert.Equal(t, pdn.DataID(0x77), b.PeerDataID())
	assert.Equal(t, uint64(1000000), b.UplinkRate())
	assert.Equal(t, uint64(2000000), b.DownlinkRate())
}

func TestHandleSessionEstablishmentRequest_TEIDAndRateDefaults(t *testing.T) {
	pConn := newTestConn(t)
	associate(t, pConn)

	req := establishmentRequest(9,
		ie.NewCreatePDR(
			ie.NewPDRID(1),
			ie.NewPDI(
				ie.NewSourceInterface(ie.SrcInterfaceAccess),
				ie.NewFTEID(0x04, 0, nil, nil, 0),
				ie.NewNetworkInstance("internet"),
			),
		),
		downlinkFAR(2, 0x99, "192.0.2.3"),
	)

	reply, err := pConn.handleSessionEstablishmentRequest(roundTrip(t, req))
	require.NoError(t, err)

	res := reply.(*message.SessionEstablishmentResponse)
	require.Equal(t, ie.CauseRequestAccepted, causeOf(t, res.Cause))
	require.Len(t, res.CreatedPDR, 1)

	created := parseCreatedPDR(t, res.CreatedPDR[0])
	assert.NotZero(t, created.teid)
	assert.True(t, pConn.upf.teids.IsAllocated(created.teid))

	b, ok := pConn.upf.reg.FindBearerByDataID(pdn.DataID(created.teid))
	require.True(t, ok)

	// default_rate is in bits per second.
	assert.Equal(t, uint64(1000), b.UplinkRate())
	assert.Equal(t, uint64(2000), b.DownlinkRate())
}

func TestHandleSessionEstablishmentRequestShouldFail(t *testing.T) {
	for _, scenario := range []struct {
		request     *message.SessionEstablishmentRequest
		cause       uint8
		description string
	}{
		{
			request: message.NewSessionEstablishmentRequest(0, 0, 0, 1, 0,
				append([]*ie.IE{ie.NewNodeID("198.18.0.1", "", "")}, defaultSessionIEs(0x10)...)...),
			cause:       ie.CauseMandatoryIEMissing,
			description: "CP F-SEID missing",
		},
		{
			request: establishmentRequest(1,
				uplinkPDR(1, 0x10, 1),
				downlinkFAR(2, 0x77, "192.0.2.1"),
				ie.NewAPNDNN("enterprise"),
			),
			cause:       ie.CauseRequestRejected,
			description: "unknown APN",
		},
		{
			request: establishmentRequest(1, chooseUplinkPDR(1)),
			cause:   ie.CauseMandatoryIEMissing,
			description: "no APN",
		},
		{
			request: establishmentRequest(1,
				ie.NewCreatePDR(ie.NewPDRID(1), ie.NewPDI(ie.NewSourceInterface(ie.SrcInterfaceAccess))),
				ie.NewAPNDNN("internet"),
			),
			cause:       ie.CauseMandatoryIEMissing,
			description: "uplink PDR without F-TEID",
		},
		{
			request: establishmentRequest(1,
				uplinkPDR(1, 0x10),
				ie.NewCreateFAR(ie.NewFARID(1), ie.NewApplyAction(0)),
				ie.NewAPNDNN("internet"),
			),
			cause:       ie.CauseMandatoryIEIncorrect,
			description: "FAR without action",
		},
		{
			request: establishmentRequest(1,
				uplinkPDR(1, 0x10),
				uplinkPDR(3, 0x10),
				ie.NewAPNDNN("internet"),
			),
			cause:       ie.CauseRuleCreationModificationFailure,
			description: "two PDRs with one F-TEID",
		},
	} {
		t.Run(scenario.description, func(t *testing.T) {
			pConn := newTestConn(t)
			associate(t, pConn)

			reply, err := pConn.handleSessionEstablishmentRequest(roundTrip(t, scenario.request))
			require.Error(t, err)

			res := reply.(*message.SessionEstablishmentResponse)
			assert.Equal(t, scenario.cause, causeOf(t, res.Cause))
			assert.Empty(t, res.CreatedPDR)

			assert.Zero(t, pConn.upf.reg.NumSessions())
			assert.Zero(t, pConn.upf.reg.NumBearers())
			assert.False(t, pConn.upf.teids.IsAllocated(0x10))
		})
	}
}

func TestHandleSessionEstablishmentRequest_NoAssociation(t *testing.T) {
	pConn := newTestConn(t)

	reply, err := pConn.handleSessionEstablishmentRequest(
		roundTrip(t, establishmentRequest(1, defaultSessionIEs(0x10)...)))
	require.ErrorIs(t, err, errNoAssociation)

	res := reply.(*message.SessionEstablishmentResponse)
	assert.Equal(t, ie.CauseNoEstablishedPFCPAssociation, causeOf(t, res.Cause))
	assert.Zero(t, pConn.upf.reg.NumSessions())
}

func TestHandleSessionEstablishmentRequest_DuplicateSEID(t *testing.T) {
	pConn := newTestConn(t)
	associate(t, pConn)

	establish(t, pConn, 0x42)

	reply, err := pConn.handleSessionEstablishmentRequest(
		roundTrip(t, establishmentRequest(0x42, defaultSessionIEs(0x50)...)))
	require.ErrorIs(t, err, pdn.ErrDuplicateControlID)
	assert.Equal(t, ie.CauseRequestRejected, causeOf(t, reply.(*message.SessionEstablishmentResponse).Cause))

	assert.Equal(t, 1, pConn.upf.reg.NumSessions())
	assert.Equal(t, uint32(1), pConn.upf.reg.AllocatedAddresses())

	_, ok := pConn.upf.reg.FindBearerByDataID(0x4200)
	assert.True(t, ok)
}

func modificationRequest(seid uint64, ies ...*ie.IE) *message.SessionModificationRequest {
	return message.NewSessionModificationRequest(0, 0, seid, 2, 0, ies...)
}

func TestHandleSessionModificationRequest(t *testing.T) {
	pConn := newTestConn(t)
	associate(t, pConn)
	establish(t, pConn, 0x42)

	reg := pConn.upf.reg

	t.Run("update FAR moves the peer tunnel", func(t *testing.T) {
		reply, err := pConn.handleSessionModificationRequest(roundTrip(t,
			modificationRequest(0x42, updateDownlinkFAR(2, 0x88, "192.0.2.9"))))
		require.NoError(t, err)

		res := reply.(*message.SessionModificationResponse)
		assert.Equal(t, uint64(0x42), res.SEID())
		assert.Equal(t, ie.CauseRequestAccepted, causeOf(t, res.Cause))

		s, _ := reg.FindSessionByControlID(0x42)
		assert.Equal(t, netip.MustParseAddr("192.0.2.9"), s.PeerGateway())

		b, _ := reg.FindBearerByDataID(0x4200)
		assert.Equal(t, pdn.DataID(0x88), b.PeerDataID())
	})

	t.Run("update QER changes the rate of every bearer", func(t *testing.T) {
		_, err := pConn.handleSessionModificationRequest(roundTrip(t,
			modificationRequest(0x42, ie.NewUpdateQER(ie.NewQERID(1), ie.NewMBR(80, 160)))))
		require.NoError(t, err)

		b, _ := reg.FindBearerByDataID(0x4200)
		assert.Equal(t, uint64(10000), b.UplinkRate())
		assert.Equal(t, uint64(20000), b.DownlinkRate())
	})

	t.Run("create PDR adds a bearer with the current peer", func(t *testing.T) {
		_, err := pConn.handleSessionModificationRequest(roundTrip(t,
			modificationRequest(0x42, uplinkPDR(3, 0x4201))))
		require.NoError(t, err)

		b, ok := reg.FindBearerByDataID(0x4201)
		require.True(t, ok)
		assert.Equal(t, pdn.DataID(0x88), b.PeerDataID())
		assert.Equal(t, uint64(10000), b.UplinkRate())

		s, _ := reg.FindSessionByControlID(0x42)
		assert.Equal(t, []pdn.DataID{0x4200, 0x4201}, s.Bearers())
	})

	t.Run("remove PDR deletes the bearer", func(t *testing.T) {
		_, err := pConn.handleSessionModificationRequest(roundTrip(t,
			modificationRequest(0x42, ie.NewRemovePDR(ie.NewPDRID(1)))))
		require.NoError(t, err)

		_, ok := reg.FindBearerByDataID(0x4200)
		assert.False(t, ok)
		assert.False(t, pConn.upf.teids.IsAllocated(0x4200))

		s, _ := reg.FindSessionByControlID(0x42)
		_, hasDefault := s.DefaultBearer()
		assert.False(t, hasDefault)
		assert.Equal(t, []pdn.DataID{0x4201}, s.Bearers())
	})

	t.Run("unknown session", func(t *testing.T) {
		reply, err := pConn.handleSessionModificationRequest(roundTrip(t,
			modificationRequest(0x99, updateDownlinkFAR(2, 0x88, "192.0.2.9"))))
		require.ErrorIs(t, err, pdn.ErrSessionNotFound)
		assert.Equal(t, ie.CauseSessionContextNotFound,
			causeOf(t, reply.(*message.SessionModificationResponse).Cause))
	})
}

func TestHandleSessionDeletionRequest(t *testing.T) {
	pConn := newTestConn(t)
	associate(t, pConn)
	establish(t, pConn, 0x42)

	req := message.NewSessionDeletionRequest(0, 0, 0x42, 3, 0)

	reply, err := pConn.handleSessionDeletionRequest(roundTrip(t, req))
	require.NoError(t, err)

	res := reply.(*message.SessionDeletionResponse)
	assert.Equal(t, uint64(0x42), res.SEID())
	assert.Equal(t, ie.CauseRequestAccepted, causeOf(t, res.Cause))

	assert.Zero(t, pConn.upf.reg.NumSessions())
	assert.Zero(t, pConn.upf.reg.NumBearers())
	assert.False(t, pConn.upf.teids.IsAllocated(0x4200))

	_, ok := pConn.upf.reg.FindSessionBySubscriberAddr(netip.MustParseAddr("10.0.0.1"))
	assert.False(t, ok)

	reply, err = pConn.handleSessionDeletionRequest(roundTrip(t, req))
	require.Error(t, err)
	assert.Equal(t, ie.CauseSessionContextNotFound, causeOf(t, reply.(*message.SessionDeletionResponse).Cause))
}

func TestCauseForError(t *testing.T) {
	for _, scenario := range []struct {
		err         error
		cause       uint8
		description string
	}{
		{ErrMandatoryIEMissing("PDI"), ie.CauseMandatoryIEMissing, "missing IE"},
		{errNoAssociation, ie.CauseNoEstablishedPFCPAssociation, "no association"},
		{pdn.ErrSessionNotFound, ie.CauseSessionContextNotFound, "unknown session"},
		{pdn.ErrAddressesExhausted, ie.CauseNoResourcesAvailable, "addresses exhausted"},
		{errTEIDsExhausted, ie.CauseNoResourcesAvailable, "TEIDs exhausted"},
		{pdn.ErrDuplicateDataID, ie.CauseRuleCreationModificationFailure, "duplicate TEID"},
		{errDuplicatePDRID, ie.CauseRuleCreationModificationFailure, "duplicate PDR ID"},
		{ErrInvalidArgument("FAR Action", 0), ie.CauseMandatoryIEIncorrect, "invalid IE"},
		{pdn.ErrUnknownAPN, ie.CauseRequestRejected, "unknown APN"},
		{pdn.ErrDuplicateControlID, ie.CauseRequestRejected, "duplicate SEID"},
	} {
		t.Run(scenario.description, func(t *testing.T) {
			assert.Equal(t, scenario.cause, causeForError(scenario.err))
		})
	}
}
