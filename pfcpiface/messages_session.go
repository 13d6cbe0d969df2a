// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 Intel Corporation

package pfcpiface

import (
	"errors"
	"net"

	"github.com/wmnsk/go-pfcp/ie"
	"github.com/wmnsk/go-pfcp/message"

	"github.com/omec-project/pdngw/internal/pdn"
	"github.com/omec-project/pdngw/logger"
)

// sessionRules is what the rules of one session request ask of the gateway.
type sessionRules struct {
	apn        string
	peer       *tunnel
	rate       *rate
	bearers    []bearerRule
	removePDRs []uint16
}

func (pConn *PFCPConn) handleSessionEstablishmentRequest(msg message.Message) (message.Message, error) {
	upf := pConn.upf

	sereq, ok := msg.(*message.SessionEstablishmentRequest)
	if !ok {
		return nil, errUnmarshal(errMsgUnexpectedType)
	}

	var remoteSEID uint64

	reply := func(cause uint8, ies ...*ie.IE) *message.SessionEstablishmentResponse {
		ies = append([]*ie.IE{pConn.nodeID.localIE, ie.NewCause(cause)}, ies...)

		return message.NewSessionEstablishmentResponse(0, /* MO?? <-- what's this */
			0,                    /* FO <-- what's this? */
			remoteSEID,           /* seid */
			sereq.SequenceNumber, /* seq # */
			0,                    /* priority */
			ies...,
		)
	}

	errUnmarshalReply := func(err error, cause uint8) (message.Message, error) {
		return reply(cause), errUnmarshal(err)
	}

	errProcessReply := func(err error, cause uint8) (message.Message, error) {
		return reply(cause), errProcess(err)
	}

	if sereq.CPFSEID == nil {
		return errProcessReply(ErrMandatoryIEMissing("CP F-SEID"), ie.CauseMandatoryIEMissing)
	}

	/* Read fseid from the IE */
	fseid, err := sereq.CPFSEID.FSEID()
	if err != nil {
		return errUnmarshalReply(err, ie.CauseMandatoryIEIncorrect)
	}

	remoteSEID = fseid.SEID

	if !pConn.associated {
		logger.PfcpLog.Warnln("no association for establishment request from", pConn.RemoteAddr())
		return errProcessReply(errNoAssociation, ie.CauseNoEstablishedPFCPAssociation)
	}

	rules, err := parseSessionRules(sereq.CreatePDR, sereq.CreateFAR, nil, sereq.CreateQER, nil)
	if err != nil {
		return errUnmarshalReply(err, parseCause(err))
	}

	if sereq.APNDNN != nil {
		if rules.apn, err = sereq.APNDNN.APNDNN(); err != nil {
			return errUnmarshalReply(err, ie.CauseMandatoryIEIncorrect)
		}
	}

	if rules.apn == "" {
		return errProcessReply(ErrMandatoryIEMissing("APN/DNN"), ie.CauseMandatoryIEMissing)
	}

	res, err := upf.establishSession(establishRequest{
		controlID: pdn.ControlID(remoteSEID),
		apn:       rules.apn,
		peer:      rules.peer,
		rate:      rules.rate,
		bearers:   rules.bearers,
	})
	if err != nil {
		return errProcessReply(err, causeForError(err))
	}

	ies := []*ie.IE{ie.NewFSEID(remoteSEID, upf.accessIP, nil)}
	ies = append(ies, createdPDRs(res, upf.accessIP)...)

	return reply(ie.CauseRequestAccepted, ies...), nil
}

func (pConn *PFCPConn) handleSessionModificationRequest(msg message.Message) (message.Message, error) {
	upf := pConn.upf

	smreq, ok := msg.(*message.SessionModificationRequest)
	if !ok {
		return nil, errUnmarshal(errMsgUnexpectedType)
	}

	controlID := smreq.SEID()

	reply := func(cause uint8, ies ...*ie.IE) *message.SessionModificationResponse {
		ies = append([]*ie.IE{ie.NewCause(cause)}, ies...)

		return message.NewSessionModificationResponse(0, /* MO?? <-- what's this */
			0,                    /* FO <-- what's this? */
			controlID,            /* seid */
			smreq.SequenceNumber, /* seq # */
			0,                    /* priority */
			ies...,
		)
	}

	sendError := func(err error, cause uint8) (message.Message, error) {
		return reply(cause), errProcess(err)
	}

	if !pConn.associated {
		return sendError(errNoAssociation, ie.CauseNoEstablishedPFCPAssociation)
	}

	rules, err := parseSessionRules(smreq.CreatePDR, smreq.CreateFAR, smreq.UpdateFAR,
		smreq.CreateQER, smreq.UpdateQER)
	if err != nil {
		return reply(parseCause(err)), errUnmarshal(err)
	}

	for _, rPDR := range smreq.RemovePDR {
		pdrID, err := rPDR.PDRID()
		if err != nil {
			return reply(ie.CauseMandatoryIEIncorrect), errUnmarshal(err)
		}

		rules.removePDRs = append(rules.removePDRs, pdrID)
	}

	res, err := upf.modifySession(modifyRequest{
		controlID:  pdn.ControlID(controlID),
		peer:       rules.peer,
		rate:       rules.rate,
		bearers:    rules.bearers,
		removePDRs: rules.removePDRs,
	})
	if err != nil {
		return sendError(err, causeForError(err))
	}

	return reply(ie.CauseRequestAccepted, createdPDRs(res, upf.accessIP)...), nil
}

func (pConn *PFCPConn) handleSessionDeletionRequest(msg message.Message) (message.Message, error) {
	sdreq, ok := msg.(*message.SessionDeletionRequest)
	if !ok {
		return nil, errUnmarshal(errMsgUnexpectedType)
	}

	controlID := sdreq.SEID()

	reply := func(cause uint8) *message.SessionDeletionResponse {
		return message.NewSessionDeletionResponse(0, /* MO?? <-- what's this */
			0,                    /* FO <-- what's this? */
			controlID,            /* seid */
			sdreq.SequenceNumber, /* seq # */
			0,                    /* priority */
			ie.NewCause(cause),
		)
	}

	if !pConn.associated {
		return reply(ie.CauseNoEstablishedPFCPAssociation), errProcess(errNoAssociation)
	}

	if err := pConn.upf.deleteSession(pdn.ControlID(controlID)); err != nil {
		return reply(causeForError(err)), errProcess(ErrNotFoundWithParam("PFCP session", "SEID", controlID))
	}

	return reply(ie.CauseRequestAccepted), nil
}

// parseSessionRules folds the PDR, FAR and QER IEs of one request into the
// bearer level changes they describe. The downlink FAR with an outer header
// toward access names the peer tunnel. The first QER referenced by a PDR sets
// the session rate.
func parseSessionRules(createPDRs, createFARs, updateFARs, createQERs, updateQERs []*ie.IE) (sessionRules, error) {
	var rules sessionRules

	qers := make(map[uint32]qer)
	qerOrder := make([]uint32, 0, len(createQERs)+len(updateQERs))

	parseQERs := func(ies []*ie.IE, op operation) error {
		for _, x := range ies {
			var q qer
			if err := q.parseQER(x, op); err != nil {
				return err
			}

			qers[q.qerID] = q
			qerOrder = append(qerOrder, q.qerID)
		}

		return nil
	}

	if err := parseQERs(createQERs, create); err != nil {
		return rules, err
	}

	if err := parseQERs(updateQERs, update); err != nil {
		return rules, err
	}

	parseFARs := func(ies []*ie.IE, op operation) error {
		for _, x := range ies {
			var f far
			if err := f.parseFAR(x, op); err != nil {
				return err
			}

			if rules.peer == nil && f.towardsAccess() {
				rules.peer = &tunnel{gateway: f.tunnelIP4Dst, teid: f.tunnelTEID}
			}
		}

		return nil
	}

	if err := parseFARs(createFARs, create); err != nil {
		return rules, err
	}

	if err := parseFARs(updateFARs, update); err != nil {
		return rules, err
	}

	for _, x := range createPDRs {
		var p pdr
		if err := p.parsePDR(x); err != nil {
			return rules, err
		}

		r := referencedRate(p, qers)
		if rules.rate == nil {
			rules.rate = r
		}

		if !p.IsUplink() {
			continue
		}

		if rules.apn == "" {
			rules.apn = p.networkInstance
		}

		rules.bearers = append(rules.bearers, bearerRule{
			pdrID:  p.pdrID,
			teid:   p.tunnelTEID,
			choose: p.chooseTEID,
			rate:   r,
		})
	}

	if rules.rate == nil && len(qerOrder) > 0 {
		q := qers[qerOrder[0]]
		rules.rate = &rate{uplink: q.uplinkBytesPerSec(), downlink: q.downlinkBytesPerSec()}
	}

	return rules, nil
}

func referencedRate(p pdr, qers map[uint32]qer) *rate {
	for _, id := range p.qerIDList {
		if q, ok := qers[id]; ok {
			return &rate{uplink: q.uplinkBytesPerSec(), downlink: q.downlinkBytesPerSec()}
		}
	}

	return nil
}

func createdPDRs(res sessionResult, accessIP net.IP) []*ie.IE {
	out := make([]*ie.IE, 0, len(res.bearers))

	for _, b := range res.bearers {
		out = append(out, ie.NewCreatedPDR(
			ie.NewPDRID(b.pdrID),
			ie.NewFTEID(0x01, b.teid, accessIP, nil, 0),
			ie.NewUEIPAddress(0x02, res.ueAddr.String(), "", 0, 0),
		))
	}

	return out
}

// causeForError maps gateway errors to PFCP causes.
func causeForError(err error) uint8 {
	switch {
	case errors.Is(err, errMandatoryIEMiss):
		return ie.CauseMandatoryIEMissing
	case errors.Is(err, errNoAssociation):
		return ie.CauseNoEstablishedPFCPAssociation
	case errors.Is(err, pdn.ErrSessionNotFound):
		return ie.CauseSessionContextNotFound
	case errors.Is(err, pdn.ErrAddressesExhausted), errors.Is(err, errTEIDsExhausted):
		return ie.CauseNoResourcesAvailable
	case errors.Is(err, pdn.ErrDuplicateDataID), errors.Is(err, errDuplicatePDRID):
		return ie.CauseRuleCreationModificationFailure
	case errors.Is(err, errInvalidArgument), errors.Is(err, errUnsupported):
		return ie.CauseMandatoryIEIncorrect
	default:
		return ie.CauseRequestRejected
	}
}

// parseCause is causeForError for decoding failures, where an unclassified
// error means a malformed IE.
func parseCause(err error) uint8 {
	cause := causeForError(err)
	if cause == ie.CauseRequestRejected {
		return ie.CauseMandatoryIEIncorrect
	}

	return cause
}
