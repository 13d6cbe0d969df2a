// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Open Networking Foundation

package pfcpsim

import (
	"fmt"
	"net/netip"

	"github.com/wmnsk/go-pfcp/ie"
	"github.com/wmnsk/go-pfcp/message"
)

// Bearer is one uplink tunnel the gateway allocated.
type Bearer struct {
	PDRID     uint16
	TEID      uint32
	UEAddress netip.Addr
}

// Session is the client-side view of an established PDN session.
type Session struct {
	localSEID uint64
	peerSEID  uint64

	Bearers []Bearer
}

func newSessionFromResponse(localSEID uint64, res *message.SessionEstablishmentResponse) (*Session, error) {
	s := &Session{localSEID: localSEID}

	if res.UPFSEID != nil {
		fseid, err := res.UPFSEID.FSEID()
		if err != nil {
			return nil, err
		}

		s.peerSEID = fseid.SEID
	}

	if err := s.addCreatedPDRs(res.CreatedPDR); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Session) addCreatedPDRs(ies []*ie.IE) error {
	for _, created := range ies {
		b, err := parseCreatedPDR(created)
		if err != nil {
			return err
		}

		s.Bearers = append(s.Bearers, b)
	}

	return nil
}

func parseCreatedPDR(created *ie.IE) (Bearer, error) {
	var b Bearer

	children, err := created.CreatedPDR()
	if err != nil {
		return b, err
	}

	for _, x := range children {
		switch x.Type {
		case ie.PDRID:
			if b.PDRID, err = x.PDRID(); err != nil {
				return b, err
			}
		case ie.FTEID:
			fteid, err := x.FTEID()
			if err != nil {
				return b, err
			}

			b.TEID = fteid.TEID
		case ie.UEIPAddress:
			ue, err := x.UEIPAddress()
			if err != nil {
				return b, err
			}

			addr, ok := netip.AddrFromSlice(ue.IPv4Address.To4())
			if !ok {
				return b, fmt.Errorf("invalid UE address %v", ue.IPv4Address)
			}

			b.UEAddress = addr
		}
	}

	return b, nil
}

func (s *Session) GetOurSeid() uint64 {
	return s.localSEID
}

func (s *Session) GetPeerSeid() uint64 {
	return s.peerSEID
}

// UEAddress is the address of the first bearer, if any.
func (s *Session) UEAddress() netip.Addr {
	if len(s.Bearers) == 0 {
		return netip.Addr{}
	}

	return s.Bearers[0].UEAddress
}
