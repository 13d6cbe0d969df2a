// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Open Networking Foundation

package pfcpsim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	ieLib "github.com/wmnsk/go-pfcp/ie"
	"github.com/wmnsk/go-pfcp/message"
)

const (
	PFCPStandardPort       = 8805
	DefaultHeartbeatPeriod = 5 * time.Second
	DefaultResponseTimeout = 2 * time.Second
)

var (
	ErrNoAssociation = errors.New("PFCP association is not active")
	ErrTimeout       = errors.New("timeout waiting for response")
)

// CauseError reports a response that did not carry Request Accepted.
type CauseError struct {
	MsgType string
	Cause   uint8
}

func (e *CauseError) Error() string {
	return fmt.Sprintf("%s returned cause %d", e.MsgType, e.Cause)
}

// PFCPClient plays the control plane towards a PDN gateway.
// High-level calls (SetupAssociation, EstablishSession) wrap a single
// request/response exchange each; SendMsg and PeekNextResponse give the
// caller full control over the sequence.
type PFCPClient struct {
	nextSEID uint64

	aliveLock           sync.Mutex
	isAssociationActive bool

	cancelHeartbeats context.CancelFunc

	heartbeatsChan chan *message.HeartbeatResponse
	recvChan       chan message.Message

	sequenceNumber uint32
	seqNumLock     sync.Mutex

	localAddr string
	conn      *net.UDPConn

	timeout time.Duration
}

func NewPFCPClient(localAddr string) *PFCPClient {
	return &PFCPClient{
		localAddr:      localAddr,
		heartbeatsChan: make(chan *message.HeartbeatResponse, 1),
		recvChan:       make(chan message.Message, 1),
		timeout:        DefaultResponseTimeout,
	}
}

// SetResponseTimeout bounds every wait for a reply.
func (c *PFCPClient) SetResponseTimeout(d time.Duration) {
	c.timeout = d
}

func (c *PFCPClient) getNextSequenceNumber() uint32 {
	c.seqNumLock.Lock()
	defer c.seqNumLock.Unlock()

	c.sequenceNumber++

	return c.sequenceNumber
}

func (c *PFCPClient) getNextSEID() uint64 {
	c.seqNumLock.Lock()
	defer c.seqNumLock.Unlock()

	c.nextSEID++

	return c.nextSEID
}

func (c *PFCPClient) setAssociationStatus(status bool) {
	c.aliveLock.Lock()
	defer c.aliveLock.Unlock()

	c.isAssociationActive = status
}

// SendMsg marshals msg and writes it to the connected gateway.
func (c *PFCPClient) SendMsg(msg message.Message) error {
	b := make([]byte, msg.MarshalLen())
	if err := msg.MarshalTo(b); err != nil {
		return err
	}

	_, err := c.conn.Write(b)

	return err
}

func (c *PFCPClient) receiveFromN4() {
	buf := make([]byte, 1500)

	for {
		n, _, err := c.conn.ReadFrom(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		}

		if err != nil {
			continue
		}

		msg, err := message.Parse(buf[:n])
		if err != nil {
			continue
		}

		if hbResp, ok := msg.(*message.HeartbeatResponse); ok {
			c.heartbeatsChan <- hbResp
		} else {
			c.recvChan <- msg
		}
	}
}

// ConnectN4 dials the gateway at remoteAddr. A bare host gets the
// standard PFCP port.
func (c *PFCPClient) ConnectN4(remoteAddr string) error {
	if _, _, err := net.SplitHostPort(remoteAddr); err != nil {
		remoteAddr = net.JoinHostPort(remoteAddr, fmt.Sprint(PFCPStandardPort))
	}

	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return err
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return err
	}

	c.conn = conn

	go c.receiveFromN4()

	return nil
}

func (c *PFCPClient) DisconnectN4() {
	if c.cancelHeartbeats != nil {
		c.cancelHeartbeats()
	}

	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *PFCPClient) PeekNextHeartbeatResponse() (*message.HeartbeatResponse, error) {
	select {
	case msg := <-c.heartbeatsChan:
		return msg, nil
	case <-time.After(c.timeout):
		return nil, ErrTimeout
	}
}

func (c *PFCPClient) PeekNextResponse() (message.Message, error) {
	select {
	case msg := <-c.recvChan:
		return msg, nil
	case <-time.After(c.timeout):
		return nil, ErrTimeout
	}
}

func (c *PFCPClient) SendAssociationSetupRequest(ie ...*ieLib.IE) error {
	assocReq := message.NewAssociationSetupRequest(
		c.getNextSequenceNumber(),
		ieLib.NewRecoveryTimeStamp(time.Now()),
		ieLib.NewNodeID(c.localAddr, "", ""),
	)

	assocReq.IEs = append(assocReq.IEs, ie...)

	return c.SendMsg(assocReq)
}

func (c *PFCPClient) SendHeartbeatRequest() error {
	hbReq := message.NewHeartbeatRequest(
		c.getNextSequenceNumber(),
		ieLib.NewRecoveryTimeStamp(time.Now()),
		nil,
	)

	return c.SendMsg(hbReq)
}

func (c *PFCPClient) SendAndRecvHeartbeat() error {
	if err := c.SendHeartbeatRequest(); err != nil {
		return err
	}

	if _, err := c.PeekNextHeartbeatResponse(); err != nil {
		c.setAssociationStatus(false)
		return err
	}

	return nil
}

// StartHeartbeats probes the gateway every period until ctx is done or a
// probe goes unanswered.
func (c *PFCPClient) StartHeartbeats(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.SendAndRecvHeartbeat(); err != nil {
				return
			}
		}
	}
}

// SetupAssociation performs an Association Setup exchange and, when
// heartbeatPeriod is non-zero, keeps the association probed in the
// background.
func (c *PFCPClient) SetupAssociation(heartbeatPeriod time.Duration) error {
	if err := c.SendAssociationSetupRequest(); err != nil {
		return err
	}

	resp, err := c.PeekNextResponse()
	if err != nil {
		return err
	}

	setupResp, ok := resp.(*message.AssociationSetupResponse)
	if !ok {
		return fmt.Errorf("invalid message received, expected association setup response")
	}

	if err := checkCause(setupResp.MessageTypeName(), setupResp.Cause); err != nil {
		return err
	}

	c.setAssociationStatus(true)

	if heartbeatPeriod > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancelHeartbeats = cancel

		go c.StartHeartbeats(ctx, heartbeatPeriod)
	}

	return nil
}

func (c *PFCPClient) IsAssociationAlive() bool {
	c.aliveLock.Lock()
	defer c.aliveLock.Unlock()

	return c.isAssociationActive
}

func (c *PFCPClient) TeardownAssociation() error {
	if !c.IsAssociationAlive() {
		return ErrNoAssociation
	}

	msg := message.NewAssociationReleaseRequest(c.getNextSequenceNumber(),
		ieLib.NewNodeID(c.localAddr, "", ""))

	if err := c.SendMsg(msg); err != nil {
		return err
	}

	resp, err := c.PeekNextResponse()
	if err != nil {
		return err
	}

	relResp, ok := resp.(*message.AssociationReleaseResponse)
	if !ok {
		return fmt.Errorf("received unexpected message: %v", resp.MessageTypeName())
	}

	if c.cancelHeartbeats != nil {
		c.cancelHeartbeats()
	}

	c.setAssociationStatus(false)

	return checkCause(relResp.MessageTypeName(), relResp.Cause)
}

// EstablishSession sends a Session Establishment Request carrying the given
// rules and returns the session the gateway created.
func (c *PFCPClient) EstablishSession(apn string, pdrs, fars, qers []*ieLib.IE) (*Session, error) {
	if !c.IsAssociationAlive() {
		return nil, ErrNoAssociation
	}

	seid := c.getNextSEID()

	estReq := message.NewSessionEstablishmentRequest(0, 0, 0,
		c.getNextSequenceNumber(),
		0,
		ieLib.NewNodeID(c.localAddr, "", ""),
		ieLib.NewFSEID(seid, net.ParseIP(c.localAddr), nil),
		ieLib.NewPDNType(ieLib.PDNTypeIPv4),
	)
	estReq.CreatePDR = append(estReq.CreatePDR, pdrs...)
	estReq.CreateFAR = append(estReq.CreateFAR, fars...)
	estReq.CreateQER = append(estReq.CreateQER, qers...)

	if apn != "" {
		estReq.APNDNN = ieLib.NewAPNDNN(apn)
	}

	if err := c.SendMsg(estReq); err != nil {
		return nil, err
	}

	resp, err := c.PeekNextResponse()
	if err != nil {
		return nil, err
	}

	estResp, ok := resp.(*message.SessionEstablishmentResponse)
	if !ok {
		return nil, fmt.Errorf("invalid message received, expected session establishment response")
	}

	if err := checkCause(estResp.MessageTypeName(), estResp.Cause); err != nil {
		return nil, err
	}

	return newSessionFromResponse(seid, estResp)
}

// ModifySession sends a Session Modification Request for s carrying ies
// and folds any newly created bearers into s.
func (c *PFCPClient) ModifySession(s *Session, ies ...*ieLib.IE) error {
	if !c.IsAssociationAlive() {
		return ErrNoAssociation
	}

	modReq := message.NewSessionModificationRequest(0, 0, s.peerSEID,
		c.getNextSequenceNumber(), 0, ies...)

	if err := c.SendMsg(modReq); err != nil {
		return err
	}

	resp, err := c.PeekNextResponse()
	if err != nil {
		return err
	}

	modResp, ok := resp.(*message.SessionModificationResponse)
	if !ok {
		return fmt.Errorf("invalid message received, expected session modification response")
	}

	if err := checkCause(modResp.MessageTypeName(), modResp.Cause); err != nil {
		return err
	}

	return s.addCreatedPDRs(modResp.CreatedPDR)
}

func (c *PFCPClient) DeleteSession(s *Session) error {
	if !c.IsAssociationAlive() {
		return ErrNoAssociation
	}

	delReq := message.NewSessionDeletionRequest(0, 0, s.peerSEID,
		c.getNextSequenceNumber(), 0,
		ieLib.NewFSEID(s.localSEID, net.ParseIP(c.localAddr), nil),
	)

	if err := c.SendMsg(delReq); err != nil {
		return err
	}

	resp, err := c.PeekNextResponse()
	if err != nil {
		return err
	}

	delResp, ok := resp.(*message.SessionDeletionResponse)
	if !ok {
		return fmt.Errorf("invalid message received, expected session deletion response")
	}

	return checkCause(delResp.MessageTypeName(), delResp.Cause)
}

func checkCause(msgType string, i *ieLib.IE) error {
	if i == nil {
		return &CauseError{MsgType: msgType}
	}

	cause, err := i.Cause()
	if err != nil {
		return err
	}

	if cause != ieLib.CauseRequestAccepted {
		return &CauseError{MsgType: msgType, Cause: cause}
	}

	return nil
}
