// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package gtpu

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wmnsk/go-gtp/gtpv1/message"

	"github.com/omec-project/pdngw/internal/dataplane"
	"github.com/omec-project/pdngw/internal/pdn"
)

type uplink struct {
	id      pdn.DataID
	payload []byte
}

type chanHandler chan uplink

func (h chanHandler) HandleUplink(id pdn.DataID, pkt dataplane.Packet) {
	b := append([]byte(nil), pkt.(dataplane.Buffer)...)
	h <- uplink{id: id, payload: b}
}

type apnWrite struct {
	gw netip.Addr
	b  []byte
}

type fakeAPNWriter struct {
	writes []apnWrite
	err    error
}

func (w *fakeAPNWriter) WriteToAPN(b []byte, gw netip.Addr) error {
	w.writes = append(w.writes, apnWrite{gw: gw, b: b})
	return w.err
}

type sizeOnly int

func (s sizeOnly) Size() int { return int(s) }

func listenLoopback(t *testing.T) net.PacketConn {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	return pc
}

func readFrame(t *testing.T, pc net.PacketConn) dataplane.UplinkFrame {
	t.Helper()

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, maxDatagram)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)

	frame, err := dataplane.ClassifyUplink(buf[:n])
	require.NoError(t, err)

	return frame
}

func TestSender_ForwardToPeer(t *testing.T) {
	peer := listenLoopback(t)
	local := listenLoopback(t)

	s := NewSender(local, nil, WithPeerPort(peer.LocalAddr().(*net.UDPAddr).Port))
	s.ForwardToPeer(netip.MustParseAddr("127.0.0.1"), 0xbeef, dataplane.Buffer("downlink"))

	frame := readFrame(t, peer)
	assert.Equal(t, dataplane.GTPMsgGPDU, frame.MessageType)
	assert.Equal(t, pdn.DataID(0xbeef), frame.TEID)
	assert.Equal(t, []byte("downlink"), frame.Payload)
}

// countingConn counts datagrams written through it.
type countingConn struct {
	net.PacketConn
	writes int
}

func (c *countingConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	c.writes++
	return c.PacketConn.WriteTo(b, addr)
}

func TestSender_ForwardToPeerWithoutGateway(t *testing.T) {
	conn := &countingConn{PacketConn: listenLoopback(t)}
	s := NewSender(conn, nil)

	s.ForwardToPeer(netip.Addr{}, 0xbeef, dataplane.Buffer("downlink"))
	s.ForwardToPeer(netip.IPv4Unspecified(), 0xbeef, dataplane.Buffer("downlink"))
	assert.Zero(t, conn.writes)

	s.ForwardToPeer(netip.MustParseAddr("127.0.0.1"), 0xbeef, dataplane.Buffer("downlink"))
	assert.Equal(t, 1, conn.writes)
}

func TestSender_ForwardToAPN(t *testing.T) {
	w := &fakeAPNWriter{}
	s := NewSender(listenLoopback(t), w)
	gw := netip.MustParseAddr("198.51.100.1")

	s.ForwardToAPN(gw, dataplane.Buffer("uplink"))
	require.Len(t, w.writes, 1)
	assert.Equal(t, apnWrite{gw: gw, b: []byte("uplink")}, w.writes[0])

	// Write errors and payload-less packets are swallowed.
	w.err = errors.New("unreachable")
	assert.NotPanics(t, func() { s.ForwardToAPN(gw, dataplane.Buffer("x")) })
	assert.NotPanics(t, func() { s.ForwardToAPN(gw, sizeOnly(10)) })
	assert.Len(t, w.writes, 2)

	assert.NotPanics(t, func() { NewSender(listenLoopback(t), nil).ForwardToAPN(gw, dataplane.Buffer("x")) })

	s.ForwardToAPN(netip.Addr{}, dataplane.Buffer("x"))
	assert.Len(t, w.writes, 2)
}

func TestConn_Serve(t *testing.T) {
	h := make(chanHandler, 1)
	c, err := ListenGTPU("127.0.0.1:0", h)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Serve(ctx)
		close(done)
	}()

	client := listenLoopback(t)

	t.Run("G-PDU is handed to the uplink handler", func(t *testing.T) {
		out, err := message.NewTPDU(0x42, []byte("inner")).Marshal()
		require.NoError(t, err)
		_, err = client.WriteTo(out, c.LocalAddr())
		require.NoError(t, err)

		select {
		case got := <-h:
			assert.Equal(t, uplink{id: 0x42, payload: []byte("inner")}, got)
		case <-time.After(2 * time.Second):
			t.Fatal("uplink handler not called")
		}
	})

	t.Run("echo request is answered", func(t *testing.T) {
		buffer := gopacket.NewSerializeBuffer()
		req := &layers.GTPv1U{
			Version:            1,
			ProtocolType:       1,
			SequenceNumberFlag: true,
			MessageType:        dataplane.GTPMsgEchoRequest,
			SequenceNumber:     9,
		}
		require.NoError(t, req.SerializeTo(buffer, gopacket.SerializeOptions{FixLengths: true}))

		_, err := client.WriteTo(buffer.Bytes(), c.LocalAddr())
		require.NoError(t, err)

		resp := readFrame(t, client)
		assert.Equal(t, dataplane.GTPMsgEchoResponse, resp.MessageType)
		assert.True(t, resp.HasSequence)
		assert.Equal(t, uint16(9), resp.Sequence)
	})

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
