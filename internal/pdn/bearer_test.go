// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(handle SessionHandle) *Session {
	return newSession(handle, ControlID(handle), netip.MustParseAddr("10.0.0.1"), "internet",
		netip.MustParseAddr("198.51.100.1"), netip.MustParseAddr("192.0.2.1"), time.Time{})
}

func TestNewBearer_NilSessionPanics(t *testing.T) {
	assert.Panics(t, func() { NewBearer(1, nil, nil) })
}

func TestBearer_Fields(t *testing.T) {
	s := testSession(42)
	b := NewBearer(0x100, s, newFakeClock())

	assert.Equal(t, DataID(0x100), b.DataID())
	assert.Equal(t, SessionHandle(42), b.Session())
	assert.Equal(t, DataID(0), b.PeerDataID())

	b.SetPeerDataID(0xdead)
	assert.Equal(t, DataID(0xdead), b.PeerDataID())
}

func TestBearer_DirectionsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	b := NewBearer(1, testSession(1), clock)

	b.SetUplinkRate(1000)
	require.Equal(t, uint64(1000), b.UplinkRate())
	require.Equal(t, uint64(0), b.DownlinkRate())

	assert.True(t, b.AllowUplink(1000))
	assert.False(t, b.AllowUplink(1))

	// Downlink is unlimited until configured.
	assert.True(t, b.AllowDownlink(1<<20))

	b.SetDownlinkRate(10)
	assert.True(t, b.AllowDownlink(10))
	assert.False(t, b.AllowDownlink(1))

	clock.Advance(time.Second)
	assert.True(t, b.AllowUplink(1000))
	assert.True(t, b.AllowDownlink(10))
}
