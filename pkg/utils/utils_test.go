// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package utils

import (
	"math"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32ToAddr(t *testing.T) {
	tests := []struct {
		name string
		args uint32
		want netip.Addr
	}{
		{name: "zero", args: 0, want: netip.MustParseAddr("0.0.0.0")},
		{name: "plain", args: 0x0a000001, want: netip.MustParseAddr("10.0.0.1")},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				require.Equal(t, tt.want, Uint32ToAddr(tt.args))
			},
		)
	}
}

func TestAddrToUint32(t *testing.T) {
	tests := []struct {
		name   string
		addr   netip.Addr
		want   uint32
		wantOk bool
	}{
		{name: "zero", addr: netip.MustParseAddr("0.0.0.0"), want: 0, wantOk: true},
		{name: "plain", addr: netip.MustParseAddr("10.0.0.1"), want: 0x0a000001, wantOk: true},
		{name: "v6 mapped v4", addr: netip.MustParseAddr("::ffff:10.0.0.1"), want: 0x0a000001, wantOk: true},
		{name: "v6", addr: netip.MustParseAddr("2001::1"), want: 0, wantOk: false},
		{name: "invalid", addr: netip.Addr{}, want: 0, wantOk: false},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				got, ok := AddrToUint32(tt.addr)
				require.Equal(t, tt.wantOk, ok)
				require.Equal(t, tt.want, got)
			},
		)
	}
}

func TestAddrToUint32Transitive(t *testing.T) {
	for _, v := range []uint32{0, 1, math.MaxUint32, 0x0a000001} {
		got, ok := AddrToUint32(Uint32ToAddr(v))
		require.True(t, ok)
		require.Equal(t, v, got)
	}
}

func TestAddrFromIP(t *testing.T) {
	addr, ok := AddrFromIP(net.ParseIP("198.51.100.1"))
	require.True(t, ok)
	require.Equal(t, netip.MustParseAddr("198.51.100.1"), addr)

	_, ok = AddrFromIP(nil)
	require.False(t, ok)
}
