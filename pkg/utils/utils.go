// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package utils

import (
	"encoding/binary"
	"net"
	"net/netip"
)

func Uint32ToAddr(nn uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], nn)

	return netip.AddrFrom4(b)
}

// AddrToUint32 returns the IPv4 address as a big-endian integer. IPv4-mapped
// IPv6 addresses are unmapped first; other IPv6 addresses yield 0, false.
func AddrToUint32(addr netip.Addr) (uint32, bool) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, false
	}

	b := addr.As4()

	return binary.BigEndian.Uint32(b[:]), true
}

// AddrFromIP converts a net.IP as produced by the wire codecs into a
// netip.Addr, unmapping IPv4-in-IPv6 forms.
func AddrFromIP(ip net.IP) (netip.Addr, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}
