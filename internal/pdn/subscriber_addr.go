// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import (
	"net/netip"

	"github.com/omec-project/pdngw/pkg/utils"
)

// SubscriberAddressBlock is the private block subscriber addresses are drawn from.
const SubscriberAddressBlock = "10.0.0.0/8"

// addrAllocator hands out addresses of a block in strictly increasing order.
// Released addresses are never handed out again.
type addrAllocator struct {
	base uint32
	// next is the offset of the next address, starting at 1.
	next uint32
	// last is the highest usable offset; the broadcast address is excluded.
	last uint32
}

func newAddrAllocator(block string) (*addrAllocator, error) {
	prefix, err := netip.ParsePrefix(block)
	if err != nil {
		return nil, errWithParam(errInvalidAddressBlock, "block", block)
	}

	base, ok := utils.AddrToUint32(prefix.Masked().Addr())
	if !ok {
		return nil, errWithParam(errInvalidAddressBlock, "block", block)
	}

	hostBits := 32 - prefix.Bits()
	if hostBits < 2 {
		return nil, errWithParam(errInvalidAddressBlock, "block", block)
	}

	return &addrAllocator{
		base: base,
		next: 1,
		last: uint32(uint64(1)<<hostBits - 2),
	}, nil
}

// peek returns the address the next allocation would yield.
func (a *addrAllocator) peek() (netip.Addr, error) {
	if a.next > a.last {
		return netip.Addr{}, ErrAddressesExhausted
	}

	return utils.Uint32ToAddr(a.base + a.next), nil
}

// commit consumes the address returned by the latest peek.
func (a *addrAllocator) commit() {
	a.next++
}

func (a *addrAllocator) allocated() uint32 {
	return a.next - 1
}
