// SPDX-License-Identifier: Apache-2.0
// Copyright 2024 Canonical Ltd.

package pfcpiface

import (
	"errors"
	"math"
	"sync"

	mapset "github.com/deckarep/golang-set"
)

const (
	minValue = 1
	maxValue = math.MaxUint32
)

var errTEIDsExhausted = errors.New("no available value range to allocate id")

// FTEIDGenerator hands out local TEIDs for PDRs carrying the CH flag. TEIDs
// picked by the control plane are reserved here too so the two never collide.
type FTEIDGenerator struct {
	lock sync.Mutex
	next uint32
	used mapset.Set
}

func NewFTEIDGenerator() *FTEIDGenerator {
	return &FTEIDGenerator{
		next: minValue,
		used: mapset.NewThreadUnsafeSet(),
	}
}

// Allocate returns an unused id in range [minValue, maxValue].
func (g *FTEIDGenerator) Allocate() (uint32, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if uint64(g.used.Cardinality()) >= maxValue-minValue+1 {
		return 0, errTEIDsExhausted
	}

	for g.used.Contains(g.next) {
		g.advance()
	}

	id := g.next
	g.used.Add(id)
	g.advance()

	return id, nil
}

// Reserve marks id as in use. It reports false if id was already taken.
func (g *FTEIDGenerator) Reserve(id uint32) bool {
	if id < minValue {
		return false
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	return g.used.Add(id)
}

func (g *FTEIDGenerator) FreeID(id uint32) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.used.Remove(id)
}

func (g *FTEIDGenerator) IsAllocated(id uint32) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.used.Contains(id)
}

func (g *FTEIDGenerator) advance() {
	if g.next == maxValue {
		g.next = minValue
		return
	}

	g.next++
}
