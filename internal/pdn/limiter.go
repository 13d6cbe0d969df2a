// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import (
	"fmt"
	"math"

	"golang.org/x/time/rate"
)

// TokenBucket enforces an average byte rate for one traffic direction.
//
// The bucket depth equals the configured rate, i.e. one second worth of
// traffic. A ceiling of 0 disables limiting.
type TokenBucket struct {
	ceiling uint64
	lim     *rate.Limiter
	clock   Clock
}

// NewTokenBucket returns an unconfigured (unlimited) bucket.
func NewTokenBucket(clock Clock) *TokenBucket {
	if clock == nil {
		clock = SystemClock
	}

	return &TokenBucket{clock: clock}
}

// Configure sets the ceiling in bytes per second. The balance starts full and
// the refill timestamp is reset to now.
func (tb *TokenBucket) Configure(bytesPerSec uint64) {
	tb.ceiling = bytesPerSec
	if bytesPerSec == 0 {
		tb.lim = nil
		return
	}

	burst := math.MaxInt
	if bytesPerSec < uint64(math.MaxInt) {
		burst = int(bytesPerSec)
	}

	limit := rate.Limit(float64(bytesPerSec))
	tb.lim = rate.NewLimiter(limit, burst)
	// Pin the refill timestamp to now; the bucket is already saturated.
	tb.lim.SetLimitAt(tb.clock.Now(), limit)
}

// Admit reports whether a packet of size bytes may be forwarded now and, if
// so, charges the balance. A denial leaves the balance untouched.
func (tb *TokenBucket) Admit(size int) bool {
	if tb.lim == nil {
		return true
	}

	if size < 0 {
		size = 0
	}

	// AllowN alone admits any shortfall whose wait rounds down to 0ns, which
	// happens at multi-GB/s rates.
	now := tb.clock.Now()
	if tb.lim.TokensAt(now) < float64(size) {
		return false
	}

	return tb.lim.AllowN(now, size)
}

// Ceiling returns the configured rate in bytes per second; 0 means unlimited.
func (tb *TokenBucket) Ceiling() uint64 {
	return tb.ceiling
}

// Balance returns the number of bytes that could be admitted right now.
// Unlimited buckets report +Inf.
func (tb *TokenBucket) Balance() float64 {
	if tb.lim == nil {
		return math.Inf(1)
	}

	return tb.lim.TokensAt(tb.clock.Now())
}

func (tb *TokenBucket) String() string {
	if tb.lim == nil {
		return "unlimited"
	}

	return fmt.Sprintf("%d B/s (balance %.1f)", tb.ceiling, tb.Balance())
}
