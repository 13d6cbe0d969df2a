// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import "time"

// Clock supplies the timestamps used to refill token buckets. Values returned
// by time.Now carry a monotonic reading, so elapsed time computed from them is
// unaffected by wall-clock adjustments.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock.
var SystemClock Clock = systemClock{}
