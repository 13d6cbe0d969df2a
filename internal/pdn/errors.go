// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package pdn

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAPN          = errors.New("unknown APN")
	ErrDuplicateControlID  = errors.New("control identifier already in use")
	ErrDuplicateDataID     = errors.New("data identifier already in use")
	ErrAddressesExhausted  = errors.New("subscriber address block exhausted")
	ErrSessionNotFound     = errors.New("session not found")
	errNotMember           = errors.New("not a member")
	errInvalidAddressBlock = errors.New("invalid address block")
)

func errWithParam(err error, paramName string, paramValue interface{}) error {
	return fmt.Errorf("%w: %s=%v", err, paramName, paramValue)
}
