// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 Open Networking Foundation
package pfcpiface

import (
	"errors"
	"fmt"
)

var (
	errNotFound          = errors.New("not found")
	errInvalidArgument   = errors.New("invalid argument")
	errFailed            = errors.New("failed")
	errUnsupported       = errors.New("unsupported")
	errMsgUnexpectedType = errors.New("unable to parse message as type specified")
	errMandatoryIEMiss   = errors.New("mandatory IE missing")
	errNoAssociation     = errors.New("no PFCP association")
	errDuplicatePDRID    = errors.New("PDR ID already installed")
)

type HandlePFCPMsgError struct {
	Op  string
	Err error
}

func (e *HandlePFCPMsgError) Error() string {
	return "Error during " + e.Op + ": " + e.Err.Error()
}

func (e *HandlePFCPMsgError) Unwrap() error {
	return e.Err
}

func errUnmarshal(err error) *HandlePFCPMsgError {
	return &HandlePFCPMsgError{Op: "Unmarshal", Err: err}
}

func errProcess(err error) *HandlePFCPMsgError {
	return &HandlePFCPMsgError{Op: "Process", Err: err}
}

func ErrUnsupported(what string, value interface{}) error {
	return fmt.Errorf("%s=%v %w", what, value, errUnsupported)
}

func ErrNotFoundWithParam(what string, paramName string, paramValue interface{}) error {
	return fmt.Errorf("%s %w with %s=%v", what, errNotFound, paramName, paramValue)
}

func ErrMandatoryIEMissing(name string) error {
	return fmt.Errorf("%w: %s", errMandatoryIEMiss, name)
}

func ErrInvalidArgument(name string, value interface{}) error {
	return fmt.Errorf("%w '%s': %v", errInvalidArgument, name, value)
}

func ErrInvalidArgumentWithReason(name string, value interface{}, reason string) error {
	return fmt.Errorf("%w '%s'=%v (%s)", errInvalidArgument, name, value, reason)
}

func ErrOperationFailedWithReason(operation interface{}, reason string) error {
	return fmt.Errorf("%v %w due to: %s", operation, errFailed, reason)
}
