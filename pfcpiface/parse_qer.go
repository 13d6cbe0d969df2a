// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 Intel Corporation

package pfcpiface

import (
	"fmt"

	"github.com/wmnsk/go-pfcp/ie"

	"github.com/omec-project/pdngw/logger"
)

type qer struct {
	qerID uint32
	ulMbr uint64 // in kilobits/sec
	dlMbr uint64 // in kilobits/sec
}

func (q qer) String() string {
	return fmt.Sprintf("QER(id=%v, uplinkMBR=%v, downlinkMBR=%v)", q.qerID, q.ulMbr, q.dlMbr)
}

// kbpsToBytesPerSec converts an MBR to a token bucket ceiling.
func kbpsToBytesPerSec(kbps uint64) uint64 {
	return kbps * 1000 / 8
}

func (q qer) uplinkBytesPerSec() uint64 {
	return kbpsToBytesPerSec(q.ulMbr)
}

func (q qer) downlinkBytesPerSec() uint64 {
	return kbpsToBytesPerSec(q.dlMbr)
}

func (q *qer) parseQER(ie1 *ie.IE, op operation) error {
	var (
		ies []*ie.IE
		err error
	)

	switch op {
	case create:
		ies, err = ie1.CreateQER()
	case update:
		ies, err = ie1.UpdateQER()
	default:
		return ErrInvalidArgument("QER operation", op)
	}

	if err != nil {
		return err
	}

	found := false

	for _, x := range ies {
		switch x.Type {
		case ie.QERID:
			if q.qerID, err = x.QERID(); err != nil {
				return err
			}

			found = true
		case ie.MBR:
			if q.ulMbr, err = x.MBRUL(); err != nil {
				logger.PfcpLog.Warnln("could not read MBRUL:", err)
			}

			if q.dlMbr, err = x.MBRDL(); err != nil {
				logger.PfcpLog.Warnln("could not read MBRDL:", err)
			}
		}
	}

	if !found {
		return ErrMandatoryIEMissing("QER ID")
	}

	return nil
}
