// SPDX-License-Identifier: Apache-2.0
// Copyright 2022-present Open Networking Foundation

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/omec-project/pdngw/logger"
	"github.com/omec-project/pdngw/pkg/pfcpsim"
)

func main() {
	app := cli.NewApp()
	app.Name = "pdngw-sim"
	app.Usage = "drive a PDN gateway over PFCP as a control plane would"
	app.Action = action
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "remote",
			Value: "127.0.0.1:8805",
			Usage: "gateway PFCP address",
		},
		cli.StringFlag{
			Name:  "local",
			Value: "127.0.0.1",
			Usage: "address advertised as our Node ID",
		},
		cli.StringFlag{
			Name:  "apn",
			Value: "internet",
			Usage: "APN to attach sessions to",
		},
		cli.StringFlag{
			Name:  "enb",
			Value: "198.18.0.1",
			Usage: "eNodeB address for downlink tunnels",
		},
		cli.IntFlag{
			Name:  "sessions",
			Value: 1,
			Usage: "number of sessions to establish",
		},
		cli.BoolFlag{
			Name:  "keep",
			Usage: "leave sessions and the association in place on exit",
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.AppLog.Errorf("pdngw-sim run error: %v", err)
		os.Exit(1)
	}
}

func action(c *cli.Context) error {
	count := c.Int("sessions")
	if count < 1 {
		return fmt.Errorf("sessions must be at least 1, got %d", count)
	}

	client := pfcpsim.NewPFCPClient(c.String("local"))

	if err := client.ConnectN4(c.String("remote")); err != nil {
		return err
	}
	defer client.DisconnectN4()

	if err := client.SetupAssociation(0); err != nil {
		return fmt.Errorf("association setup: %w", err)
	}

	logger.AppLog.Infoln("association established with", c.String("remote"))

	sessions := make([]*pfcpsim.Session, 0, count)

	for i := 0; i < count; i++ {
		// Downlink TEIDs only need to be unique per eNodeB.
		pdrs, fars, qers := pfcpsim.NewBearerRules(1, 0, "", uint32(i+1), c.String("enb"), 8000, 16000)

		s, err := client.EstablishSession(c.String("apn"), pdrs, fars, qers)
		if err != nil {
			return fmt.Errorf("session %d: %w", i+1, err)
		}

		for _, b := range s.Bearers {
			logger.AppLog.Infof("session %d: UE %v TEID %#x", s.GetOurSeid(), b.UEAddress, b.TEID)
		}

		sessions = append(sessions, s)
	}

	if c.Bool("keep") {
		return nil
	}

	for _, s := range sessions {
		if err := client.DeleteSession(s); err != nil {
			logger.AppLog.Warnf("delete session %d: %v", s.GetOurSeid(), err)
		}
	}

	return client.TeardownAssociation()
}
