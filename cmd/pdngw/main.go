// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 Intel Corporation
// Copyright 2022-present Open Networking Foundation

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap/zapcore"

	"github.com/omec-project/pdngw/logger"
	"github.com/omec-project/pdngw/pfcpiface"
)

func main() {
	app := cli.NewApp()
	app.Name = "pdngw"
	app.Usage = "-config gateway configuration file"
	app.Action = action
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Value: "upf.json",
			Usage: "path to gateway config",
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.AppLog.Errorf("pdngw run error: %v", err)
		os.Exit(1)
	}
}

func action(c *cli.Context) error {
	// Read and parse the startup file.
	conf, err := pfcpiface.LoadConfigFile(c.String("config"))
	if err != nil {
		logger.CfgLog.Errorf("error reading conf file: %+v", err)
		return fmt.Errorf("failed to initialize")
	}

	level, err := zapcore.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}

	logger.SetLogLevel(level)

	logger.CfgLog.Infof("%+v", conf)

	pfcpi, err := pfcpiface.NewPFCPIface(conf)
	if err != nil {
		return err
	}

	// blocking
	return pfcpi.Run()
}
