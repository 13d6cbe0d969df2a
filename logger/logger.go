// SPDX-License-Identifier: Apache-2.0
// Copyright 2024-present Open Networking Foundation

package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log         *zap.Logger
	AppLog      *zap.SugaredLogger
	InitLog     *zap.SugaredLogger
	CfgLog      *zap.SugaredLogger
	CtxLog      *zap.SugaredLogger
	PfcpLog     *zap.SugaredLogger
	FwdLog      *zap.SugaredLogger
	GtpuLog     *zap.SugaredLogger
	atomicLevel zap.AtomicLevel
)

func init() {
	atomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	config := zap.Config{
		Level:            atomicLevel,
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	encCfg := &config.EncoderConfig
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.LevelKey = "level"
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = "caller"
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encCfg.MessageKey = "message"
	encCfg.StacktraceKey = ""

	var err error
	log, err = config.Build()
	if err != nil {
		panic(err)
	}

	AppLog = log.Sugar().With("component", "PDNGW", "category", "App")
	InitLog = log.Sugar().With("component", "PDNGW", "category", "Init")
	CfgLog = log.Sugar().With("component", "PDNGW", "category", "CFG")
	CtxLog = log.Sugar().With("component", "PDNGW", "category", "Context")
	PfcpLog = log.Sugar().With("component", "PDNGW", "category", "PFCP")
	FwdLog = log.Sugar().With("component", "PDNGW", "category", "Forwarder")
	GtpuLog = log.Sugar().With("component", "PDNGW", "category", "GTPU")
}

// SetLogLevel sets the log level (panic|fatal|error|warn|info|debug)
func SetLogLevel(level zapcore.Level) {
	InitLog.Infoln("set log level:", level)
	atomicLevel.SetLevel(level)
}
