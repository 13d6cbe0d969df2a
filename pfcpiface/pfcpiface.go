// SPDX-License-Identifier: Apache-2.0
// Copyright 2022-present Open Networking Foundation

package pfcpiface

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/omec-project/pdngw/internal/gtpu"
	"github.com/omec-project/pdngw/logger"
	"github.com/omec-project/pdngw/pfcpiface/metrics"
)

type PFCPIface struct {
	conf Conf

	metrics *metrics.Service
	upf     *upf
}

func NewPFCPIface(conf Conf) (*PFCPIface, error) {
	svc, err := metrics.NewPrometheusService()
	if err != nil {
		return nil, err
	}

	pfcpIface := &PFCPIface{
		conf:    conf,
		metrics: svc,
	}

	pfcpIface.upf = NewUPF(&conf, withObserver(svc), withMetrics(svc))

	return pfcpIface, nil
}

// Run opens every socket, serves until SIGINT or SIGTERM and then shuts down.
func (p *PFCPIface) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	serve := func(f func(context.Context)) {
		wg.Add(1)

		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	access, err := gtpu.ListenGTPU(net.JoinHostPort(p.conf.AccessAddr, strconv.Itoa(gtpu.Port)), p.upf)
	if err != nil {
		return err
	}

	var apn gtpu.APNWriter

	if p.conf.SGiAddr != "" {
		sgi, err := gtpu.ListenSGi(p.conf.SGiAddr, p.upf)
		if err != nil {
			access.Close()
			return err
		}

		apn = sgi

		serve(sgi.Serve)
	} else {
		logger.InitLog.Warnln("no sgi_addr configured, uplink packets will not reach APN gateways")
	}

	p.upf.setTransmitter(gtpu.NewSender(access, apn))

	serve(access.Serve)

	node, err := NewPFCPNode(p.conf.N4Addr, p.upf)
	if err != nil {
		cancel()
		wg.Wait()

		return err
	}

	serve(node.Serve)

	mux := http.NewServeMux()
	setupSessionsHandler(mux, p.upf)

	uc, err := setupProm(mux, p.upf, p.metrics)
	if err != nil {
		cancel()
		wg.Wait()

		return err
	}
	defer clearProm(p.metrics, uc)

	httpSrv := &http.Server{Addr: ":" + p.conf.HTTPPort, Handler: mux}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.AppLog.Errorln("http server failed", err)
		}

		logger.AppLog.Infoln("http server closed")
	}()

	logger.AppLog.Infoln("gateway", p.conf.NodeID, "running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	cancel()

	// Wait for the sockets to close before http shutdown
	wg.Wait()

	if err := httpSrv.Shutdown(context.Background()); err != nil {
		logger.AppLog.Errorln("failed to shutdown http:", err)
	}

	n := p.upf.deleteAllSessions()
	logger.AppLog.Infoln("removed", n, "sessions on exit")

	return p.metrics.Stop()
}
