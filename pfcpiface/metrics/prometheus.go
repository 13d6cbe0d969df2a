// SPDX-License-Identifier: Apache-2.0
// Copyright 2021-present Intel Corporation

package metrics

import (
	"time"

	"github.com/ettle/strcase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/omec-project/pdngw/internal/dataplane"
)

type Service struct {
	reg *prometheus.Registry

	msgCount    *prometheus.CounterVec
	msgDuration *prometheus.HistogramVec

	sessions        *prometheus.GaugeVec
	sessionDuration *prometheus.HistogramVec

	pktForwarded   *prometheus.CounterVec
	bytesForwarded *prometheus.CounterVec
	pktDropped     *prometheus.CounterVec
}

func NewPrometheusService() (*Service, error) {
	reg := prometheus.NewRegistry()

	msgCount := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "pfcp_messages_total",
		Help: "Counter for incoming and outgoing PFCP messages",
	}, []string{"node_id", "message_type", "direction", "result"})

	msgDuration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pfcp_messages_duration_seconds",
		Help:    "The latency of the PFCP request",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 1e-1, 1, 1e1},
	}, []string{"node_id", "message_type", "direction"})

	sessions := promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Name: "pfcp_sessions",
		Help: "Number of PFCP sessions currently in the gateway",
	}, []string{"node_id"})

	sessionDuration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name: "pfcp_session_duration_seconds",
		Help: "The lifetime of PFCP session",
		Buckets: []float64{
			1 * time.Minute.Seconds(),
			10 * time.Minute.Seconds(),
			30 * time.Minute.Seconds(),

			1 * time.Hour.Seconds(),
			6 * time.Hour.Seconds(),
			12 * time.Hour.Seconds(),
			24 * time.Hour.Seconds(),

			7 * 24 * time.Hour.Seconds(),
			4 * 7 * 24 * time.Hour.Seconds(),
		},
	}, []string{"node_id"})

	pktForwarded := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "pdngw_packets_forwarded_total",
		Help: "Packets admitted by the rate limiter and handed to the transmitter",
	}, []string{"direction"})

	bytesForwarded := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "pdngw_bytes_forwarded_total",
		Help: "Bytes admitted by the rate limiter and handed to the transmitter",
	}, []string{"direction"})

	pktDropped := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "pdngw_packets_dropped_total",
		Help: "Packets dropped by the forwarder",
	}, []string{"direction", "reason"})

	s := &Service{
		reg: reg,

		msgCount:    msgCount,
		msgDuration: msgDuration,

		sessions:        sessions,
		sessionDuration: sessionDuration,

		pktForwarded:   pktForwarded,
		bytesForwarded: bytesForwarded,
		pktDropped:     pktDropped,
	}

	return s, nil
}

// Registry returns the private registry all metrics are registered with.
func (s *Service) Registry() *prometheus.Registry {
	return s.reg
}

// Register adds an extra collector to the private registry.
func (s *Service) Register(c prometheus.Collector) error {
	return s.reg.Register(c)
}

// RecordExchange implements Recorder.
func (s *Service) RecordExchange(e *Exchange) {
	dir := string(e.Direction)
	s.msgCount.WithLabelValues(e.Peer(), e.MsgType, dir, e.Result()).Inc()
	s.msgDuration.WithLabelValues(e.Peer(), e.MsgType, dir).Observe(e.Elapsed().Seconds())
}

// RecordSession implements Recorder.
func (s *Service) RecordSession(ev SessionEvent) {
	if !ev.Removed {
		s.sessions.WithLabelValues(ev.NodeID).Inc()
		return
	}

	s.sessions.WithLabelValues(ev.NodeID).Dec()
	s.sessionDuration.WithLabelValues(ev.NodeID).Observe(ev.Lifetime.Seconds())
}

// Forwarded implements dataplane.Observer.
func (s *Service) Forwarded(dir dataplane.Direction, size int) {
	s.pktForwarded.WithLabelValues(dir.String()).Inc()
	s.bytesForwarded.WithLabelValues(dir.String()).Add(float64(size))
}

// Dropped implements dataplane.Observer.
func (s *Service) Dropped(dir dataplane.Direction, reason dataplane.DropReason) {
	s.pktDropped.WithLabelValues(dir.String(), strcase.ToSnake(reason.String())).Inc()
}

func (s *Service) Stop() error {
	s.reg.Unregister(s.msgCount)
	s.reg.Unregister(s.msgDuration)
	s.reg.Unregister(s.sessions)
	s.reg.Unregister(s.sessionDuration)
	s.reg.Unregister(s.pktForwarded)
	s.reg.Unregister(s.bytesForwarded)
	s.reg.Unregister(s.pktDropped)

	return nil
}
