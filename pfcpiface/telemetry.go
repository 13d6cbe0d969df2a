// SPDX-License-Identifier: Apache-2.0
// Copyright(c) 2020 Intel Corporation

package pfcpiface

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omec-project/pdngw/pfcpiface/metrics"
)

// upfCollector exports the registry occupancy at scrape time.
type upfCollector struct {
	sessions  *prometheus.Desc
	bearers   *prometheus.Desc
	addresses *prometheus.Desc

	upf *upf
}

func newUpfCollector(upf *upf) *upfCollector {
	return &upfCollector{
		sessions: prometheus.NewDesc(prometheus.BuildFQName("pdngw", "registry", "sessions"),
			"Shows the number of live sessions in the registry",
			nil, nil,
		),
		bearers: prometheus.NewDesc(prometheus.BuildFQName("pdngw", "registry", "bearers"),
			"Shows the number of live bearers in the registry",
			nil, nil,
		),
		addresses: prometheus.NewDesc(prometheus.BuildFQName("pdngw", "registry", "allocated_addresses"),
			"Shows the number of subscriber addresses handed out since start",
			nil, nil,
		),
		upf: upf,
	}
}

// Describe writes all descriptors to the prometheus desc channel.
func (uc *upfCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- uc.sessions
	ch <- uc.bearers
	ch <- uc.addresses
}

// Collect writes all metrics to prometheus metric channel
func (uc *upfCollector) Collect(ch chan<- prometheus.Metric) {
	st := uc.upf.stats()

	ch <- prometheus.MustNewConstMetric(uc.sessions, prometheus.GaugeValue, float64(st.sessions))
	ch <- prometheus.MustNewConstMetric(uc.bearers, prometheus.GaugeValue, float64(st.bearers))
	ch <- prometheus.MustNewConstMetric(uc.addresses, prometheus.CounterValue, float64(st.addresses))
}

// setupProm registers the registry collector with svc and serves it on mux.
func setupProm(mux *http.ServeMux, upf *upf, svc *metrics.Service) (*upfCollector, error) {
	uc := newUpfCollector(upf)
	if err := svc.Register(uc); err != nil {
		return nil, err
	}

	mux.Handle("/metrics", promhttp.HandlerFor(svc.Registry(), promhttp.HandlerOpts{}))

	return uc, nil
}

func clearProm(svc *metrics.Service, uc *upfCollector) {
	svc.Registry().Unregister(uc)
}
