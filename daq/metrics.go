// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the acquisition counters of one device. The counters
// live in the provided registry, or in a private one when reg is nil.
// Close unregisters them, so successive devices can share a registry
// without fighting over metric registration.
type metrics struct {
	reg *prometheus.Registry

	halves        prometheus.Counter
	captures      prometheus.Counter
	livePublishes prometheus.Counter
	flushes       prometheus.Counter
	flushErrs     prometheus.Counter
	spooled       prometheus.Gauge
}

func newMetrics(reg *prometheus.Registry) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	met := &metrics{
		reg: reg,
		halves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radar_halves_drained_total",
			Help: "Number of DMA half-buffers drained.",
		}),
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radar_captures_total",
			Help: "Number of completed trigger captures.",
		}),
		livePublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radar_live_publishes_total",
			Help: "Number of live files published.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radar_batch_flushes_total",
			Help: "Number of batch files written.",
		}),
		flushErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radar_batch_flush_errors_total",
			Help: "Number of failed batch file writes.",
		}),
		spooled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radar_spool_events",
			Help: "Number of events currently spooled in memory.",
		}),
	}
	met.reg.MustRegister(
		met.halves,
		met.captures,
		met.livePublishes,
		met.flushes,
		met.flushErrs,
		met.spooled,
	)
	return met
}

func (met *metrics) unregister() {
	for _, c := range []prometheus.Collector{
		met.halves,
		met.captures,
		met.livePublishes,
		met.flushes,
		met.flushErrs,
		met.spooled,
	} {
		met.reg.Unregister(c)
	}
}
