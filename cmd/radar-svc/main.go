// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhamaa/RadarLPDP/daq"
	"github.com/rhamaa/RadarLPDP/envmon"
)

func main() {
	var (
		addr   = flag.String("addr", ":9999", "radar-ctl [addr]:port")
		cfg    = flag.String("cfg", "", "path to the acquisition configuration file")
		replay = flag.String("replay", "", "raw capture file to replay instead of the PCI digitizer")

		envAddr = flag.String("env-addr", "", "chassis environment [addr]:port (empty: monitoring disabled)")
		envBus  = flag.Int("env-bus", envmon.DefaultBus, "i2c bus of the chassis environment sensor")

		metricsAddr = flag.String("metrics-addr", "", "prometheus [addr]:port (empty: metrics disabled)")
	)

	log.SetPrefix("radar-svc: ")
	log.SetFlags(0)

	flag.Parse()

	ccfg, err := daq.LoadConfig(*cfg)
	if err != nil {
		log.Fatalf("could not load acquisition config: %+v", err)
	}

	opts := []daq.Option{daq.WithConfig(ccfg)}
	if *replay != "" {
		opts = append(opts, daq.WithReplay(*replay))
	}

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, daq.WithMetricsRegistry(reg))
		go func() {
			err := http.ListenAndServe(*metricsAddr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err != nil {
				log.Printf("could not serve metrics: %+v", err)
			}
		}()
	}

	if *envAddr != "" {
		go func() {
			err := envmon.Serve(*envAddr, *envBus, envmon.DefaultAddr)
			if err != nil {
				log.Printf("could not serve chassis environment: %+v", err)
			}
		}()
	}

	err = daq.Serve(*addr, opts...)
	if err != nil {
		log.Fatalf("could not create radar-svc service: %+v", err)
	}
}
