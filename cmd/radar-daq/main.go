// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command radar-daq drives the PCI digitizer acquisition in stand-alone mode.
package main // import "github.com/rhamaa/RadarLPDP/cmd/radar-daq"

import (
	"flag"
	"log"

	"github.com/rhamaa/RadarLPDP/daq"
)

func main() {
	var (
		runnbr = flag.Int("run", -1, "run number")
		cfg    = flag.String("cfg", "", "path to the acquisition configuration file")
		replay = flag.String("replay", "", "raw capture file to replay instead of the PCI digitizer")
	)

	log.SetPrefix("radar-daq: ")
	log.SetFlags(0)

	flag.Parse()

	log.Printf("run=%d cfg=%q replay=%q", *runnbr, *cfg, *replay)

	if *runnbr < 0 {
		log.Fatalf("invalid run number value")
	}

	err := run(*cfg, *runnbr, *replay)
	if err != nil {
		log.Fatalf("could not run radar-daq: %+v", err)
	}
}

func run(cfg string, runnbr int, replay string) error {
	var opts []daq.Option
	if replay != "" {
		opts = append(opts, daq.WithReplay(replay))
	}
	return daq.RunStandalone(cfg, runnbr, opts...)
}
