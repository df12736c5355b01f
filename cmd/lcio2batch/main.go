// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio2batch converts an LCIO file back into a batch log file.
package main // import "github.com/rhamaa/RadarLPDP/cmd/lcio2batch"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rhamaa/RadarLPDP/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "lcio2batch: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.bin", "path to output batch log file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: lcio2batch [OPTIONS] file.lcio

ex:
 $> lcio2batch -o out.bin ./input.lcio

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input LCIO file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output batch log file name")
	}

	n, err := numEvents(flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not assess number of events: %+v", err)
	}
	msg.Printf("input:  %s", flag.Arg(0))
	msg.Printf("events: %d", n)

	freq := int(n / 10)
	if freq == 0 {
		freq = 1
	}

	err = process(*oname, flag.Arg(0), freq)
	if err != nil {
		msg.Fatalf("could not convert LCIO file: %+v", err)
	}
}

func numEvents(fname string) (int64, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return 0, fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer r.Close()

	var n int64
	for r.Next() {
		n++
	}

	err = r.Err()
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("could not assess number of events in %q: %w", fname, err)
	}

	return n, nil
}

func process(oname, fname string, freq int) error {
	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output batch file: %w", err)
	}
	defer f.Close()

	err = xcnv.LCIO2Batch(f, r, freq, msg)
	if err != nil {
		return fmt.Errorf("could not convert LCIO to batch: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close output batch file: %w", err)
	}
	return nil
}
