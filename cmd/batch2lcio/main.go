// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command batch2lcio converts a batch log file to an LCIO one.
package main // import "github.com/rhamaa/RadarLPDP/cmd/batch2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rhamaa/RadarLPDP/internal/bformat"
	"github.com/rhamaa/RadarLPDP/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "batch2lcio: ", 0)
)

func main() {
	var (
		oname  = flag.String("o", "out.lcio", "path to output LCIO file")
		compr  = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		runnbr = flag.Int("run", 0, "run number for the output LCIO file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: batch2lcio [OPTIONS] batch_log.bin

ex:
 $> batch2lcio -o out.lcio -lvl=9 -run=42 ./log/batch_log_20230117_143027_0002_evt.bin

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input batch log file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	err := process(*oname, *compr, int32(*runnbr), flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not convert batch file: %+v", err)
	}
}

func process(oname string, lvl int, run int32, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open batch file: %w", err)
	}
	defer f.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	err = xcnv.Batch2LCIO(w, bformat.NewDecoder(f), run, msg)
	if err != nil {
		return fmt.Errorf("could not convert batch to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}
