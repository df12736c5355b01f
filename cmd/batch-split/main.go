// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command batch-split splits a batch log file into n raw files, one
// per capture event. The output files hold the bare sample payloads
// and can be fed back to the acquisition replay mode.
package main // import "github.com/rhamaa/RadarLPDP/cmd/batch-split"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rhamaa/RadarLPDP/internal/bformat"
)

var (
	msg = log.New(os.Stdout, "batch-split: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("batch", flag.ExitOnError)

		oname = fset.String("o", "evt.raw", "template path for output event files")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: batch-split [OPTIONS] batch_log.bin

ex:
 $> batch-split -o evt.raw ./log/batch_log_20230117_143027_0002_evt.bin
 batch-split: creating output file "evt-0000.raw"...
 batch-split: creating output file "evt-0001.raw"...

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input batch log file")
	}

	if *oname == "" {
		fset.Usage()
		msg.Fatalf("invalid output file template")
	}

	for _, arg := range fset.Args() {
		err := process(*oname, arg)
		if err != nil {
			msg.Fatalf("could not split batch file %q: %+v", arg, err)
		}
	}
}

func process(oname, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open batch file: %w", err)
	}
	defer f.Close()

	dec := bformat.NewDecoder(f)

loop:
	for {
		var evt bformat.Event
		err := dec.Decode(&evt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode event: %w", err)
		}

		oid := outFileFrom(oname, evt.ID)
		msg.Printf("creating output file %q...", oid)
		err = os.WriteFile(oid, evt.Data, 0644)
		if err != nil {
			return fmt.Errorf("could not write output file %q: %w", oid, err)
		}
	}

	return nil
}

func outFileFrom(fname string, id int) string {
	var (
		ext   = filepath.Ext(fname)
		oname = strings.Replace(fname, ext, fmt.Sprintf("-%04d%s", id, ext), 1)
	)
	return oname
}
