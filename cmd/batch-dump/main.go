// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// batch-dump decodes and displays batch log files.
//
// Usage: batch-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> batch-dump ./log/batch_log_20230117_143027_0002_evt.bin
//	=== batch-log ./log/batch_log_20230117_143027_0002_evt.bin ===
//	date:     2023-01-17 14:30:27
//	version:  Code trigger V.3
//	author:   Raihan Muhammad
//	events:   2
//	channels: CH1,CH3
//	evt 0000: 32768 bytes
//	evt 0001: 32768 bytes
package main // import "github.com/rhamaa/RadarLPDP/cmd/batch-dump"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rhamaa/RadarLPDP/internal/bformat"
)

func main() {
	log.SetPrefix("batch-dump: ")
	log.SetFlags(0)

	check := flag.Bool("check", false, "validate the whole stream instead of dumping events")

	flag.Usage = func() {
		fmt.Printf(`batch-dump decodes and displays batch log files.

Usage: batch-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> batch-dump ./log/batch_log_20230117_143027_0002_evt.bin
 === batch-log ./log/batch_log_20230117_143027_0002_evt.bin ===
 date:     2023-01-17 14:30:27
 version:  Code trigger V.3
 author:   Raihan Muhammad
 events:   2
 channels: CH1,CH3
 evt 0000: 32768 bytes
 evt 0001: 32768 bytes

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input batch log file")
	}

	for _, fname := range flag.Args() {
		err := process(os.Stdout, fname, *check)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, check bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	if check {
		hdr, err := bformat.Validate(f)
		if err != nil {
			return fmt.Errorf("could not validate %q: %w", fname, err)
		}
		fmt.Fprintf(wbuf, "=== batch-log %s ===\n", fname)
		printHeader(wbuf, hdr)
		fmt.Fprintf(wbuf, "stream:   OK\n")
		return nil
	}

	dec := bformat.NewDecoder(f)
	hdr, err := dec.Header()
	if err != nil {
		return fmt.Errorf("could not decode header: %w", err)
	}

	fmt.Fprintf(wbuf, "=== batch-log %s ===\n", fname)
	printHeader(wbuf, hdr)

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
		fmt.Fprintf(wbuf, "evt %04d: %d bytes\n", evt.ID, len(evt.Data))
	}

	return nil
}

func printHeader(w io.Writer, hdr bformat.Header) {
	fmt.Fprintf(w, "date:     %s\n", hdr.Date.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "version:  %s\n", hdr.Version)
	fmt.Fprintf(w, "author:   %s\n", hdr.Author)
	fmt.Fprintf(w, "events:   %d\n", hdr.Events)
	fmt.Fprintf(w, "channels: %s\n", chanList(hdr.Channels))
}

func chanList(chans []int) string {
	o := new(strings.Builder)
	for i, ch := range chans {
		if i > 0 {
			o.WriteByte(',')
		}
		fmt.Fprintf(o, "CH%d", ch)
	}
	return o.String()
}
