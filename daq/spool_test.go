// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSpool(t *testing.T) {
	tmp, err := os.MkdirTemp("", "radar-spool-")
	if err != nil {
		t.Fatalf("could not create tmp-dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	var (
		msg = log.New(io.Discard, "", 0)
		met = newMetrics(nil)
		cfg = config{
			logDir:   tmp,
			capacity: 2,
			version:  "Code trigger V.3",
			author:   "Raihan Muhammad",
			chans:    []int{1, 3},
		}
		sp = newSpool(msg, &cfg, met)
	)
	sp.now = func() time.Time {
		return time.Date(2023, 1, 17, 14, 30, 27, 0, time.Local)
	}

	err = sp.addEvent([]byte{1, 2})
	if err != nil {
		t.Fatalf("could not spool event: %+v", err)
	}
	if n := batchFiles(t, tmp); n != 0 {
		t.Fatalf("premature flush: %d batch files", n)
	}
	if got, want := testutil.ToFloat64(met.spooled), 1.0; got != want {
		t.Fatalf("invalid spooled metric: got=%v, want=%v", got, want)
	}

	// the spool flushes itself at capacity.
	err = sp.addEvent([]byte{3, 4})
	if err != nil {
		t.Fatalf("could not spool event: %+v", err)
	}
	if n := batchFiles(t, tmp); n != 1 {
		t.Fatalf("invalid number of batch files: got=%d, want=1", n)
	}

	fname := filepath.Join(tmp, "batch_log_20230117_143027_0002_evt.bin")
	hdr, evts := decodeBatch(t, fname)
	if got, want := hdr.Events, 2; got != want {
		t.Fatalf("invalid event count: got=%d, want=%d", got, want)
	}
	if got, want := hdr.Version, "Code trigger V.3"; got != want {
		t.Fatalf("invalid version: got=%q, want=%q", got, want)
	}
	if got, want := hdr.Author, "Raihan Muhammad"; got != want {
		t.Fatalf("invalid author: got=%q, want=%q", got, want)
	}
	if got, want := hdr.Channels, []int{1, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid channels: got=%v, want=%v", got, want)
	}
	if want := [][]byte{{1, 2}, {3, 4}}; !reflect.DeepEqual(evts, want) {
		t.Fatalf("invalid events:\ngot= %v\nwant=%v", evts, want)
	}

	if len(sp.evts) != 0 {
		t.Fatalf("spool not drained: %d events left", len(sp.evts))
	}
	if got, want := testutil.ToFloat64(met.spooled), 0.0; got != want {
		t.Fatalf("invalid spooled metric: got=%v, want=%v", got, want)
	}
	if got, want := testutil.ToFloat64(met.flushes), 1.0; got != want {
		t.Fatalf("invalid flushes metric: got=%v, want=%v", got, want)
	}

	// an empty flush is a no-op.
	err = sp.flush()
	if err != nil {
		t.Fatalf("could not flush empty spool: %+v", err)
	}
	if n := batchFiles(t, tmp); n != 1 {
		t.Fatalf("invalid number of batch files: got=%d, want=1", n)
	}
}

func TestSpoolFlushFailure(t *testing.T) {
	tmp, err := os.MkdirTemp("", "radar-spool-")
	if err != nil {
		t.Fatalf("could not create tmp-dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	var (
		dir = filepath.Join(tmp, "log") // not created yet
		msg = log.New(io.Discard, "", 0)
		met = newMetrics(nil)
		cfg = config{
			logDir:   dir,
			capacity: 1000,
			version:  "v1",
			author:   "a",
			chans:    []int{0},
		}
		sp = newSpool(msg, &cfg, met)
	)
	sp.now = func() time.Time {
		return time.Date(2023, 1, 17, 14, 30, 27, 0, time.Local)
	}

	err = sp.addEvent([]byte{42})
	if err != nil {
		t.Fatalf("could not spool event: %+v", err)
	}

	err = sp.flush()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "could not flush 1 events") {
		t.Fatalf("invalid error: %+v", err)
	}
	if len(sp.evts) != 1 {
		t.Fatalf("events dropped by failed flush: %d left", len(sp.evts))
	}
	if got, want := testutil.ToFloat64(met.flushErrs), 1.0; got != want {
		t.Fatalf("invalid flush-errors metric: got=%v, want=%v", got, want)
	}

	// events survive to the next flush.
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		t.Fatalf("could not create log dir: %+v", err)
	}
	err = sp.flush()
	if err != nil {
		t.Fatalf("could not flush spool: %+v", err)
	}

	fname := filepath.Join(dir, "batch_log_20230117_143027_0001_evt.bin")
	hdr, evts := decodeBatch(t, fname)
	if got, want := hdr.Events, 1; got != want {
		t.Fatalf("invalid event count: got=%d, want=%d", got, want)
	}
	if want := [][]byte{{42}}; !reflect.DeepEqual(evts, want) {
		t.Fatalf("invalid events:\ngot= %v\nwant=%v", evts, want)
	}
	if len(sp.evts) != 0 {
		t.Fatalf("spool not drained: %d events left", len(sp.evts))
	}
}

func batchFiles(t *testing.T, dir string) int {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "batch_log_*_evt.bin"))
	if err != nil {
		t.Fatalf("could not glob batch files: %+v", err)
	}
	return len(files)
}
