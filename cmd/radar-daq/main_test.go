// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestRunReplay(t *testing.T) {
	tmp, err := os.MkdirTemp("", "radar-daq-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	raw := make([]byte, 0, 64)
	for i := 0; i < 32; i++ {
		raw = binary.LittleEndian.AppendUint16(raw, uint16(100+i))
	}
	replay := filepath.Join(tmp, "capture.raw")
	err = os.WriteFile(replay, raw, 0644)
	if err != nil {
		t.Fatalf("could not write replay file: %+v", err)
	}

	var (
		livedir = filepath.Join(tmp, "live")
		logdir  = filepath.Join(tmp, "log")
		cfgname = filepath.Join(tmp, "radar.toml")
	)
	err = os.WriteFile(cfgname, []byte(fmt.Sprintf(`
[daq]
sample-rate = 1000
samples-per-half = 4
channels = [1, 3]
live-dir = %q
log-dir = %q
`, livedir, logdir)), 0644)
	if err != nil {
		t.Fatalf("could not write config file: %+v", err)
	}

	go func() {
		time.Sleep(500 * time.Millisecond)
		_ = syscall.Kill(os.Getpid(), syscall.SIGUSR1)
	}()

	err = run(cfgname, 42, replay)
	if err != nil {
		t.Fatalf("could not run acquisition: %+v", err)
	}

	logs, err := filepath.Glob(filepath.Join(logdir, "batch_log_*_evt.bin"))
	if err != nil {
		t.Fatalf("could not list batch log files: %+v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("no batch log file written to %s", logdir)
	}

	live := filepath.Join(livedir, "live_acquisition_ui.bin")
	if _, err := os.Stat(live); err != nil {
		t.Fatalf("could not stat live file: %+v", err)
	}
}

func TestRunBadConfig(t *testing.T) {
	err := run("/no/such/radar.toml", 1, "")
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
