// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	dir, err := os.MkdirTemp("", "radar-boot-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(dir)

	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Fatalf("could not find test program: %+v", err)
	}

	// unique names keep the killall pre-pass away from unrelated
	// processes.
	cmds := make([]string, 3)
	for i := range cmds {
		cmds[i] = filepath.Join(dir, "boot-sleep-"+strconv.Itoa(i))
		err = os.Symlink(sleep, cmds[i])
		if err != nil {
			t.Fatalf("could not create test program: %+v", err)
		}
	}

	for _, tc := range []struct {
		name string
		cmds []*exec.Cmd
		mon  bool
		stop bool
	}{
		{
			name: "simple",
			cmds: []*exec.Cmd{
				exec.Command(cmds[0], "1"),
				exec.Command(cmds[1], "1"),
				exec.Command(cmds[2], "1"),
			},
		},
		{
			name: "simple-pmon",
			cmds: []*exec.Cmd{
				exec.Command(cmds[0], "1"),
				exec.Command(cmds[1], "1"),
				exec.Command(cmds[2], "1"),
			},
			mon: true,
		},
		{
			name: "simple-stop",
			cmds: []*exec.Cmd{
				exec.Command(cmds[0], "30"),
				exec.Command(cmds[1], "30"),
				exec.Command(cmds[2], "30"),
			},
			stop: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir, err := os.MkdirTemp("", "radar-boot-")
			if err != nil {
				t.Fatalf("could not create tmp dir: %+v", err)
			}
			defer os.RemoveAll(dir)

			stop := make(chan os.Signal, 1)
			if tc.stop {
				go func() {
					time.Sleep(1 * time.Second)
					stop <- os.Interrupt
				}()
			}
			err = run(tc.mon, 200*time.Millisecond, tc.cmds, dir, stop)
			if err != nil {
				t.Fatalf("could not run processes: %+v", err)
			}
		})
	}
}
