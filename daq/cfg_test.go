// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmp, err := os.MkdirTemp("", "radar-cfg-")
	if err != nil {
		t.Fatalf("could not create tmp-dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, "radar.toml")
	err = os.WriteFile(fname, []byte(`
[daq]
sample-rate = 10000000
samples-per-half = 4096
channels = [0, 2]
batch-capacity = 10
live-dir = "/data/live"
log-dir = "/data/log"
`), 0644)
	if err != nil {
		t.Fatalf("could not write config file: %+v", err)
	}

	cfg, err := LoadConfig(fname)
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}

	want := Config{
		SampleRate:     10000000,
		SamplesPerHalf: 4096,
		HardwareChans:  DefaultHardwareChans,
		Channels:       []int{0, 2},
		BatchCapacity:  10,
		LiveDir:        "/data/live",
		LogDir:         "/data/log",
		LiveFile:       DefaultLiveFile,
		Version:        DefaultVersion,
		Author:         DefaultAuthor,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("invalid config:\ngot= %#v\nwant=%#v", cfg, want)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tmp, err := os.MkdirTemp("", "radar-cfg-")
	if err != nil {
		t.Fatalf("could not create tmp-dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	for _, tc := range []struct {
		name string
		toml string
		want string
	}{
		{
			name: "zero-rate",
			toml: "[daq]\nsample-rate = 0\n",
			want: "daq: invalid sample rate 0",
		},
		{
			name: "bad-channel",
			toml: "[daq]\nchannels = [7]\n",
			want: "daq: invalid channel 7 (hardware scans channels 0..3)",
		},
		{
			name: "zero-capacity",
			toml: "[daq]\nbatch-capacity = -1\n",
			want: "daq: invalid batch capacity -1",
		},
		{
			name: "malformed",
			toml: "= 42\n",
			want: "daq: could not read config",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(tmp, tc.name+".toml")
			err := os.WriteFile(fname, []byte(tc.toml), 0644)
			if err != nil {
				t.Fatalf("could not write config file: %+v", err)
			}

			_, err = LoadConfig(fname)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", err.Error(), tc.want)
			}
		})
	}

	t.Run("missing-file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(tmp, "nope.toml"))
		if err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err != nil {
		t.Fatalf("invalid default config: %+v", err)
	}

	if got, want := cfg.SampleRate, uint32(20000000); got != want {
		t.Fatalf("invalid sample rate: got=%d, want=%d", got, want)
	}
	if got, want := cfg.Channels, []int{1, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid channels: got=%v, want=%v", got, want)
	}
	if got, want := cfg.BatchCapacity, 1000; got != want {
		t.Fatalf("invalid batch capacity: got=%d, want=%d", got, want)
	}
}
