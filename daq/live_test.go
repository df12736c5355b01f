// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLivePublisher(t *testing.T) {
	tmp, err := os.MkdirTemp("", "radar-live-")
	if err != nil {
		t.Fatalf("could not create tmp-dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	var (
		msg  = log.New(new(bytes.Buffer), "daq: ", 0)
		pub  = newLivePublisher(msg, tmp, "live.bin")
		live = filepath.Join(tmp, "live.bin")
	)

	// no capture, nothing published.
	n, err := pub.endCapture()
	if err != nil {
		t.Fatalf("could not end idle capture: %+v", err)
	}
	if n != 0 {
		t.Fatalf("invalid idle capture size: got=%d, want=0", n)
	}
	if _, err := os.Stat(live); !os.IsNotExist(err) {
		t.Fatalf("unexpected live file: err=%v", err)
	}

	pub.beginCapture()
	pub.writeChunk([]byte{1, 2, 3})
	pub.writeChunk([]byte{4, 5})
	n, err = pub.endCapture()
	if err != nil {
		t.Fatalf("could not publish capture: %+v", err)
	}
	if n != 5 {
		t.Fatalf("invalid published size: got=%d, want=5", n)
	}

	got, err := os.ReadFile(live)
	if err != nil {
		t.Fatalf("could not read live file: %+v", err)
	}
	if want := []byte{1, 2, 3, 4, 5}; !bytes.Equal(got, want) {
		t.Fatalf("invalid live file content:\ngot= %v\nwant=%v", got, want)
	}
	if _, err := os.Stat(pub.tmp); !os.IsNotExist(err) {
		t.Fatalf("temporary live file left behind: err=%v", err)
	}

	// a new capture replaces the published file.
	pub.beginCapture()
	pub.writeChunk([]byte{9})
	_, err = pub.endCapture()
	if err != nil {
		t.Fatalf("could not publish capture: %+v", err)
	}
	got, err = os.ReadFile(live)
	if err != nil {
		t.Fatalf("could not read live file: %+v", err)
	}
	if want := []byte{9}; !bytes.Equal(got, want) {
		t.Fatalf("invalid live file content:\ngot= %v\nwant=%v", got, want)
	}

	// a capture without data does not clobber the published file.
	pub.beginCapture()
	n, err = pub.endCapture()
	if err != nil {
		t.Fatalf("could not end empty capture: %+v", err)
	}
	if n != 0 {
		t.Fatalf("invalid empty capture size: got=%d, want=0", n)
	}
	got, err = os.ReadFile(live)
	if err != nil {
		t.Fatalf("could not read live file: %+v", err)
	}
	if want := []byte{9}; !bytes.Equal(got, want) {
		t.Fatalf("invalid live file content:\ngot= %v\nwant=%v", got, want)
	}
	if _, err := os.Stat(pub.tmp); !os.IsNotExist(err) {
		t.Fatalf("temporary live file left behind: err=%v", err)
	}
}

func TestLivePublisherDegraded(t *testing.T) {
	tmp, err := os.MkdirTemp("", "radar-live-")
	if err != nil {
		t.Fatalf("could not create tmp-dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	buf := new(bytes.Buffer)
	msg := log.New(buf, "", 0)
	pub := newLivePublisher(msg, filepath.Join(tmp, "missing"), "live.bin")

	// the capture proceeds without live output.
	pub.beginCapture()
	pub.writeChunk([]byte{1, 2, 3})
	n, err := pub.endCapture()
	if err != nil {
		t.Fatalf("could not end degraded capture: %+v", err)
	}
	if n != 0 {
		t.Fatalf("invalid degraded capture size: got=%d, want=0", n)
	}
	if !strings.Contains(buf.String(), "could not create live file") {
		t.Fatalf("missing degraded-mode log entry:\n%s", buf.String())
	}
}
