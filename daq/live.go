// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// livePublisher writes the in-progress capture's selected-channel
// bytes to a temporary file and atomically publishes it over the
// canonical live file once the capture completes. A concurrent reader
// of the canonical path sees either the previous complete capture or
// the new one, never a partial file.
//
// Live output is best effort: a publisher that cannot open or write
// its temporary file logs once and drops the capture's live output
// without disturbing the acquisition.
type livePublisher struct {
	msg  *log.Logger
	path string // canonical live file
	tmp  string // temporary file, renamed over path

	f *os.File
	n int64 // bytes written since beginCapture
}

func newLivePublisher(msg *log.Logger, dir, name string) *livePublisher {
	return &livePublisher{
		msg:  msg,
		path: filepath.Join(dir, name),
		tmp:  filepath.Join(dir, "live_acquisition_ui.tmp"),
	}
}

// beginCapture opens a fresh temporary file, truncating any prior one.
func (pub *livePublisher) beginCapture() {
	pub.n = 0
	f, err := os.Create(pub.tmp)
	if err != nil {
		pub.msg.Printf("daq: could not create live file %q: %+v", pub.tmp, err)
		pub.f = nil
		return
	}
	pub.f = f
}

// writeChunk appends one selected-channel chunk to the live capture.
func (pub *livePublisher) writeChunk(p []byte) {
	if pub.f == nil {
		return
	}
	_, err := pub.f.Write(p)
	if err != nil {
		pub.msg.Printf("daq: could not write live file %q: %+v", pub.tmp, err)
		_ = pub.f.Close()
		pub.f = nil
		pub.n = 0
		return
	}
	pub.n += int64(len(p))
}

// endCapture closes the temporary file and publishes it over the
// canonical live path. A capture that produced no chunk is not
// published. endCapture reports the number of bytes published.
func (pub *livePublisher) endCapture() (int64, error) {
	if pub.f == nil {
		return 0, nil
	}

	err := pub.f.Close()
	pub.f = nil
	if err != nil {
		return 0, fmt.Errorf("daq: could not close live file %q: %w", pub.tmp, err)
	}

	if pub.n == 0 {
		_ = os.Remove(pub.tmp)
		return 0, nil
	}

	err = os.Rename(pub.tmp, pub.path)
	if err != nil {
		return 0, fmt.Errorf("daq: could not publish live file %q: %w", pub.path, err)
	}
	return pub.n, nil
}
