// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rhamaa/RadarLPDP/internal/mmap"
)

// replayDriver replays a raw interleaved capture file as if it were a
// DAQ card. Each scan cycle fires immediately and serves two
// half-buffers, paced at the configured scan interval, then reports a
// stopped acquisition. The file is rewound when exhausted, so a replay
// runs until the operator stops it.
type replayDriver struct {
	f   *mmap.Handle
	off int64

	bufA []uint16
	bufB []uint16

	half  int // next half-buffer to serve
	left  int // half-buffers left in the current cycle
	pace  time.Duration
	ackd  bool // last served half has been acknowledged
	chunk []byte
}

var _ driver = (*replayDriver)(nil)

func newReplayDriver(fname string) (*replayDriver, error) {
	f, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("daq: could not open replay file %q: %w", fname, err)
	}
	if f.Len() < 2 {
		_ = f.Close()
		return nil, fmt.Errorf("daq: replay file %q holds no samples", fname)
	}
	return &replayDriver{f: f, ackd: true}, nil
}

func (drv *replayDriver) Properties() (Properties, error) {
	return Properties{}, nil
}

func (drv *replayDriver) ConfigChannels(rng uint16) error { return nil }

func (drv *replayDriver) ConfigTimebase() error { return nil }

func (drv *replayDriver) ConfigTrigger(cfg TriggerConfig) error { return nil }

func (drv *replayDriver) SetupDoubleBuffer(a, b []uint16) error {
	drv.bufA = a
	drv.bufB = b
	return nil
}

func (drv *replayDriver) StartScan(nchan int, samplesPerHalf, scanIntrv, sampIntrv uint32) error {
	if drv.bufA == nil || drv.bufB == nil {
		return fmt.Errorf("daq: replay scan started without buffers")
	}
	n := int(samplesPerHalf) * nchan
	if len(drv.bufA) < n || len(drv.bufB) < n {
		return fmt.Errorf("daq: replay buffers too small (got=%d, want=%d)", len(drv.bufA), n)
	}
	drv.half = 0
	drv.left = 2
	drv.ackd = true
	drv.pace = time.Duration(samplesPerHalf) * time.Duration(scanIntrv) * time.Second / timebase
	if cap(drv.chunk) < 2*n {
		drv.chunk = make([]byte, 2*n)
	}
	drv.chunk = drv.chunk[:2*n]
	return nil
}

func (drv *replayDriver) TriggerFired() (bool, error) {
	return true, nil
}

func (drv *replayDriver) HalfReady() (ready, stopped bool, err error) {
	if !drv.ackd {
		return false, false, fmt.Errorf("daq: replay half-buffer not acknowledged")
	}
	if drv.left == 0 {
		return false, true, nil
	}
	time.Sleep(drv.pace)

	drv.fill()

	dst := drv.bufA
	if drv.half == 1 {
		dst = drv.bufB
	}
	for i := range dst[:len(drv.chunk)/2] {
		dst[i] = binary.LittleEndian.Uint16(drv.chunk[2*i:])
	}

	drv.half = 1 - drv.half
	drv.left--
	drv.ackd = false
	return true, false, nil
}

// fill reads the next half-buffer worth of bytes, rewinding at any
// point the file runs out.
func (drv *replayDriver) fill() {
	p := drv.chunk
	for len(p) > 0 {
		if drv.off >= int64(drv.f.Len()) {
			drv.off = 0
		}
		n, err := drv.f.ReadAt(p, drv.off)
		if err != nil && n == 0 {
			drv.off = 0
			continue
		}
		drv.off += int64(n)
		p = p[n:]
	}
}

func (drv *replayDriver) HalfHandled() error {
	drv.ackd = true
	return nil
}

func (drv *replayDriver) ClearScan() (startPos, count uint32, err error) {
	drv.left = 0
	return 0, 0, nil
}

func (drv *replayDriver) Close() error {
	f := drv.f
	drv.f = nil
	if f == nil {
		return nil
	}
	return f.Close()
}
