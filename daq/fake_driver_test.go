// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import "encoding/binary"

// fakeTrig scripts one TriggerFired poll.
type fakeTrig struct {
	fired bool
	err   error
}

// fakeHalf scripts one HalfReady poll.
type fakeHalf struct {
	ready   bool
	stopped bool
	err     error
}

// fakeDriver is a scripted DAQ card. Trigger and half-buffer polls
// consume their scripts in order; an exhausted trigger script closes
// the armed channel (so tests know the device is waiting for a
// trigger) and keeps reporting an idle trigger, an exhausted
// half-buffer script reports a stopped acquisition.
type fakeDriver struct {
	prop Properties

	trig  []fakeTrig
	armed chan int

	halves []fakeHalf
	fill   func(k int, dst []uint16)

	bufA []uint16
	bufB []uint16

	calls []string

	half  int // next half to fill
	ntrig int
	nhalf int
	neat  int // ready halves served
}

var _ driver = (*fakeDriver)(nil)

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		prop: Properties{CardType: 0x9846, Channels: 4, Range: 5},
		fill: fillRamp,
	}
}

func (drv *fakeDriver) record(name string) {
	drv.calls = append(drv.calls, name)
}

func (drv *fakeDriver) Properties() (Properties, error) {
	drv.record("properties")
	return drv.prop, nil
}

func (drv *fakeDriver) ConfigChannels(rng uint16) error {
	drv.record("ch-config")
	return nil
}

func (drv *fakeDriver) ConfigTimebase() error {
	drv.record("timebase")
	return nil
}

func (drv *fakeDriver) ConfigTrigger(cfg TriggerConfig) error {
	drv.record("trig-config")
	return nil
}

func (drv *fakeDriver) SetupDoubleBuffer(a, b []uint16) error {
	drv.record("buffer-setup")
	drv.bufA = a
	drv.bufB = b
	return nil
}

func (drv *fakeDriver) StartScan(nchan int, samplesPerHalf, scanIntrv, sampIntrv uint32) error {
	drv.record("scan-start")
	drv.half = 0
	return nil
}

func (drv *fakeDriver) TriggerFired() (bool, error) {
	if drv.ntrig >= len(drv.trig) {
		if drv.armed != nil {
			close(drv.armed)
			drv.armed = nil
		}
		return false, nil
	}
	tr := drv.trig[drv.ntrig]
	drv.ntrig++
	return tr.fired, tr.err
}

func (drv *fakeDriver) HalfReady() (ready, stopped bool, err error) {
	if drv.nhalf >= len(drv.halves) {
		return false, true, nil
	}
	h := drv.halves[drv.nhalf]
	drv.nhalf++
	if h.err != nil {
		return false, false, h.err
	}
	if h.ready {
		dst := drv.bufA
		if drv.half == 1 {
			dst = drv.bufB
		}
		if drv.fill != nil {
			drv.fill(drv.neat, dst)
		}
		drv.half = 1 - drv.half
		drv.neat++
	}
	return h.ready, h.stopped, nil
}

func (drv *fakeDriver) HalfHandled() error {
	drv.record("half-handled")
	return nil
}

func (drv *fakeDriver) ClearScan() (startPos, count uint32, err error) {
	drv.record("clear-scan")
	return 0, uint32(drv.neat), nil
}

func (drv *fakeDriver) Close() error {
	drv.record("close")
	return nil
}

// fillRamp writes a recognizable ramp into a half-buffer: the high
// nibble carries the half index, the low bits the sample index.
func fillRamp(k int, dst []uint16) {
	for i := range dst {
		dst[i] = uint16(k<<12 | i&0xfff)
	}
}

// rampBytes derives the bytes the device should keep from the half
// filled by fillRamp(k): the selected channels of n frames of hw
// interleaved channels, little-endian.
func rampBytes(k, n, hw int, chans []int) []byte {
	var buf []byte
	for f := 0; f < n; f++ {
		for _, ch := range chans {
			v := uint16(k<<12 | (f*hw+ch)&0xfff)
			buf = binary.LittleEndian.AppendUint16(buf, v)
		}
	}
	return buf
}
