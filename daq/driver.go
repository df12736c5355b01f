// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

// Properties reports the identity and capabilities of a DAQ card.
type Properties struct {
	CardType uint16 // vendor card type identifier
	Channels int    // analog input channels per hardware scan
	Range    uint16 // default input voltage range code
}

// TriggerConfig selects the trigger mode, source and polarity of the
// acquisition. Values mirror the vendor driver's trigger constants.
type TriggerConfig struct {
	Mode     uint16
	Source   uint16
	Polarity uint16
}

// Trigger modes.
const (
	TrigModePost   uint16 = 0 // acquire after the trigger event
	TrigModeDelay  uint16 = 1
	TrigModePre    uint16 = 2
	TrigModeMiddle uint16 = 3
)

// Trigger sources.
const (
	TrigSrcSoftware   uint16 = 0 // free-running, no external trigger
	TrigSrcAnalog     uint16 = 1
	TrigSrcExtDigital uint16 = 2
)

// Trigger polarities.
const (
	TrigNegative uint16 = 0
	TrigPositive uint16 = 1
)

// driver is the capability surface the acquisition loop needs from a
// DAQ card. The contract follows the vendor's asynchronous
// double-buffer API: after StartScan, each ready half-buffer must be
// acknowledged with HalfHandled before the DMA engine may reuse its
// region, and ClearScan must be issued exactly once per trigger cycle
// to terminate the asynchronous operation.
type driver interface {
	Properties() (Properties, error)
	ConfigChannels(rng uint16) error
	ConfigTimebase() error
	ConfigTrigger(cfg TriggerConfig) error

	SetupDoubleBuffer(a, b []uint16) error
	StartScan(nchan int, samplesPerHalf, scanIntrv, sampIntrv uint32) error

	TriggerFired() (bool, error)
	HalfReady() (ready, stopped bool, err error)
	HalfHandled() error
	ClearScan() (startPos, count uint32, err error)

	Close() error
}
