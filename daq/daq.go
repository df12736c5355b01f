// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daq drives the double-buffered acquisition of radar signal
// samples from a PCI ADC card: it arms the hardware trigger, drains
// the two alternating DMA half-buffers, keeps only the selected
// channels, publishes each capture to a live file and spools completed
// captures into timestamped batch logs.
package daq // import "github.com/rhamaa/RadarLPDP/daq"

const (
	// timebase is the card's internal pacer frequency, in Hz.
	timebase = 40_000_000

	DefaultSampleRate     = 20_000_000 // samples per second and channel
	DefaultSamplesPerHalf = 8192       // samples per half-buffer and channel
	DefaultHardwareChans  = 4          // channels in one hardware scan
	DefaultBatchCapacity  = 1000       // capture events per batch log

	DefaultLiveDir  = "live"
	DefaultLogDir   = "log"
	DefaultLiveFile = "live_acquisition_ui.bin"

	DefaultVersion = "Code trigger V.3"
	DefaultAuthor  = "Raihan Muhammad"
)

// scanInterval converts a sample rate into pacer timebase ticks.
// The card cannot divide its timebase by less than 2.
func scanInterval(rate uint32) uint32 {
	v := timebase / rate
	if v < 2 {
		v = 2
	}
	return v
}
