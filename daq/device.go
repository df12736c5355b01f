// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type device interface {
	Configure() error
	Start(run uint32) error
	Stop() error
	Status() string

	Close() error
}

var _ device = (*Device)(nil)

// Device controls one PCI ADC card operated in double-buffered mode.
//
// A device is created with NewDevice, configured once with Configure
// and then cycled through runs with Start and Stop. Each run arms the
// external trigger, drains the two DMA half-buffers of every trigger
// capture, publishes the selected channels to the live file and spools
// completed captures into batch files. Close releases the card.
type Device struct {
	msg *log.Logger
	drv driver
	cfg config
	sel selector

	live  *livePublisher
	spool *spool
	met   *metrics

	bufA []uint16 // first DMA half-buffer
	bufB []uint16 // second DMA half-buffer

	scanIntrv uint32 // timebase ticks between scans, set by Configure
	running   bool   // a run is in progress, owned by Start/Stop

	err error // first error of the current run

	daq struct {
		done chan int
	}
}

// NewDevice creates a DAQ device from the provided options.
//
// The acquisition geometry is validated before any hardware is
// touched: an invalid channel selection fails here, with the card
// left untouched.
func NewDevice(opts ...Option) (*Device, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	sel, err := newSelector(cfg.hwChans, cfg.chans)
	if err != nil {
		return nil, err
	}

	msg := log.New(os.Stdout, "daq: ", 0)

	drv := cfg.drv
	if drv == nil {
		switch {
		case cfg.replay != "":
			drv, err = newReplayDriver(cfg.replay)
			if err != nil {
				return nil, fmt.Errorf("daq: could not open replay source: %w", err)
			}
		default:
			drv, err = newWDDriver(cfg.card)
			if err != nil {
				return nil, fmt.Errorf("daq: could not open DAQ card: %w", err)
			}
		}
	}

	dev := &Device{
		msg:  msg,
		drv:  drv,
		cfg:  cfg,
		sel:  sel,
		met:  newMetrics(cfg.metreg),
		bufA: make([]uint16, int(cfg.nsamples)*cfg.hwChans),
		bufB: make([]uint16, int(cfg.nsamples)*cfg.hwChans),
	}
	dev.live = newLivePublisher(msg, cfg.liveDir, cfg.liveFile)
	dev.spool = newSpool(msg, &dev.cfg, dev.met)

	return dev, nil
}

// Configure prepares the card for acquisition: analog input range,
// internal timebase and trigger source. Configure must be called once
// before the first Start.
func (dev *Device) Configure() error {
	prop, err := dev.drv.Properties()
	if err != nil {
		return fmt.Errorf("daq: could not read card properties: %w", err)
	}
	if prop.Channels > 0 && dev.cfg.hwChans > prop.Channels {
		return fmt.Errorf("daq: hardware scan of %d channels exceeds card capacity (%d)",
			dev.cfg.hwChans, prop.Channels)
	}

	err = dev.drv.ConfigChannels(prop.Range)
	if err != nil {
		return fmt.Errorf("daq: could not configure analog inputs: %w", err)
	}

	err = dev.drv.ConfigTimebase()
	if err != nil {
		return fmt.Errorf("daq: could not configure timebase: %w", err)
	}

	err = dev.drv.ConfigTrigger(dev.cfg.trig)
	if err != nil {
		return fmt.Errorf("daq: could not configure trigger: %w", err)
	}

	dev.scanIntrv = scanInterval(dev.cfg.rate)
	dev.msg.Printf("sample rate: %d Hz, scan interval: %d ticks", dev.cfg.rate, dev.scanIntrv)

	return nil
}

// Start begins a new acquisition run. The run keeps acquiring trigger
// captures until Stop is called or a DAQ error occurs.
func (dev *Device) Start(run uint32) error {
	if dev.scanIntrv == 0 {
		return fmt.Errorf("daq: device not configured")
	}
	if dev.running {
		return fmt.Errorf("daq: run %d already in progress", dev.cfg.run)
	}

	dev.cfg.run = run
	for _, dir := range []string{dev.cfg.liveDir, dev.cfg.logDir} {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return fmt.Errorf("daq: could not create output directory %q: %w", dir, err)
		}
	}

	dev.msg.Printf("-----------------RUN NB %d-----------------", run)

	dev.err = nil
	dev.daq.done = make(chan int)
	dev.running = true
	go dev.loop()

	return nil
}

// Stop terminates the current run, waits for the acquisition loop to
// drain and flush its spool, and reports any error the run hit.
func (dev *Device) Stop() error {
	if !dev.running {
		return fmt.Errorf("daq: no run in progress")
	}

	tck := time.NewTimer(dev.cfg.timeout)
	defer tck.Stop()

	select {
	case dev.daq.done <- 1:
		<-dev.daq.done
	case <-tck.C:
		return fmt.Errorf("daq: could not stop DAQ (timeout=%v)", dev.cfg.timeout)
	}

	dev.running = false
	if dev.err != nil {
		return fmt.Errorf("daq: error during DAQ: %w", dev.err)
	}

	return nil
}

// Status describes the control state of the device.
func (dev *Device) Status() string {
	switch {
	case dev.running:
		return fmt.Sprintf("running run=%d", dev.cfg.run)
	case dev.scanIntrv != 0:
		return "configured"
	default:
		return "idle"
	}
}

// Close releases the DAQ card.
func (dev *Device) Close() error {
	if dev.drv == nil {
		return nil
	}

	dev.met.unregister()

	err := dev.drv.Close()
	dev.drv = nil
	if err != nil {
		return fmt.Errorf("daq: could not release DAQ card: %w", err)
	}

	return nil
}

// Metrics returns the registry holding the device acquisition
// counters.
func (dev *Device) Metrics() *prometheus.Registry { return dev.met.reg }

func (dev *Device) loop() {
	var (
		w      = dev.msg.Writer()
		printf = fmt.Fprintf
		errorf = func(format string, args ...interface{}) {
			dev.err = fmt.Errorf(format, args...)
			dev.msg.Printf("%+v", dev.err)
		}
		freeRun = dev.cfg.trig.Source == TrigSrcSoftware
		cycle   int
		stop    bool
		fail    bool
	)

cycles:
	for {
		select {
		case <-dev.daq.done:
			stop = true
			break cycles
		default:
		}

		err := dev.drv.SetupDoubleBuffer(dev.bufA, dev.bufB)
		if err != nil {
			errorf("daq: could not set up double buffer: %w", err)
			break cycles
		}
		err = dev.drv.StartScan(dev.cfg.hwChans, dev.cfg.nsamples, dev.scanIntrv, dev.scanIntrv)
		if err != nil {
			errorf("daq: could not start scan: %w", err)
			break cycles
		}

		printf(w, "trigger %07d, state: arm-", cycle)
		if !freeRun {
		armed:
			for {
				fired, err := dev.drv.TriggerFired()
				if err != nil {
					printf(w, "\n")
					errorf("daq: could not poll trigger: %w", err)
					_, _, _ = dev.drv.ClearScan()
					break cycles
				}
				if fired {
					break armed
				}
				select {
				case <-dev.daq.done:
					printf(w, "stop\n")
					stop = true
					_, _, err = dev.drv.ClearScan()
					if err != nil {
						dev.msg.Printf("daq: could not clear scan: %+v", err)
					}
					break cycles
				default:
				}
			}
		}

		printf(w, "acq-")
		dev.live.beginCapture()
		var (
			acc    []byte
			half   int
			halves int
		)
	capture:
		for {
			ready, stopped, err := dev.drv.HalfReady()
			if err != nil {
				errorf("daq: could not poll half-buffer: %w", err)
				fail = true
				break capture
			}
			if ready {
				src := dev.bufA
				if half == 1 {
					src = dev.bufB
				}
				n := len(acc)
				acc = dev.sel.extract(acc, src)
				dev.live.writeChunk(acc[n:])
				half = 1 - half
				halves++
				dev.met.halves.Inc()

				err = dev.drv.HalfHandled()
				if err != nil {
					errorf("daq: could not release half-buffer: %w", err)
					fail = true
					break capture
				}

				if dev.cfg.maxBytes > 0 && int64(len(acc)) > dev.cfg.maxBytes {
					dev.msg.Printf("trigger %07d: capture exceeds %d bytes, dropping event",
						cycle, dev.cfg.maxBytes)
					acc = nil
					break capture
				}
			}
			if stopped {
				break capture
			}
			select {
			case <-dev.daq.done:
				stop = true
				break capture
			default:
			}
		}

		printf(w, "pub-")
		n, err := dev.live.endCapture()
		if err != nil {
			dev.msg.Printf("%+v", err)
		}
		if n > 0 {
			dev.met.livePublishes.Inc()
		}

		printf(w, "clear-")
		switch {
		case fail:
			// the scan may already be dead. clear what is left.
			_, _, _ = dev.drv.ClearScan()
		default:
			_, _, err = dev.drv.ClearScan()
			if err != nil {
				printf(w, "\n")
				errorf("daq: could not clear scan: %w", err)
				fail = true
			}
		}

		if len(acc) > 0 {
			if dev.cfg.sink != nil {
				dev.cfg.sink(acc)
			}
			err = dev.spool.addEvent(acc)
			if err != nil {
				dev.msg.Printf("%+v", err)
			}
			dev.met.captures.Inc()
		}

		printf(w, "done (halves=%d, bytes=%d)\n", halves, len(acc))
		cycle++

		if stop || fail {
			break cycles
		}
	}

	err := dev.spool.flush()
	if err != nil {
		dev.msg.Printf("%+v", err)
		if dev.err == nil {
			dev.err = err
		}
	}

	if stop {
		dev.daq.done <- 1
		return
	}

	// The run terminated on its own. Hold the stop handshake so a
	// late Stop call returns the run error instead of timing out.
	<-dev.daq.done
	dev.daq.done <- 1
}
