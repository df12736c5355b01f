// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

type standalone struct {
	dev  *Device
	run  uint32
	stop chan os.Signal
}

func newStandalone(run int, opts ...Option) (*standalone, error) {
	dev, err := NewDevice(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create DAQ device: %w", err)
	}
	srv := &standalone{
		dev:  dev,
		run:  uint32(run),
		stop: make(chan os.Signal, 1),
	}
	return srv, nil
}

// RunStandalone runs one acquisition run without a control server.
// The run stops on SIGINT, SIGUSR1 or the ESC key.
func RunStandalone(fname string, run int, opts ...Option) error {
	cfg, err := LoadConfig(fname)
	if err != nil {
		return fmt.Errorf("could not load DAQ configuration: %w", err)
	}

	xopts := []Option{WithConfig(cfg)}
	xopts = append(xopts, opts...)

	srv, err := newStandalone(run, xopts...)
	if err != nil {
		return fmt.Errorf("could not create standalone server: %w", err)
	}
	return srv.runDAQ()
}

func (srv *standalone) runDAQ() error {
	dev := srv.dev
	defer dev.Close()

	signal.Notify(srv.stop, os.Interrupt, syscall.SIGUSR1)
	defer signal.Stop(srv.stop)

	restore, err := watchKeys(os.Stdin, srv.stop)
	switch {
	case err != nil:
		dev.msg.Printf("keyboard stop disabled: %+v", err)
	default:
		defer restore()
	}

	err = dev.Configure()
	if err != nil {
		return fmt.Errorf("could not configure DAQ device: %w", err)
	}

	err = dev.Start(srv.run)
	if err != nil {
		return fmt.Errorf("could not start run %d: %w", srv.run, err)
	}

	<-srv.stop
	dev.msg.Printf("stopping acquisition...")

	err = dev.Stop()
	if err != nil {
		return fmt.Errorf("could not stop run %d: %w", srv.run, err)
	}

	return nil
}
