// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command radar-tdaq exposes the PCI digitizer station as a TDAQ process.
//
// The optional positional arguments are the path to the acquisition
// configuration file and a raw capture file to replay instead of the
// digitizer.
package main // import "github.com/rhamaa/RadarLPDP/cmd/radar-tdaq"

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/rhamaa/RadarLPDP/daq"
)

func main() {
	cmd := flags.New()

	var sta station
	if len(cmd.Args) > 0 {
		sta.cfg = cmd.Args[0]
	}
	if len(cmd.Args) > 1 {
		sta.replay = cmd.Args[1]
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", sta.OnConfig)
	srv.CmdHandle("/init", sta.OnInit)
	srv.CmdHandle("/reset", sta.OnReset)
	srv.CmdHandle("/start", sta.OnStart)
	srv.CmdHandle("/stop", sta.OnStop)
	srv.CmdHandle("/quit", sta.OnQuit)

	srv.OutputHandle("/adc", sta.adc)

	srv.RunHandle(sta.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type station struct {
	cfg    string // acquisition configuration file
	replay string // raw capture file to replay

	ccfg daq.Config

	nrun uint32
	dev  *daq.Device
	data chan []byte
}

func (sta *station) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	cfg, err := daq.LoadConfig(sta.cfg)
	if err != nil {
		return fmt.Errorf("could not load acquisition config: %w", err)
	}
	sta.ccfg = cfg
	return nil
}

func (sta *station) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return sta.initDevice()
}

func (sta *station) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := sta.release()
	if err != nil {
		return err
	}
	return sta.initDevice()
}

func (sta *station) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	if sta.dev == nil {
		return fmt.Errorf("DAQ device not initialized")
	}
	sta.nrun++
	ctx.Msg.Debugf("received /start command... -> run=%d", sta.nrun)
	return sta.dev.Start(sta.nrun)
}

func (sta *station) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	if sta.dev == nil {
		return fmt.Errorf("DAQ device not initialized")
	}
	return sta.dev.Stop()
}

func (sta *station) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return sta.release()
}

func (sta *station) initDevice() error {
	sta.data = make(chan []byte, 1024)
	var (
		ch   = sta.data
		opts = []daq.Option{
			daq.WithConfig(sta.ccfg),
			daq.WithEventSink(func(evt []byte) {
				select {
				case ch <- evt:
				default:
				}
			}),
		}
	)
	if sta.replay != "" {
		opts = append(opts, daq.WithReplay(sta.replay))
	}

	dev, err := daq.NewDevice(opts...)
	if err != nil {
		return fmt.Errorf("could not create DAQ device: %w", err)
	}

	err = dev.Configure()
	if err != nil {
		_ = dev.Close()
		return fmt.Errorf("could not configure DAQ device: %w", err)
	}

	sta.dev = dev
	sta.nrun = 0
	return nil
}

func (sta *station) release() error {
	if sta.dev == nil {
		return nil
	}
	err := sta.dev.Close()
	sta.dev = nil
	if err != nil {
		return fmt.Errorf("could not release DAQ device: %w", err)
	}
	return nil
}

func (sta *station) adc(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-sta.data:
		dst.Body = data
	}
	return nil
}

func (sta *station) run(ctx tdaq.Context) error {
	<-ctx.Ctx.Done()
	return nil
}
