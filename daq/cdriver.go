// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build wddask

package daq

//#cgo CFLAGS: -g -Wall -I.
//#cgo LDFLAGS: -lwd_dask
//
//#include <stdlib.h>
//#include <string.h>
//#include "wd-dask.h"
import "C"

import (
	"fmt"
	"unsafe"
)

// wdDriver drives a PCI-9846H card through the vendor WD-DASK
// library. The DMA transfers target C-allocated buffers; each ready
// half is copied out to the registered Go buffers.
type wdDriver struct {
	card C.I16
	trig TriggerConfig

	bufA []uint16
	bufB []uint16

	cbufA unsafe.Pointer
	cbufB unsafe.Pointer
	clen  int // samples per C buffer

	idA C.U16
	idB C.U16

	half int // next half to copy out
}

var _ driver = (*wdDriver)(nil)

func newWDDriver(cardnum uint16) (*wdDriver, error) {
	card := C.WD_Register_Card(C.U16(C.PCI_9846H), C.U16(cardnum))
	if card < 0 {
		return nil, fmt.Errorf("daq: could not register card %d (rc=%d)", cardnum, card)
	}
	return &wdDriver{card: card}, nil
}

func (drv *wdDriver) Properties() (Properties, error) {
	var prop C.DAS_IOT_DEV_PROP
	rc := C.WD_GetDeviceProperties(drv.card, 0, &prop)
	if rc != 0 {
		return Properties{}, fmt.Errorf("daq: could not read card properties (rc=%d)", rc)
	}
	return Properties{
		CardType: uint16(prop.card_type),
		Channels: int(prop.num_of_channel),
		Range:    uint16(prop.default_range),
	}, nil
}

func (drv *wdDriver) ConfigChannels(rng uint16) error {
	rc := C.WD_AI_CH_Config(drv.card, -1, C.U16(rng))
	if rc != 0 {
		return fmt.Errorf("daq: could not configure analog inputs (rc=%d)", rc)
	}
	return nil
}

func (drv *wdDriver) ConfigTimebase() error {
	rc := C.WD_AI_Config(drv.card, C.WD_IntTimeBase, 1, C.WD_AI_ADCONVSRC_TimePacer, 0, 1)
	if rc != 0 {
		return fmt.Errorf("daq: could not configure timebase (rc=%d)", rc)
	}
	return nil
}

func (drv *wdDriver) ConfigTrigger(cfg TriggerConfig) error {
	drv.trig = cfg
	return drv.trigConfig()
}

// trigConfig re-applies the trigger configuration. The card drops it
// when a scan is cleared, so each new arm needs a fresh one.
func (drv *wdDriver) trigConfig() error {
	mode, err := trigMode(drv.trig.Mode)
	if err != nil {
		return err
	}
	src, err := trigSource(drv.trig.Source)
	if err != nil {
		return err
	}
	pol, err := trigPolarity(drv.trig.Polarity)
	if err != nil {
		return err
	}

	rc := C.WD_AI_Trig_Config(drv.card, mode, src, pol, 0, 0.0, 0, 0, 0, 1)
	if rc != 0 {
		return fmt.Errorf("daq: could not configure trigger (rc=%d)", rc)
	}
	return nil
}

func trigMode(v uint16) (C.U16, error) {
	switch v {
	case TrigModePost:
		return C.WD_AI_TRGMOD_POST, nil
	case TrigModeDelay:
		return C.WD_AI_TRGMOD_DELAY, nil
	case TrigModePre:
		return C.WD_AI_TRGMOD_PRE, nil
	case TrigModeMiddle:
		return C.WD_AI_TRGMOD_MIDL, nil
	}
	return 0, fmt.Errorf("daq: invalid trigger mode %d", v)
}

func trigSource(v uint16) (C.U16, error) {
	switch v {
	case TrigSrcSoftware:
		return C.WD_AI_TRGSRC_SOFT, nil
	case TrigSrcAnalog:
		return C.WD_AI_TRGSRC_ANA, nil
	case TrigSrcExtDigital:
		return C.WD_AI_TRGSRC_ExtD, nil
	}
	return 0, fmt.Errorf("daq: invalid trigger source %d", v)
}

func trigPolarity(v uint16) (C.U16, error) {
	switch v {
	case TrigNegative:
		return C.WD_AI_TrgNegative, nil
	case TrigPositive:
		return C.WD_AI_TrgPositive, nil
	}
	return 0, fmt.Errorf("daq: invalid trigger polarity %d", v)
}

func (drv *wdDriver) SetupDoubleBuffer(a, b []uint16) error {
	if len(a) != len(b) || len(a) == 0 {
		return fmt.Errorf("daq: mismatched double-buffer halves (%d != %d)", len(a), len(b))
	}

	err := drv.trigConfig()
	if err != nil {
		return err
	}

	rc := C.WD_AI_ContBufferReset(drv.card)
	if rc != 0 {
		return fmt.Errorf("daq: could not reset DMA buffers (rc=%d)", rc)
	}

	rc = C.WD_AI_AsyncDblBufferMode(drv.card, 1)
	if rc != 0 {
		return fmt.Errorf("daq: could not enable double-buffered mode (rc=%d)", rc)
	}

	drv.bufA = a
	drv.bufB = b
	err = drv.alloc(len(a))
	if err != nil {
		return err
	}

	rc = C.WD_AI_ContBufferSetup(drv.card, drv.cbufA, C.U32(len(a)), &drv.idA)
	if rc != 0 {
		return fmt.Errorf("daq: could not register DMA buffer A (rc=%d)", rc)
	}
	rc = C.WD_AI_ContBufferSetup(drv.card, drv.cbufB, C.U32(len(b)), &drv.idB)
	if rc != 0 {
		return fmt.Errorf("daq: could not register DMA buffer B (rc=%d)", rc)
	}

	return nil
}

// alloc sizes the C-side DMA targets for n samples per half.
func (drv *wdDriver) alloc(n int) error {
	if drv.clen == n {
		return nil
	}
	drv.release()

	sz := C.size_t(n) * C.size_t(unsafe.Sizeof(uint16(0)))
	drv.cbufA = C.malloc(sz)
	drv.cbufB = C.malloc(sz)
	if drv.cbufA == nil || drv.cbufB == nil {
		drv.release()
		return fmt.Errorf("daq: could not allocate DMA buffers (%d samples)", n)
	}
	drv.clen = n
	return nil
}

func (drv *wdDriver) release() {
	if drv.cbufA != nil {
		C.free(drv.cbufA)
		drv.cbufA = nil
	}
	if drv.cbufB != nil {
		C.free(drv.cbufB)
		drv.cbufB = nil
	}
	drv.clen = 0
}

func (drv *wdDriver) StartScan(nchan int, samplesPerHalf, scanIntrv, sampIntrv uint32) error {
	drv.half = 0
	rc := C.WD_AI_ContScanChannels(
		drv.card, C.U16(nchan-1), drv.idB,
		C.U32(samplesPerHalf), C.U32(scanIntrv), C.U32(sampIntrv),
		C.ASYNCH_OP,
	)
	if rc != 0 {
		return fmt.Errorf("daq: could not start scan (rc=%d)", rc)
	}
	return nil
}

func (drv *wdDriver) TriggerFired() (bool, error) {
	var status C.U32
	rc := C.WD_AI_ContStatus(drv.card, &status)
	if rc != 0 {
		return false, fmt.Errorf("daq: could not read scan status (rc=%d)", rc)
	}
	return status&0x4 != 0, nil
}

func (drv *wdDriver) HalfReady() (ready, stopped bool, err error) {
	var rdy, stp C.BOOLEAN
	rc := C.WD_AI_AsyncDblBufferHalfReady(drv.card, &rdy, &stp)
	if rc != 0 {
		return false, false, fmt.Errorf("daq: could not poll half-buffer (rc=%d)", rc)
	}
	if rdy != 0 {
		src, dst := drv.cbufA, drv.bufA
		if drv.half == 1 {
			src, dst = drv.cbufB, drv.bufB
		}
		C.memcpy(
			unsafe.Pointer(&dst[0]),
			src,
			C.size_t(len(dst)*int(unsafe.Sizeof(dst[0]))),
		)
		drv.half = 1 - drv.half
	}
	return rdy != 0, stp != 0, nil
}

func (drv *wdDriver) HalfHandled() error {
	rc := C.WD_AI_AsyncDblBufferHandled(drv.card)
	if rc != 0 {
		return fmt.Errorf("daq: could not release half-buffer (rc=%d)", rc)
	}
	return nil
}

func (drv *wdDriver) ClearScan() (startPos, count uint32, err error) {
	var pos, cnt C.U32
	rc := C.WD_AI_AsyncClear(drv.card, &pos, &cnt)
	if rc != 0 {
		return 0, 0, fmt.Errorf("daq: could not clear scan (rc=%d)", rc)
	}
	return uint32(pos), uint32(cnt), nil
}

func (drv *wdDriver) Close() error {
	if drv.card < 0 {
		return nil
	}
	_, _, _ = drv.ClearScan()
	drv.release()
	rc := C.WD_Release_Card(drv.card)
	drv.card = -1
	if rc != 0 {
		return fmt.Errorf("daq: could not release card (rc=%d)", rc)
	}
	return nil
}
