// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package envmon monitors the environment of the digitizer chassis
// with a Si7021-class temperature and relative-humidity sensor on
// SMBus.
package envmon // import "github.com/rhamaa/RadarLPDP/envmon"

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/go-daq/smbus"
)

const (
	DefaultBus  = 1    // i2c-1 on the acquisition host
	DefaultAddr = 0x40 // sensor slave address

	cmdMeasureRH   = 0xe5 // measure relative humidity, hold master mode
	cmdMeasureTemp = 0xe3 // measure temperature, hold master mode
	cmdReset       = 0xfe
)

type bus interface {
	io.Reader
	io.Writer
	Close() error
}

// Sensor reads temperature and relative humidity from a Si7021-class
// sensor.
type Sensor struct {
	conn bus
	addr uint8
}

// Open connects to the sensor at the given slave address on i2c bus
// busID and resets it.
func Open(busID int, addr uint8) (*Sensor, error) {
	conn, err := smbus.Open(busID, addr)
	if err != nil {
		return nil, fmt.Errorf("envmon: could not open i2c bus %d: %w", busID, err)
	}

	err = conn.SetAddr(addr)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("envmon: could not select sensor 0x%x: %w", addr, err)
	}

	dev := newSensor(conn, addr)
	_, err = dev.conn.Write([]byte{cmdReset})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("envmon: could not reset sensor 0x%x: %w", addr, err)
	}
	time.Sleep(15 * time.Millisecond) // datasheet power-up time after reset

	return dev, nil
}

func newSensor(conn bus, addr uint8) *Sensor {
	return &Sensor{conn: conn, addr: addr}
}

// Temperature returns the sensor temperature, in degrees Celsius.
func (dev *Sensor) Temperature() (float64, error) {
	code, err := dev.measure(cmdMeasureTemp)
	if err != nil {
		return 0, err
	}
	return 175.72*float64(code)/65536 - 46.85, nil
}

// Humidity returns the relative humidity, in percent.
func (dev *Sensor) Humidity() (float64, error) {
	code, err := dev.measure(cmdMeasureRH)
	if err != nil {
		return 0, err
	}
	rh := 125*float64(code)/65536 - 6
	// measurements slightly outside the physical range are valid
	// per the datasheet.
	switch {
	case rh < 0:
		rh = 0
	case rh > 100:
		rh = 100
	}
	return rh, nil
}

func (dev *Sensor) measure(cmd uint8) (uint16, error) {
	_, err := dev.conn.Write([]byte{cmd})
	if err != nil {
		return 0, fmt.Errorf("envmon: could not send command 0x%x to sensor 0x%x: %w",
			cmd, dev.addr, err,
		)
	}

	var buf [3]byte
	_, err = io.ReadFull(dev.conn, buf[:])
	if err != nil {
		return 0, fmt.Errorf("envmon: could not read measurement 0x%x from sensor 0x%x: %w",
			cmd, dev.addr, err,
		)
	}

	if chk := crc8(buf[:2]); chk != buf[2] {
		return 0, fmt.Errorf("envmon: invalid CRC for measurement 0x%x: got=0x%02x, want=0x%02x",
			cmd, buf[2], chk,
		)
	}

	// the two low bits carry status flags, not sample data.
	return binary.BigEndian.Uint16(buf[:2]) &^ 0x3, nil
}

// Close releases the i2c bus.
func (dev *Sensor) Close() error {
	if dev.conn == nil {
		return nil
	}
	err := dev.conn.Close()
	dev.conn = nil
	if err != nil {
		return fmt.Errorf("envmon: could not close i2c bus: %w", err)
	}
	return nil
}

// crc8 computes the checksum the sensor appends to each measurement,
// with the x^8+x^5+x^4+1 polynomial over the two data bytes.
func crc8(data []byte) uint8 {
	var crc uint8
	for _, v := range data {
		crc ^= v
		for i := 0; i < 8; i++ {
			switch {
			case crc&0x80 != 0:
				crc = crc<<1 ^ 0x31
			default:
				crc <<= 1
			}
		}
	}
	return crc
}
