// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package envmon

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
)

type fakeBus struct {
	cmds []uint8
	last uint8
	resp map[uint8][][]byte

	werr error
	rerr error

	closed bool
}

func (bus *fakeBus) Write(p []byte) (int, error) {
	if bus.werr != nil {
		return 0, bus.werr
	}
	bus.last = p[len(p)-1]
	bus.cmds = append(bus.cmds, bus.last)
	return len(p), nil
}

func (bus *fakeBus) Read(p []byte) (int, error) {
	if bus.rerr != nil {
		return 0, bus.rerr
	}
	rs := bus.resp[bus.last]
	if len(rs) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, rs[0])
	bus.resp[bus.last] = rs[1:]
	return n, nil
}

func (bus *fakeBus) Close() error {
	bus.closed = true
	return nil
}

func TestSensor(t *testing.T) {
	conn := &fakeBus{resp: map[uint8][][]byte{
		cmdMeasureTemp: {{0x66, 0x44, 0xf6}},
		cmdMeasureRH:   {{0x7e, 0x82, 0x4e}},
	}}
	dev := newSensor(conn, DefaultAddr)

	temp, err := dev.Temperature()
	if err != nil {
		t.Fatalf("could not read temperature: %+v", err)
	}
	if got, want := temp, 175.72*float64(0x6644)/65536-46.85; got != want {
		t.Fatalf("invalid temperature: got=%v, want=%v", got, want)
	}

	rh, err := dev.Humidity()
	if err != nil {
		t.Fatalf("could not read humidity: %+v", err)
	}
	// the sensor flags the humidity code with its low bits. they do
	// not carry sample data.
	if got, want := rh, 125*float64(0x7e80)/65536-6; got != want {
		t.Fatalf("invalid humidity: got=%v, want=%v", got, want)
	}

	if got, want := conn.cmds, []uint8{cmdMeasureTemp, cmdMeasureRH}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid command sequence: got=%v, want=%v", got, want)
	}

	err = dev.Close()
	if err != nil {
		t.Fatalf("could not close sensor: %+v", err)
	}
	if !conn.closed {
		t.Fatalf("i2c bus not released")
	}
	err = dev.Close()
	if err != nil {
		t.Fatalf("could not re-close sensor: %+v", err)
	}
}

func TestSensorClamp(t *testing.T) {
	conn := &fakeBus{resp: map[uint8][][]byte{
		cmdMeasureRH: {
			{0xff, 0xf8, 0xba},
			{0x00, 0x10, 0x43},
		},
	}}
	dev := newSensor(conn, DefaultAddr)
	defer dev.Close()

	for _, want := range []float64{100, 0} {
		rh, err := dev.Humidity()
		if err != nil {
			t.Fatalf("could not read humidity: %+v", err)
		}
		if rh != want {
			t.Fatalf("invalid humidity: got=%v, want=%v", rh, want)
		}
	}
}

func TestSensorCRC(t *testing.T) {
	conn := &fakeBus{resp: map[uint8][][]byte{
		cmdMeasureTemp: {{0x66, 0x44, 0x00}},
	}}
	dev := newSensor(conn, DefaultAddr)
	defer dev.Close()

	_, err := dev.Temperature()
	if err == nil {
		t.Fatalf("expected an error")
	}
	want := "envmon: invalid CRC for measurement 0xe3: got=0x00, want=0xf6"
	if got := err.Error(); got != want {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}
}

func TestSensorErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		conn *fakeBus
		want string
	}{
		{
			name: "write-error",
			conn: &fakeBus{werr: fmt.Errorf("boom")},
			want: "could not send command",
		},
		{
			name: "read-error",
			conn: &fakeBus{rerr: fmt.Errorf("boom")},
			want: "could not read measurement",
		},
		{
			name: "short-read",
			conn: &fakeBus{resp: map[uint8][][]byte{
				cmdMeasureTemp: {{0x66}},
			}},
			want: "could not read measurement",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev := newSensor(tc.conn, DefaultAddr)
			defer dev.Close()

			_, err := dev.Temperature()
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("invalid error: %+v", err)
			}
		})
	}
}

func TestCRC8(t *testing.T) {
	// reference checksums from the sensor datasheet polynomial.
	for _, tc := range []struct {
		data []byte
		want uint8
	}{
		{data: []byte{0x66, 0x44}, want: 0xf6},
		{data: []byte{0x7e, 0x82}, want: 0x4e},
		{data: []byte{0x00, 0x00}, want: 0x00},
		{data: []byte{0xff, 0xf8}, want: 0xba},
	} {
		if got := crc8(tc.data); got != tc.want {
			t.Errorf("crc8(%#v): got=0x%02x, want=0x%02x", tc.data, got, tc.want)
		}
	}
}
