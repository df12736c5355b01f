// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package envmon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"
)

// Status is one sample of the chassis environment.
type Status struct {
	Temp float64   `json:"temp"` // degrees Celsius
	RH   float64   `json:"rh"`   // percent
	Time time.Time `json:"time"` // sample time, UTC
}

type sensor interface {
	Temperature() (float64, error)
	Humidity() (float64, error)
	Close() error
}

var (
	_ sensor = (*Sensor)(nil)
)

type server struct {
	ctl net.Listener
	msg *log.Logger

	dev sensor
	now func() time.Time
}

// Serve runs an environment status server on the provided address,
// reading from the sensor at slave address saddr on i2c bus busID.
func Serve(addr string, busID int, saddr uint8) error {
	dev, err := Open(busID, saddr)
	if err != nil {
		return fmt.Errorf("envmon: could not open sensor: %w", err)
	}

	srv, err := newServer(addr, dev)
	if err != nil {
		_ = dev.Close()
		return fmt.Errorf("envmon: could not create status server: %w", err)
	}
	return srv.serve()
}

func newServer(addr string, dev sensor) (*server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("envmon: could not listen on %q: %w", addr, err)
	}

	srv := &server{
		ctl: ctl,
		msg: log.New(os.Stdout, "envmon: ", 0),
		dev: dev,
		now: time.Now,
	}
	return srv, nil
}

func (srv *server) serve() error {
	defer srv.close()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			return fmt.Errorf("envmon: could not accept connection: %w", err)
		}
		srv.handle(conn)
	}
}

func (srv *server) handle(conn net.Conn) {
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

loop:
	for {
		var req struct {
			Name string `json:"name"`
		}

		err := json.NewDecoder(conn).Decode(&req)
		if err != nil {
			srv.msg.Printf("could not decode status request: %+v", err)
			srv.reply(conn, Status{}, err)
			if errors.Is(err, io.EOF) {
				break loop
			}
			continue
		}

		switch strings.ToLower(req.Name) {
		case "status":
			sta, err := srv.status()
			if err != nil {
				srv.msg.Printf("could not sample environment: %+v", err)
			}
			srv.reply(conn, sta, err)

		default:
			err = fmt.Errorf("envmon: unknown command %q", req.Name)
			srv.msg.Printf("%+v", err)
			srv.reply(conn, Status{}, err)
		}
	}
}

func (srv *server) status() (Status, error) {
	temp, err := srv.dev.Temperature()
	if err != nil {
		return Status{}, fmt.Errorf("envmon: could not read temperature: %w", err)
	}

	rh, err := srv.dev.Humidity()
	if err != nil {
		return Status{}, fmt.Errorf("envmon: could not read humidity: %w", err)
	}

	return Status{Temp: temp, RH: rh, Time: srv.now().UTC()}, nil
}

func (srv *server) reply(conn net.Conn, sta Status, err error) {
	rep := struct {
		Msg string `json:"msg"`
		Status
	}{Msg: "ok", Status: sta}
	if err != nil {
		rep.Msg = fmt.Sprintf("%+v", err)
	}
	_ = json.NewEncoder(conn).Encode(rep)
}

func (srv *server) close() {
	_ = srv.ctl.Close()
	_ = srv.dev.Close()
}
