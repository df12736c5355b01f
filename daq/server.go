// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
)

// server allows to control a DAQ device over a TCP control link.
type server struct {
	ctl net.Listener

	msg *log.Logger

	newDevice func(opts ...Option) (device, error)

	opts []Option
	dev  device
}

// Serve runs a DAQ control server on the provided TCP address. Each
// control connection owns one DAQ device for its lifetime.
func Serve(addr string, opts ...Option) error {
	srv, err := newServer(addr, opts...)
	if err != nil {
		return fmt.Errorf("could not create daq server: %w", err)
	}
	return srv.serve()
}

func newServer(addr string, opts ...Option) (*server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not create daq-ctl server on %q: %w", addr, err)
	}

	srv := &server{
		ctl: ctl,

		msg: log.New(os.Stdout, "daq-svc: ", 0),

		newDevice: func(opts ...Option) (device, error) {
			return NewDevice(opts...)
		},

		opts: opts,
	}
	return srv, nil
}

func (srv *server) serve() error {
	defer srv.close()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			return fmt.Errorf("could not accept connection: %w", err)
		}

		err = srv.handle(conn)
		if err != nil {
			srv.msg.Printf("could not run DAQ device: %+v", err)
			continue
		}
	}
}

func (srv *server) handle(conn net.Conn) error {
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	srv.dev = nil
	dev, err := srv.newDevice(srv.opts...)
	if err != nil {
		return fmt.Errorf("could not create DAQ device: %w", err)
	}
	defer dev.Close()
	srv.dev = dev

loop:
	for {
		var req struct {
			Name string           `json:"name"`
			Args *json.RawMessage `json:"args"`
		}

		err = json.NewDecoder(conn).Decode(&req)
		if err != nil {
			srv.msg.Printf("could not decode command request: %+v", err)
			srv.reply(conn, err)
			if errors.Is(err, io.EOF) {
				break loop
			}
			continue
		}
		srv.msg.Printf("received request: name=%q", req.Name)

		switch strings.ToLower(req.Name) {
		case "configure":
			err = dev.Configure()
			srv.reply(conn, err)
			if err != nil {
				srv.msg.Printf("could not configure DAQ device: %+v", err)
				continue
			}

		case "start":
			var args []string
			err = json.Unmarshal(*req.Args, &args)
			if err != nil {
				srv.msg.Printf("could not decode %q payload: %+v",
					req.Name, err,
				)
				srv.reply(conn, err)
				continue
			}
			if len(args) == 0 {
				err = fmt.Errorf("missing run-nbr for start-run")
				srv.msg.Printf("%+v", err)
				srv.reply(conn, err)
				continue
			}

			run, err := strconv.Atoi(args[0])
			if err != nil {
				srv.msg.Printf("could not decode run-nbr for start-run (args=%v): %+v",
					req.Args, err,
				)
				srv.reply(conn, err)
				continue
			}

			err = dev.Start(uint32(run))
			srv.reply(conn, err)
			if err != nil {
				srv.msg.Printf("could not start DAQ device: %+v", err)
				continue
			}

		case "stop":
			err = dev.Stop()
			srv.reply(conn, err)
			if err != nil {
				srv.msg.Printf("could not stop DAQ device: %+v", err)
				return fmt.Errorf("could not stop DAQ device: %w", err)
			}
			break loop

		case "status":
			srv.replyMsg(conn, dev.Status())

		default:
			srv.msg.Printf("unknown command name=%q, args=%q", req.Name, req.Args)
			err = fmt.Errorf("unknown command %q", req.Name)
			srv.reply(conn, err)
			continue
		}
	}

	return nil
}

func (srv *server) reply(conn net.Conn, err error) {
	msg := "ok"
	if err != nil {
		msg = fmt.Sprintf("%+v", err)
	}
	srv.replyMsg(conn, msg)
}

func (srv *server) replyMsg(conn net.Conn, msg string) {
	rep := struct {
		Msg string `json:"msg"`
	}{msg}

	_ = json.NewEncoder(conn).Encode(rep)
}

func (srv *server) close() {
	_ = srv.ctl.Close()
}
