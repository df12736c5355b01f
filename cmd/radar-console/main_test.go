// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net"
	"reflect"
	"strconv"
	"testing"
)

func TestDispatch(t *testing.T) {
	cli := &console{addr: "localhost:0", srvAddr: "localhost:0"}
	defer cli.close()

	for _, tc := range []struct {
		line string
		quit bool
		err  string
	}{
		{line: "help"},
		{line: "?"},
		{line: "quit", quit: true},
		{line: "exit", quit: true},
		{line: "start", err: "usage: start RUN"},
		{line: "start 1 2", err: "usage: start RUN"},
		{line: "ship", err: "usage: ship FILE"},
		{line: "reboot", err: `unknown command "reboot" (try "help")`},
	} {
		t.Run(tc.line, func(t *testing.T) {
			quit, err := cli.dispatch(tc.line)
			if quit != tc.quit {
				t.Fatalf("invalid quit: got=%v, want=%v", quit, tc.quit)
			}
			switch {
			case tc.err == "" && err != nil:
				t.Fatalf("unexpected error: %+v", err)
			case tc.err != "" && err == nil:
				t.Fatalf("expected an error %q", tc.err)
			case tc.err != "" && err.Error() != tc.err:
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", err.Error(), tc.err)
			}
		})
	}
}

func TestSend(t *testing.T) {
	port, err := getTCPPort()
	if err != nil {
		t.Fatalf("could not find a tcp port: %+v", err)
	}
	addr := "localhost:" + port

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("could not listen on %q: %+v", addr, err)
	}
	defer ln.Close()

	var reqs []Request
	done := make(chan int)
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 2; i++ {
			var req Request
			err := json.NewDecoder(conn).Decode(&req)
			if err != nil {
				return
			}
			reqs = append(reqs, req)
			_ = json.NewEncoder(conn).Encode(Reply{Msg: "ok"})
		}
	}()

	cli := &console{addr: addr}
	defer cli.close()

	err = cli.send("configure", nil)
	if err != nil {
		t.Fatalf("could not send configure: %+v", err)
	}

	err = cli.send("start", []string{"42"})
	if err != nil {
		t.Fatalf("could not send start: %+v", err)
	}

	<-done
	want := []Request{
		{Name: "configure"},
		{Name: "start", Args: []string{"42"}},
	}
	if !reflect.DeepEqual(reqs, want) {
		t.Fatalf("invalid requests:\ngot= %#v\nwant=%#v", reqs, want)
	}
}

func TestShipRequest(t *testing.T) {
	req, err := shipRequest("evt.bin")
	if err != nil {
		t.Fatalf("could not encode ship request: %+v", err)
	}
	want := []byte{7, 0, 0, 0, 'e', 'v', 't', '.', 'b', 'i', 'n'}
	if !reflect.DeepEqual(req, want) {
		t.Fatalf("invalid ship request:\ngot= %v\nwant=%v", req, want)
	}

	_, err = shipRequest("")
	if err == nil {
		t.Fatalf("expected an error for an empty file path")
	}
}

func getTCPPort() (string, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return "", err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return "", err
	}
	defer l.Close()

	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port), nil
}
