// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command radar-console provides an interactive prompt to drive the
// DAQ services.
//
// Example:
//
//	$> radar-console
//	radar> configure
//	radar> start 42
//	radar> stop
//	radar> ship /data/log/batch_log_20230117_143027_1000_evt.bin
//	radar> quit
package main // import "github.com/rhamaa/RadarLPDP/cmd/radar-console"

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

func main() {
	var (
		addr    = flag.String("addr", "localhost:9999", "radar-svc [addr]:port to dial")
		srvAddr = flag.String("srv-addr", "localhost:8877", "radar-srv [addr]:port to dial")
	)

	log.SetPrefix("radar-console: ")
	log.SetFlags(0)

	flag.Parse()

	err := run(*addr, *srvAddr)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(addr, srvAddr string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)

	hist := historyFile()
	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = term.ReadHistory(f)
			f.Close()
		}
		defer func() {
			f, err := os.Create(hist)
			if err != nil {
				log.Printf("could not save history: %+v", err)
				return
			}
			defer f.Close()
			_, _ = term.WriteHistory(f)
		}()
	}

	cli := &console{addr: addr, srvAddr: srvAddr}
	defer cli.close()

loop:
	for {
		line, err := term.Prompt("radar> ")
		switch {
		case err == liner.ErrPromptAborted:
			continue
		case err == io.EOF:
			fmt.Println()
			break loop
		case err != nil:
			return fmt.Errorf("could not read prompt: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := cli.dispatch(line)
		if err != nil {
			log.Printf("%+v", err)
		}
		if quit {
			break loop
		}
	}
	return nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".radar-console.history")
}

// console drives the DAQ control service and the batch file server.
// The control connection is dialed lazily and redialed after a stop,
// as the service ends the control session with the run.
type console struct {
	addr    string // radar-svc control address
	srvAddr string // radar-srv files address

	conn net.Conn
}

type Request struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

type Reply struct {
	Msg string `json:"msg"`
}

func (cli *console) dispatch(line string) (quit bool, err error) {
	args := strings.Fields(line)
	switch args[0] {
	case "help", "?":
		fmt.Print(`commands:
 configure      configure the DAQ device
 start RUN      start an acquisition run
 stop           stop the current run
 status         display the DAQ device state
 ship FILE      ask the batch file server to fetch FILE
 help           display this help
 quit           quit radar-console
`)
		return false, nil

	case "quit", "exit":
		return true, nil

	case "configure":
		return false, cli.send("configure", nil)

	case "start":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: start RUN")
		}
		return false, cli.send("start", args[1:])

	case "stop":
		err := cli.send("stop", nil)
		// the control session ends with the run.
		cli.close()
		return false, err

	case "status":
		return false, cli.status()

	case "ship":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: ship FILE")
		}
		return false, cli.ship(args[1])

	default:
		return false, fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
}

func (cli *console) send(name string, args []string) error {
	rep, err := cli.request(name, args)
	if err != nil {
		return err
	}
	if rep.Msg != "ok" {
		return fmt.Errorf("%s failed: %s", name, rep.Msg)
	}
	log.Printf("%s... [done]", name)
	return nil
}

func (cli *console) status() error {
	rep, err := cli.request("status", nil)
	if err != nil {
		return err
	}
	log.Printf("status: %s", rep.Msg)
	return nil
}

func (cli *console) request(name string, args []string) (Reply, error) {
	if cli.conn == nil {
		conn, err := net.Dial("tcp", cli.addr)
		if err != nil {
			return Reply{}, fmt.Errorf("could not dial DAQ service %q: %w", cli.addr, err)
		}
		cli.conn = conn
	}

	err := json.NewEncoder(cli.conn).Encode(Request{Name: name, Args: args})
	if err != nil {
		cli.close()
		return Reply{}, fmt.Errorf("could not send %q command: %w", name, err)
	}

	var rep Reply
	err = json.NewDecoder(cli.conn).Decode(&rep)
	if err != nil {
		cli.close()
		return Reply{}, fmt.Errorf("could not read %q reply: %w", name, err)
	}
	return rep, nil
}

func (cli *console) ship(fname string) error {
	conn, err := net.Dial("tcp", cli.srvAddr)
	if err != nil {
		return fmt.Errorf("could not dial file server %q: %w", cli.srvAddr, err)
	}
	defer conn.Close()

	req, err := shipRequest(fname)
	if err != nil {
		return err
	}
	_, err = conn.Write(req)
	if err != nil {
		return fmt.Errorf("could not send file path %q: %w", fname, err)
	}

	ack := make([]byte, 3)
	_, err = io.ReadFull(conn, ack)
	if err != nil {
		return fmt.Errorf("could not read ACK: %w", err)
	}
	if string(ack) != "ACK" {
		return fmt.Errorf("invalid ACK %q", ack)
	}
	log.Printf("shipped %q", fname)
	return nil
}

// shipRequest encodes the file server request, a little-endian length
// prefix followed by the file path.
func shipRequest(fname string) ([]byte, error) {
	if fname == "" {
		return nil, fmt.Errorf("empty file path")
	}
	buf := make([]byte, 0, 4+len(fname))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(fname)))
	buf = append(buf, fname...)
	return buf, nil
}

func (cli *console) close() {
	if cli.conn == nil {
		return
	}
	_ = cli.conn.Close()
	cli.conn = nil
}
