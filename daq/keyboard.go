// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// watchKeys puts the terminal attached to f into raw, no-echo mode
// and requests an acquisition stop on ESC or 'q' by sending on the
// stop channel. It returns a function restoring the terminal state.
//
// watchKeys fails when f is not a terminal.
func watchKeys(f *os.File, stop chan<- os.Signal) (func(), error) {
	fd := int(f.Fd())
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("daq: could not read terminal attributes: %w", err)
	}

	raw := *old
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	err = unix.IoctlSetTermios(fd, unix.TCSETS, &raw)
	if err != nil {
		return nil, fmt.Errorf("daq: could not set terminal attributes: %w", err)
	}

	go func() {
		var buf [1]byte
		for {
			_, err := f.Read(buf[:])
			if err != nil {
				return
			}
			switch buf[0] {
			case 0x1b, 'q': // ESC
				stop <- os.Interrupt
				return
			}
		}
	}()

	restore := func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, old)
	}
	return restore, nil
}
