// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import "fmt"

// selector extracts an ordered subset of channels from a raw
// interleaved half-buffer. The hardware always scans hw channels per
// sample tick; the selector keeps the configured ones, in the
// configured order, as little-endian 16-bit samples.
type selector struct {
	hw    int   // channels per hardware scan
	chans []int // selected channels, output order
}

func newSelector(hw int, chans []int) (selector, error) {
	if hw <= 0 {
		return selector{}, fmt.Errorf("daq: invalid hardware channel count %d", hw)
	}
	if len(chans) == 0 {
		return selector{}, fmt.Errorf("daq: empty channel selection")
	}
	seen := make(map[int]bool, len(chans))
	for _, ch := range chans {
		if ch < 0 || ch >= hw {
			return selector{}, fmt.Errorf(
				"daq: invalid channel %d (hardware scans channels 0..%d)",
				ch, hw-1,
			)
		}
		if seen[ch] {
			return selector{}, fmt.Errorf("daq: duplicate channel %d", ch)
		}
		seen[ch] = true
	}
	return selector{hw: hw, chans: append([]int(nil), chans...)}, nil
}

// size returns the number of bytes extract appends for a half-buffer
// of n samples per channel.
func (sel selector) size(n int) int {
	return n * len(sel.chans) * 2
}

// extract appends the selected channels of the raw half-buffer src to
// dst and returns the extended slice. src length must be a multiple of
// the hardware scan width.
func (sel selector) extract(dst []byte, src []uint16) []byte {
	for i := 0; i < len(src); i += sel.hw {
		row := src[i : i+sel.hw]
		for _, ch := range sel.chans {
			v := row[ch]
			dst = append(dst, byte(v), byte(v>>8))
		}
	}
	return dst
}
