// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bformat

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Encoder writes batch data to an output stream.
type Encoder struct {
	w   io.Writer
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the header block described by hdr, followed by the
// concatenation of all event payloads in order. The BATCH_EVENT_COUNT
// and EVENT_BYTES records are derived from evts, not from hdr.
func (enc *Encoder) Encode(hdr *Header, evts [][]byte) error {
	if hdr == nil {
		return nil
	}
	if len(hdr.Channels) == 0 {
		return fmt.Errorf("bformat: empty channel list")
	}
	if strings.ContainsAny(hdr.Version+hdr.Author, "\n") {
		return fmt.Errorf("bformat: header field contains a newline")
	}

	chans := chanList(hdr.Channels)
	enc.printf("%s:%s\n", fldDate, hdr.Date.Format(timeLayout))
	enc.printf("%s:%s\n", fldVersion, hdr.Version)
	enc.printf("%s:%s\n", fldAuthor, hdr.Author)
	enc.printf("%s:%d\n", fldEvents, len(evts))
	enc.printf("%s:%s\n", fldChannels, chans)
	enc.printf("%s:%s\n", fldOrder, chans)
	enc.printf("%s:%s\n", fldSizes, sizeList(evts))
	enc.printf("\n")
	if enc.err != nil {
		return fmt.Errorf("bformat: could not write batch header: %w", enc.err)
	}

	for i, evt := range evts {
		enc.write(i, evt)
	}
	return enc.err
}

func (enc *Encoder) printf(format string, args ...interface{}) {
	if enc.err != nil {
		return
	}
	_, enc.err = fmt.Fprintf(enc.w, format, args...)
}

func (enc *Encoder) write(i int, p []byte) {
	if enc.err != nil {
		return
	}
	_, err := enc.w.Write(p)
	if err != nil {
		enc.err = fmt.Errorf("bformat: could not write event %d payload: %w", i, err)
	}
}

func chanList(chans []int) string {
	o := new(strings.Builder)
	for i, ch := range chans {
		if i > 0 {
			o.WriteByte(',')
		}
		fmt.Fprintf(o, "CH%d", ch)
	}
	return o.String()
}

func sizeList(evts [][]byte) string {
	o := new(strings.Builder)
	for i, evt := range evts {
		if i > 0 {
			o.WriteByte(' ')
		}
		o.WriteString(strconv.Itoa(len(evt)))
	}
	return o.String()
}
