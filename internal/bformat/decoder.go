// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bformat

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Decoder reads (and validates) batch data from an underlying data
// source. The header block is decoded on the first call to Header or
// Decode, then events are read back in order.
type Decoder struct {
	r   *bufio.Reader
	hdr Header
	ok  bool // header decoded
	i   int  // next event index
	err error
}

// NewDecoder creates a decoder that reads and validates batch data
// from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Header returns the decoded batch header, reading it from the
// underlying stream if needed.
func (dec *Decoder) Header() (Header, error) {
	if !dec.ok && dec.err == nil {
		dec.decodeHeader()
	}
	return dec.hdr, dec.err
}

// Decode reads the next event payload into evt, reusing its Data
// buffer when large enough. Decode returns io.EOF once all events
// advertised by the header have been read.
func (dec *Decoder) Decode(evt *Event) error {
	if _, err := dec.Header(); err != nil {
		return err
	}
	if dec.i >= dec.hdr.Events {
		return io.EOF
	}

	n := int(dec.hdr.EventBytes[dec.i])
	if cap(evt.Data) < n {
		evt.Data = make([]byte, n)
	} else {
		evt.Data = evt.Data[:n]
	}

	_, err := io.ReadFull(dec.r, evt.Data)
	if err != nil {
		if xerrors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		dec.err = xerrors.Errorf("bformat: could not read event %d payload: %w", dec.i, err)
		return dec.err
	}

	evt.ID = dec.i
	dec.i++
	return nil
}

func (dec *Decoder) decodeHeader() {
	var (
		date    = dec.line(fldDate)
		version = dec.line(fldVersion)
		author  = dec.line(fldAuthor)
		events  = dec.line(fldEvents)
		chans   = dec.line(fldChannels)
		order   = dec.line(fldOrder)
		sizes   = dec.line(fldSizes)
	)
	dec.blank()
	if dec.err != nil {
		return
	}

	ts, err := time.ParseInLocation(timeLayout, date, time.Local)
	if err != nil {
		dec.err = xerrors.Errorf("bformat: invalid %s value %q", fldDate, date)
		return
	}

	n, err := strconv.Atoi(events)
	if err != nil || n < 0 {
		dec.err = xerrors.Errorf("bformat: invalid %s value %q", fldEvents, events)
		return
	}

	if chans != order {
		dec.err = xerrors.Errorf(
			"bformat: inconsistent %s/%s records (%q != %q)",
			fldChannels, fldOrder, chans, order,
		)
		return
	}

	channels, err := parseChans(chans)
	if err != nil {
		dec.err = err
		return
	}

	lens, err := parseSizes(sizes)
	if err != nil {
		dec.err = err
		return
	}
	if len(lens) != n {
		dec.err = xerrors.Errorf(
			"bformat: invalid %s count (got=%d, want=%d)",
			fldSizes, len(lens), n,
		)
		return
	}

	dec.hdr = Header{
		Date:       ts,
		Version:    version,
		Author:     author,
		Events:     n,
		Channels:   channels,
		EventBytes: lens,
	}
	dec.ok = true
}

// line reads one header line and strips its "FIELD:" prefix.
func (dec *Decoder) line(field string) string {
	if dec.err != nil {
		return ""
	}
	s, err := dec.r.ReadString('\n')
	if err != nil {
		if xerrors.Is(err, io.EOF) && s != "" {
			err = io.ErrUnexpectedEOF
		}
		dec.err = xerrors.Errorf("bformat: could not read %s line: %w", field, err)
		return ""
	}
	s = strings.TrimSuffix(s, "\n")
	if !strings.HasPrefix(s, field+":") {
		dec.err = xerrors.Errorf("bformat: invalid %s line %q", field, s)
		return ""
	}
	return strings.TrimPrefix(s, field+":")
}

// blank consumes the empty line terminating the header block.
func (dec *Decoder) blank() {
	if dec.err != nil {
		return
	}
	s, err := dec.r.ReadString('\n')
	if err != nil {
		dec.err = xerrors.Errorf("bformat: could not read header terminator: %w", err)
		return
	}
	if s != "\n" {
		dec.err = xerrors.Errorf("bformat: invalid header terminator %q", s)
	}
}

func parseChans(s string) ([]int, error) {
	var chans []int
	for _, tok := range strings.Split(s, ",") {
		if !strings.HasPrefix(tok, "CH") {
			return nil, xerrors.Errorf("bformat: invalid channel %q", tok)
		}
		ch, err := strconv.Atoi(strings.TrimPrefix(tok, "CH"))
		if err != nil || ch < 0 {
			return nil, xerrors.Errorf("bformat: invalid channel %q", tok)
		}
		chans = append(chans, ch)
	}
	return chans, nil
}

func parseSizes(s string) ([]int64, error) {
	var sizes []int64
	for _, tok := range strings.Fields(s) {
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil || n < 0 {
			return nil, xerrors.Errorf("bformat: invalid %s entry %q", fldSizes, tok)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

// Validate decodes a whole batch stream from r, checking the header
// grammar, every event payload length and the absence of trailing
// bytes.
func Validate(r io.Reader) (Header, error) {
	dec := NewDecoder(r)
	hdr, err := dec.Header()
	if err != nil {
		return hdr, err
	}

	var evt Event
	for i := 0; i < hdr.Events; i++ {
		err := dec.Decode(&evt)
		if err != nil {
			return hdr, err
		}
	}

	var tmp [1]byte
	switch _, err := dec.r.Read(tmp[:]); {
	case err == nil:
		return hdr, xerrors.Errorf("bformat: trailing data after %d events", hdr.Events)
	case xerrors.Is(err, io.EOF):
		return hdr, nil
	default:
		return hdr, xerrors.Errorf("bformat: could not probe trailing data: %w", err)
	}
}
