// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rhamaa/RadarLPDP/internal/bformat"
)

// spool accumulates completed trigger captures in memory and flushes
// them to an on-disk batch file when the configured capacity is
// reached, or when the acquisition stops. Events survive a failed
// flush: the spool keeps them and retries at the next flush point.
type spool struct {
	msg      *log.Logger
	dir      string
	capacity int

	version string
	author  string
	chans   []int

	evts [][]byte
	now  func() time.Time

	met *metrics
}

func newSpool(msg *log.Logger, cfg *config, met *metrics) *spool {
	return &spool{
		msg:      msg,
		dir:      cfg.logDir,
		capacity: cfg.capacity,
		version:  cfg.version,
		author:   cfg.author,
		chans:    cfg.chans,
		now:      time.Now,
		met:      met,
	}
}

// addEvent takes ownership of the capture payload and flushes the
// spool if it has reached capacity.
func (sp *spool) addEvent(p []byte) error {
	sp.evts = append(sp.evts, p)
	sp.met.spooled.Set(float64(len(sp.evts)))
	if len(sp.evts) < sp.capacity {
		return nil
	}
	return sp.flush()
}

// flush writes all spooled events to a new batch file. On failure the
// partial file is removed and the events are retained for a later
// flush.
func (sp *spool) flush() error {
	if len(sp.evts) == 0 {
		return nil
	}

	fname := filepath.Join(sp.dir, bformat.Filename(sp.now(), len(sp.evts)))
	err := sp.write(fname)
	if err != nil {
		sp.met.flushErrs.Inc()
		_ = os.Remove(fname)
		return fmt.Errorf("daq: could not flush %d events to %q: %w", len(sp.evts), fname, err)
	}

	sp.msg.Printf("flushed %d events to %q", len(sp.evts), fname)
	sp.met.flushes.Inc()
	sp.evts = sp.evts[:0]
	sp.met.spooled.Set(0)
	return nil
}

func (sp *spool) write(fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create batch file: %w", err)
	}
	defer f.Close()

	hdr := bformat.Header{
		Date:     sp.now(),
		Version:  sp.version,
		Author:   sp.author,
		Channels: sp.chans,
	}
	err = bformat.NewEncoder(f).Encode(&hdr, sp.evts)
	if err != nil {
		return fmt.Errorf("could not encode batch file: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close batch file: %w", err)
	}
	return nil
}
