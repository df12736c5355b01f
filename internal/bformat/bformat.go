// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bformat describes and handles data in the batch log format.
//
// A batch log file starts with a plain-text header block terminated by
// a blank line, followed by the raw concatenation of all capture event
// payloads in acquisition order:
//
//	TEST_DATE:2023-01-17 14:30:27
//	CODE_VERSION:Code trigger V.3
//	AUTHOR:Raihan Muhammad
//	BATCH_EVENT_COUNT:2
//	SAVED_CHANNELS:CH1,CH3
//	INTERLEAVE_ORDER:CH1,CH3
//	EVENT_BYTES:32768 65536
//
//	<payload 0><payload 1>
//
// The EVENT_BYTES record carries the byte length of each payload so
// that event boundaries can be recovered from the file alone.
package bformat // import "github.com/rhamaa/RadarLPDP/internal/bformat"

import (
	"fmt"
	"time"
)

const (
	timeLayout = "2006-01-02 15:04:05"

	fldDate     = "TEST_DATE"
	fldVersion  = "CODE_VERSION"
	fldAuthor   = "AUTHOR"
	fldEvents   = "BATCH_EVENT_COUNT"
	fldChannels = "SAVED_CHANNELS"
	fldOrder    = "INTERLEAVE_ORDER"
	fldSizes    = "EVENT_BYTES"
)

// Header describes the plain-text block at the head of a batch log file.
type Header struct {
	Date       time.Time // batch flush timestamp, 1s resolution
	Version    string    // writer code version string
	Author     string    // operator identifier
	Events     int       // number of capture events in the file
	Channels   []int     // selected hardware channels, in interleave order
	EventBytes []int64   // per-event payload length, in bytes
}

// Event is one capture event read back from a batch log file.
type Event struct {
	ID   int    // sequence position within the batch
	Data []byte // selected-channel samples, channel-major interleaved
}

// Filename returns the canonical batch log file name for a batch of n
// events flushed at time t, e.g. "batch_log_20230117_143027_1000_evt.bin".
func Filename(t time.Time, n int) string {
	return fmt.Sprintf("batch_log_%s_%04d_evt.bin", t.Format("20060102_150405"), n)
}
