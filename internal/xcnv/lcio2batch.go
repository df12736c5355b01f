// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/rhamaa/RadarLPDP/internal/bformat"
	"go-hep.org/x/hep/lcio"
)

// LCIO2Batch converts the LCIO stream read by r back into a batch log
// stream. The whole input is decoded first as the batch header carries
// the byte length of every event.
func LCIO2Batch(w io.Writer, r *lcio.Reader, freq int, msg *log.Logger) error {
	var (
		hdr  bformat.Header
		evts [][]byte
		i    = 0
	)

	for r.Next() {
		if i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}
		evt := r.Event()

		if i == 0 {
			rhdr := r.RunHeader()
			hdr = bformat.Header{
				Date: time.Unix(0, evt.TimeStamp),
			}
			if v := rhdr.Params.Strings["Version"]; len(v) > 0 {
				hdr.Version = v[0]
			}
			if v := rhdr.Params.Strings["Author"]; len(v) > 0 {
				hdr.Author = v[0]
			}
			for _, ch := range rhdr.Params.Ints["Channels"] {
				hdr.Channels = append(hdr.Channels, int(ch))
			}
		}

		raw := evt.Get("ADC_RAW").(*lcio.GenericObject).Data[0].I32s
		data, err := samplesFromI32s(raw)
		if err != nil {
			return fmt.Errorf("could not convert event %d: %w", i, err)
		}
		evts = append(evts, data)
		i++
	}

	err := r.Err()
	if err != nil && err != io.EOF {
		return fmt.Errorf("could not read LCIO stream: %w", err)
	}

	if i == 0 {
		return fmt.Errorf("xcnv: empty LCIO stream")
	}

	err = bformat.NewEncoder(w).Encode(&hdr, evts)
	if err != nil {
		return fmt.Errorf("could not encode batch stream: %w", err)
	}

	return nil
}
