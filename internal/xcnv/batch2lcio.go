// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/rhamaa/RadarLPDP/internal/bformat"
	"go-hep.org/x/hep/lcio"
)

// Batch2LCIO converts the batch log stream read by dec into LCIO, one
// event per capture.
func Batch2LCIO(w *lcio.Writer, dec *bformat.Decoder, run int32, msg *log.Logger) error {
	hdr, err := dec.Header()
	if err != nil {
		return fmt.Errorf("could not decode batch header: %w", err)
	}

	chans := make([]int32, len(hdr.Channels))
	for i, ch := range hdr.Channels {
		chans[i] = int32(ch)
	}

	err = w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  "RadarLPDP",
		Descr:     "",
		Params: lcio.Params{
			Ints: map[string][]int32{
				"Channels": chans,
			},
			Strings: map[string][]string{
				"Author":  {hdr.Author},
				"Version": {hdr.Version},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}

	raw := &lcio.GenericObject{
		Data: []lcio.GenericObjectData{
			{I32s: nil},
		},
	}

loop:
	for i := 0; ; i++ {
		if i%100 == 0 {
			msg.Printf("processing evt %d...", i)
		}
		var e bformat.Event
		err := dec.Decode(&e)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode batch event: %w", err)
		}

		sli, err := i32sFromSamples(e.Data)
		if err != nil {
			return fmt.Errorf("could not convert event %d: %w", e.ID, err)
		}

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(e.ID),
			TimeStamp:   hdr.Date.UnixNano(),
			Detector:    "RadarLPDP",
		}
		raw.Data[0].I32s = sli
		evt.Add("ADC_RAW", raw)

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write LCIO event %d: %w", e.ID, err)
		}
	}

	return nil
}
