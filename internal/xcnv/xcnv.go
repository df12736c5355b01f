// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert acquisition data between the
// batch log format and LCIO.
package xcnv // import "github.com/rhamaa/RadarLPDP/internal/xcnv"

import (
	"encoding/binary"
	"fmt"
)

// i32sFromSamples unpacks a capture payload of little-endian 16-bit
// samples, one sample per int32.
func i32sFromSamples(data []byte) ([]int32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("xcnv: truncated sample payload (%d bytes)", len(data))
	}
	sli := make([]int32, len(data)/2)
	for i := range sli {
		sli[i] = int32(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return sli, nil
}

// samplesFromI32s packs samples back into a capture payload.
func samplesFromI32s(raw []int32) ([]byte, error) {
	data := make([]byte, 0, 2*len(raw))
	for i, v := range raw {
		if v < 0 || v > 0xffff {
			return nil, fmt.Errorf("xcnv: sample %d (0x%x) overflows uint16", i, v)
		}
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
	}
	return data, nil
}
