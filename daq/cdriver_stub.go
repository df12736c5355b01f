// Copyright 2023 The RadarLPDP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !wddask

package daq

import "fmt"

// newWDDriver needs the vendor WD-DASK library, linked in with the
// wddask build tag. Without it, only replay and injected drivers are
// available.
func newWDDriver(cardnum uint16) (driver, error) {
	return nil, fmt.Errorf("daq: WD-DASK support not built in (build with -tags wddask)")
}
