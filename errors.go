// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import "fmt"

// TimeoutError is returned when the device does not signal a conversion, or
// a buffered acquisition does not complete, within the configured wait
// budget. The driver never retries on its own; after a timeout the session
// is drained and the next call starts from a clean state.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("cs1237: %s: sensor timeout", e.Op)
}

// InvalidParameterError is returned when a gain, rate or channel value is
// outside the device's enumerated domain. It is raised before any bus
// traffic, so the device configuration is left untouched.
type InvalidParameterError struct {
	Param string
	Value int
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("cs1237: invalid %s %d", e.Param, e.Value)
}

// ProtocolError is returned when a configuration byte read back from the
// device does not decode to known gain and rate codes, which indicates the
// host and the device have lost frame synchronization.
type ProtocolError struct {
	Config byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cs1237: undecodable configuration byte %#02x", e.Config)
}
