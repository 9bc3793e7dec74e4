// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// A trigger waits for the data-ready signal: the device holds the data line
// high while a conversion is in flight and pulls it low once the result can
// be clocked out.
type trigger interface {
	await(data gpio.PinIO, timeout time.Duration) error
}

// pollTrigger busy-polls the line level with short sleeps. A line that is
// already low counts as ready, so a conversion that completed between calls
// is not missed.
type pollTrigger struct {
	interval time.Duration
}

func (p pollTrigger) await(data gpio.PinIO, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if data.Read() == gpio.Low {
			return nil
		}
		if !time.Now().Before(deadline) {
			return &TimeoutError{Op: "read"}
		}
		sleepFn(p.interval)
	}
}

// edgeTrigger arms a falling-edge interrupt on the data line and blocks on
// it. The detection is disarmed again before any clock pulse so the bits
// shifted out afterwards cannot retrigger it.
type edgeTrigger struct{}

func (edgeTrigger) await(data gpio.PinIO, timeout time.Duration) error {
	if err := data.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return err
	}
	ready := data.Read() == gpio.Low // result already pending
	if !ready {
		ready = data.WaitForEdge(timeout)
	}
	if err := data.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return err
	}
	if !ready {
		return &TimeoutError{Op: "read"}
	}
	return nil
}
