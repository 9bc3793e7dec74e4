// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Command words, 7 bits each, sent MSB first.
const (
	cmdReadConfig  byte = 0x56
	cmdWriteConfig byte = 0x65
)

// wire drives the shared clock line and the bidirectional data line one bit
// at a time. The data line changes direction only at the frame boundaries
// marked below; a clock edge during a direction switch desynchronizes the
// device.
//
// Pin errors are sticky: the first failure latches and turns the remaining
// bit operations of the frame into no-ops, so frame sequences read linearly
// and the error is collected once at the end (takeErr).
type wire struct {
	clk   gpio.PinOut
	data  gpio.PinIO
	pulse time.Duration // minimum clock high/low time
	err   error
}

var sleepFn = time.Sleep

func (w *wire) clkOut(l gpio.Level) {
	if w.err != nil {
		return
	}
	w.err = w.clk.Out(l)
}

func (w *wire) dataOut(l gpio.Level) {
	if w.err != nil {
		return
	}
	w.err = w.data.Out(l)
}

func (w *wire) dataIn() {
	if w.err != nil {
		return
	}
	w.err = w.data.In(gpio.PullUp, gpio.NoEdge)
}

// takeErr returns the latched pin error and resets it, so a failed frame
// does not poison the next one.
func (w *wire) takeErr() error {
	err := w.err
	w.err = nil
	return err
}

// pulseIn clocks one bit out of the device. The rising edge shifts the next
// bit onto the data line; it is sampled after the falling edge.
func (w *wire) pulseIn() gpio.Level {
	w.clkOut(gpio.High)
	sleepFn(w.pulse)
	w.clkOut(gpio.Low)
	sleepFn(w.pulse)
	if w.err != nil {
		return gpio.Low
	}
	return w.data.Read()
}

// pulseOut clocks one bit into the device, driving the data line during the
// high phase.
func (w *wire) pulseOut(l gpio.Level) {
	w.clkOut(gpio.High)
	sleepFn(w.pulse)
	w.dataOut(l)
	w.clkOut(gpio.Low)
	sleepFn(w.pulse)
}

func bitOf(l gpio.Level) byte {
	if l == gpio.High {
		return 1
	}
	return 0
}

// readSample shifts in a 24-bit conversion result, MSB first (frame bits
// 1..24). The data-ready signal must have been seen first.
func (w *wire) readSample() int32 {
	var v int32
	for i := 0; i < 24; i++ {
		v = v<<1 | int32(bitOf(w.pulseIn()))
	}
	return v
}

// readStatus clocks the two configuration write-status bits (frame bits
// 25..26) and the mandatory gap bit 27.
func (w *wire) readStatus() byte {
	s := bitOf(w.pulseIn()) << 1
	s |= bitOf(w.pulseIn())
	w.pulseIn() // gap bit 27
	return s
}

// sendCommand reads the status bits, clocks the two cycles that announce a
// command (bits 28..29), takes over the data line and shifts out the 7-bit
// command word, then the mandatory gap bit 37. Every one of these cycles is
// required; dropping one desynchronizes all following frames.
func (w *wire) sendCommand(cmd byte) {
	w.readStatus()
	w.pulseIn() // bit 28
	w.pulseIn() // bit 29
	// The device releases the line after bit 29.
	w.dataOut(gpio.High)
	for i := 6; i >= 0; i-- {
		w.pulseOut(gpio.Level(cmd>>uint(i)&1 == 1))
	}
	w.pulseOut(gpio.High) // gap bit 37
}

// writeConfig sends the write command followed by the configuration byte
// (bits 38..45) and the mandatory trailing cycle 46, after which the data
// line is back under device control.
func (w *wire) writeConfig(value byte) {
	w.sendCommand(cmdWriteConfig)
	for i := 7; i >= 0; i-- {
		w.pulseOut(gpio.Level(value>>uint(i)&1 == 1))
	}
	w.dataIn()
	w.pulseIn() // trailing bit 46
}

// readConfig sends the read command, releases the data line and shifts the
// configuration byte back in, plus the trailing cycle 46.
func (w *wire) readConfig() byte {
	w.sendCommand(cmdReadConfig)
	w.dataIn()
	var v byte
	for i := 0; i < 8; i++ {
		v = v<<1 | bitOf(w.pulseIn())
	}
	w.pulseIn() // trailing bit 46
	return v
}

// signExtend24 reinterprets the low 24 bits as two's complement.
func signExtend24(raw int32) int32 {
	if raw >= 0x800000 {
		raw -= 0x1000000
	}
	return raw
}
