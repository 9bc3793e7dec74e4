// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cs1237 controls a Chipsea CS1237 24-bit delta-sigma ADC over its
// two-wire interface, a shared clock line and a bidirectional data line that
// doubles as the data-ready signal.
//
// The driver supports single conversions with either a busy-polled or an
// edge-interrupt wait for the data-ready signal, and continuous buffered
// acquisition through an autonomous Sequencer such as an RP2040 PIO state
// machine. A software engine that bit-bangs the same frames is used when no
// hardware sequencer is available.
//
// The CS1238 is the two-channel variant of the same die and speaks an
// identical protocol; this driver works with it unchanged.
//
// **Datasheet:** https://en.chipsea.com/product/details/?id=1155
package cs1237
