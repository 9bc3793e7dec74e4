// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// simDevice models a CS1237 die well enough to exercise the whole wire
// protocol: it serves conversion bits on clock edges, decodes command words
// the driver shifts out and keeps a configuration register. The model
// counts the 46 frame bits exactly like the device's internal state
// machine.
//
// Samples come from an explicit queue (produce) or, when sampleFor is set,
// from that hook; with neither, the device reports not-ready and the driver
// times out.
type simDevice struct {
	mu        sync.Mutex
	clk       gpio.Level
	hostData  gpio.Level
	outBit    gpio.Level
	phase     int
	readsAt27 int
	sample    int32
	status    byte
	config    byte
	configs   []byte
	cmd       byte
	inConfig  byte
	queue     []int32
	sampleFor func(config byte) int32
	edges     chan struct{}
}

func newSimDevice(sampleFor func(config byte) int32) *simDevice {
	return &simDevice{
		sampleFor: sampleFor,
		edges:     make(chan struct{}, 1),
	}
}

func (d *simDevice) pins() (clk, data *simPin) {
	return &simPin{name: "clk", dev: d, clock: true}, &simPin{name: "data", dev: d}
}

// produce queues one conversion result and raises the data-ready edge.
func (d *simDevice) produce(v int32) {
	d.mu.Lock()
	d.queue = append(d.queue, v)
	d.mu.Unlock()
	select {
	case d.edges <- struct{}{}:
	default:
	}
}

func (d *simDevice) setSampleFunc(f func(config byte) int32) {
	d.mu.Lock()
	d.sampleFor = f
	d.mu.Unlock()
}

func (d *simDevice) writtenConfigs() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.configs...)
}

func (d *simDevice) clockLevel() gpio.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clk
}

func (d *simDevice) clockOut(l gpio.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l == d.clk {
		return
	}
	d.clk = l
	if l == gpio.High {
		d.rising()
	} else {
		d.falling()
	}
}

func (d *simDevice) rising() {
	d.phase++
	switch {
	case d.phase == 1:
		d.sample = d.nextSample()
		d.outBit = gpio.Level(d.sample>>23&1 == 1)
	case d.phase <= 24:
		d.outBit = gpio.Level(d.sample>>uint(24-d.phase)&1 == 1)
	case d.phase == 25:
		d.outBit = gpio.Level(d.status>>1&1 == 1)
	case d.phase == 26:
		d.outBit = gpio.Level(d.status&1 == 1)
	case d.phase == 27:
		d.outBit = gpio.Low
		d.readsAt27 = 0
	case d.phase == 28:
		d.cmd = 0
		d.inConfig = 0
		d.outBit = gpio.High // line released
	case d.phase <= 37:
		// Host drives the line; bits are sampled on the falling edge.
	case d.phase <= 45:
		if d.cmd == cmdReadConfig {
			d.outBit = gpio.Level(d.config>>uint(45-d.phase)&1 == 1)
		}
	case d.phase == 46:
		if d.cmd == cmdWriteConfig {
			d.config = d.inConfig
			d.configs = append(d.configs, d.inConfig)
		}
	}
}

func (d *simDevice) falling() {
	hostBit := byte(0)
	if d.hostData == gpio.High {
		hostBit = 1
	}
	switch {
	case d.phase >= 30 && d.phase <= 36:
		d.cmd = d.cmd<<1 | hostBit
	case d.phase >= 38 && d.phase <= 45 && d.cmd == cmdWriteConfig:
		d.inConfig = d.inConfig<<1 | hostBit
	case d.phase == 46:
		d.endFrame()
	}
}

func (d *simDevice) endFrame() {
	d.phase = 0
	d.readsAt27 = 0
}

func (d *simDevice) nextSample() int32 {
	if len(d.queue) > 0 {
		v := d.queue[0]
		d.queue = d.queue[1:]
		return v
	}
	if d.sampleFor != nil {
		return d.sampleFor(d.config)
	}
	return 0
}

func (d *simDevice) readyLevel() gpio.Level {
	if len(d.queue) > 0 || d.sampleFor != nil {
		return gpio.Low // conversion result pending
	}
	return gpio.High
}

func (d *simDevice) dataRead() gpio.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.phase == 0:
		return d.readyLevel()
	case d.phase == 27:
		// The first read belongs to the gap bit; a second read at the gap
		// means the host is waiting for the next conversion, so the frame
		// is over.
		d.readsAt27++
		if d.readsAt27 >= 2 {
			d.endFrame()
			return d.readyLevel()
		}
		return gpio.Low
	}
	return d.outBit
}

func (d *simDevice) dataWrite(l gpio.Level) {
	d.mu.Lock()
	d.hostData = l
	d.mu.Unlock()
}

// simPin exposes one of the simDevice lines as a gpio.PinIO.
type simPin struct {
	name  string
	dev   *simDevice
	clock bool
}

func (p *simPin) String() string   { return p.name }
func (p *simPin) Halt() error      { return nil }
func (p *simPin) Name() string     { return p.name }
func (p *simPin) Number() int      { return 0 }
func (p *simPin) Function() string { return "In/Out" }

func (p *simPin) In(pull gpio.Pull, edge gpio.Edge) error { return nil }

func (p *simPin) Read() gpio.Level {
	if p.clock {
		return p.dev.clockLevel()
	}
	return p.dev.dataRead()
}

func (p *simPin) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-p.dev.edges:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *simPin) Pull() gpio.Pull        { return gpio.PullUp }
func (p *simPin) DefaultPull() gpio.Pull { return gpio.PullUp }

func (p *simPin) Out(l gpio.Level) error {
	if p.clock {
		p.dev.clockOut(l)
	} else {
		p.dev.dataWrite(l)
	}
	return nil
}

func (p *simPin) PWM(duty gpio.Duty, f physic.Frequency) error { return nil }

var _ gpio.PinIO = &simPin{}
