// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build rp2040

package cs1237

import (
	"machine"
	"sync"
	"time"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// cs1237Program is the PIO micro-program that runs one protocol frame. The
// state machine sidesets the clock line, watches the data line for the
// data-ready transition and shifts 28 bits (24 data + 2 status + 2 gap)
// into the RX FIFO. The first TX word selects the frame mode, matching
// SequencerMode; command frames pull a second, pre-shifted command word.
//
//	 0: set    pindirs, 0      side 0   ; data line to input
//	 1: pull   block           side 0   ; mode: 0 data, 1 write, 2 read
//	 2: mov    y, osr          side 0
//	 3: wait   1 pin 0         side 0   ; end of the previous DRDY pulse
//	 4: wait   0 pin 0         side 0   ; DRDY: result ready
//	 5: mov    isr, null       side 0
//	 6: set    x, 27           side 1 [1]
//	 7: nop                    side 0   ; read_data:
//	 8: in     pins, 1         side 0
//	 9: jmp    x--, 7          side 1 [1]
//	10: push   noblock         side 0   ; data | status | gap bits
//	11: jmp    y--, 13         side 0   ; command follows?
//	12: jmp    30              side 0
//	13: pull   block           side 0   ; do_config: command word
//	14: set    pindirs, 1      side 0   ; data line to output
//	15: jmp    y--, 20         side 0
//	16: set    x, 16           side 0 [1]
//	17: out    pins, 1         side 1 [1] ; cmd_write: 7 cmd + gap + 8 cfg + 1
//	18: jmp    x--, 17         side 0 [1]
//	19: jmp    30              side 0
//	20: set    x, 7            side 0 [1] ; cmd_read: 7 cmd + gap
//	21: out    pins, 1         side 1 [1]
//	22: jmp    x--, 21         side 0 [1]
//	23: set    pindirs, 0      side 0   ; data line back to input
//	24: mov    isr, null       side 0
//	25: set    x, 7            side 1 [1]
//	26: nop                    side 0   ; read_config:
//	27: in     pins, 1         side 0
//	28: jmp    x--, 26         side 1 [1]
//	29: push   noblock         side 0   ; configuration byte
//	30: set    pindirs, 0      side 0   ; end:
//	31: irq    rel(0)          side 0
var cs1237Program = []uint16{
	0xE080, // set pindirs, 0
	0x80A0, // pull block
	0xA047, // mov y, osr
	0x20A0, // wait 1 pin 0
	0x2020, // wait 0 pin 0
	0xA0C3, // mov isr, null
	0xF13B, // set x, 27 side 1 [1]
	0xA042, // nop
	0x4001, // in pins, 1
	0x1147, // jmp x--, 7 side 1 [1]
	0x8000, // push noblock
	0x006D, // jmp y--, 13
	0x001E, // jmp 30
	0x80A0, // pull block
	0xE081, // set pindirs, 1
	0x0074, // jmp y--, 20
	0xE130, // set x, 16 [1]
	0x7101, // out pins, 1 side 1 [1]
	0x0151, // jmp x--, 17 [1]
	0x001E, // jmp 30
	0xE127, // set x, 7 [1]
	0x7101, // out pins, 1 side 1 [1]
	0x0155, // jmp x--, 21 [1]
	0xE080, // set pindirs, 0
	0xA0C3, // mov isr, null
	0xF127, // set x, 7 side 1 [1]
	0xA042, // nop
	0x4001, // in pins, 1
	0x115A, // jmp x--, 26 side 1 [1]
	0x8000, // push noblock
	0xE080, // set pindirs, 0
	0xC010, // irq rel(0)
}

// The program must load at offset 0, its jump targets are absolute.
const cs1237ProgramOrigin = 0

// PIOSequencer implements Sequencer on an RP2040 PIO state machine: the
// state machine clocks whole frames autonomously and the host only feeds
// mode words and drains result words. Attach one with Opts.Sequencer.
type PIOSequencer struct {
	pio  *rp2pio.PIO
	sm   rp2pio.StateMachine
	clk  machine.Pin
	data machine.Pin

	mu   sync.Mutex
	stop chan struct{}
}

// NewPIOSequencer claims a state machine on p, loads the frame program and
// binds it to the clock and data pins. The same pins are handed to New; the
// driver then routes every frame through the state machine.
func NewPIOSequencer(p *rp2pio.PIO, smNum uint8, clk, data machine.Pin) (*PIOSequencer, error) {
	s := &PIOSequencer{pio: p, sm: p.StateMachine(smNum), clk: clk, data: data}
	s.sm.TryClaim()

	offset, err := s.pio.AddProgram(cs1237Program, cs1237ProgramOrigin)
	if err != nil {
		return nil, err
	}

	clk.Configure(machine.PinConfig{Mode: s.pio.PinMode()})
	data.Configure(machine.PinConfig{Mode: s.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(data, 1)
	cfg.SetOutPins(data, 1)
	cfg.SetInPins(data, 1)
	// One side-set bit drives the clock on every instruction.
	cfg.SetSidesetPins(clk)
	cfg.SetSidesetParams(1, false, false)
	// MSB first in both directions, no autopush/autopull: the program
	// pushes and pulls explicitly.
	cfg.SetInShift(false, false, 32)
	cfg.SetOutShift(false, false, 32)
	cfg.SetWrap(offset, offset+uint8(len(cs1237Program))-1)
	// 3MHz state machine clock gives ~1µs half-periods on the wire.
	cfg.SetClkDivIntFrac(uint16(machine.CPUFrequency()/3_000_000), 0)

	s.sm.Init(offset, cfg)
	s.sm.SetPindirsConsecutive(clk, 1, true)
	s.sm.SetPinsConsecutive(clk, 1, false)
	return s, nil
}

// RunFrame implements Sequencer.
func (s *PIOSequencer) RunFrame(mode SequencerMode, word uint32, timeout time.Duration) ([]uint32, error) {
	s.sm.SetEnabled(false)
	s.sm.ClearFIFOs()
	s.sm.Restart()
	s.sm.TxPut(uint32(mode))
	if mode != ModeData {
		s.sm.TxPut(word)
	}
	s.sm.SetEnabled(true)
	defer s.sm.SetEnabled(false)

	want := 1
	if mode == ModeReadConfig {
		want = 2
	}
	words := make([]uint32, 0, want)
	deadline := time.Now().Add(timeout)
	for len(words) < want {
		if s.sm.IsRxFIFOEmpty() {
			if time.Now().After(deadline) {
				// Discard the partial frame so the next one starts clean.
				s.sm.ClearFIFOs()
				s.sm.Restart()
				return nil, &TimeoutError{Op: "read"}
			}
			continue
		}
		words = append(words, s.sm.RxGet())
	}
	return words, nil
}

// StartAcquisition implements Sequencer. The state machine free-runs one
// data frame per queued mode word; the drain loop below stands in for the
// DMA channel that would normally move RX FIFO words into buf.
func (s *PIOSequencer) StartAcquisition(buf []int32) (<-chan error, error) {
	s.sm.SetEnabled(false)
	s.sm.ClearFIFOs()
	s.sm.Restart()
	stop := make(chan struct{})
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
	done := make(chan error, 1)
	go func() {
		queued, stored := 0, 0
		for stored < len(buf) {
			select {
			case <-stop:
				done <- &TimeoutError{Op: "read-buffered"}
				return
			default:
			}
			for queued < len(buf) && !s.sm.IsTxFIFOFull() {
				s.sm.TxPut(uint32(ModeData))
				queued++
			}
			for !s.sm.IsRxFIFOEmpty() && stored < len(buf) {
				buf[stored] = int32(s.sm.RxGet())
				stored++
			}
		}
		s.sm.SetEnabled(false)
		done <- nil
	}()
	s.sm.SetEnabled(true)
	return done, nil
}

// Halt implements Sequencer.
func (s *PIOSequencer) Halt() error {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
	s.sm.SetEnabled(false)
	s.sm.ClearFIFOs()
	s.sm.Restart()
	return nil
}

var _ Sequencer = &PIOSequencer{}
