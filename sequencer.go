// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import (
	"sync"
	"time"
)

// SequencerMode selects the frame program an engine runs.
type SequencerMode uint8

const (
	// ModeData waits for data-ready and shifts in one result word.
	ModeData SequencerMode = iota
	// ModeWriteConfig shifts in a result word, then sends the write command
	// followed by a configuration byte.
	ModeWriteConfig
	// ModeReadConfig shifts in a result word, then sends the read command
	// and shifts the configuration byte back.
	ModeReadConfig
)

// Raw result words carry the 24 data bits, then the two write-status bits,
// then two dead bits from the gap cycles:
//
//	data<<4 | status<<2 | gaps
const (
	rawDataShift   = 4
	rawStatusShift = 2
)

// A Sequencer is an autonomous execution unit that runs whole protocol
// frames without per-bit CPU involvement, such as an RP2040 PIO state
// machine feeding a DMA channel. The driver defines only the control
// protocol around it; softEngine is a fully conforming, if slower,
// bit-banging substitute, so the driver works on any host.
//
// RunFrame executes one frame and returns the raw shifted words: the result
// word for every mode, plus the configuration byte for ModeReadConfig. word
// carries the pre-shifted payload: cmd<<25|config<<16 for ModeWriteConfig,
// cmd<<25 for ModeReadConfig, ignored for ModeData. The status bits of the
// raw word are only meaningful for ModeData frames. On timeout the engine
// must discard any partial frame state before returning, so the next
// RunFrame starts clean.
//
// StartAcquisition arms continuous capture of raw result words into buf,
// one conversion per slot with no per-word CPU work, and returns a channel
// that delivers exactly one completion event once len(buf) words have been
// stored. Halt aborts an active acquisition; there is no mid-frame abort.
type Sequencer interface {
	RunFrame(mode SequencerMode, word uint32, timeout time.Duration) ([]uint32, error)
	StartAcquisition(buf []int32) (<-chan error, error)
	Halt() error
}

// softEngine runs the frame program in software over the bit channel, one
// clock pulse at a time.
type softEngine struct {
	w       *wire
	trig    trigger
	timeout time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func (s *softEngine) RunFrame(mode SequencerMode, word uint32, timeout time.Duration) ([]uint32, error) {
	if err := s.trig.await(s.w.data, timeout); err != nil {
		return nil, err
	}
	data := s.w.readSample()
	words := []uint32{uint32(data) << rawDataShift}
	switch mode {
	case ModeData:
		// Clock the status and gap bits too, mirroring the word layout a
		// hardware engine produces.
		words[0] |= uint32(s.w.readStatus()) << rawStatusShift
	case ModeWriteConfig:
		s.w.writeConfig(byte(word >> 16))
	case ModeReadConfig:
		words = append(words, uint32(s.w.readConfig()))
	}
	if err := s.w.takeErr(); err != nil {
		return nil, err
	}
	return words, nil
}

func (s *softEngine) StartAcquisition(buf []int32) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil, &InvalidParameterError{Param: "acquisition", Value: len(buf)}
	}
	stop := make(chan struct{})
	s.stop = stop
	done := make(chan error, 1)
	go func() {
		defer func() {
			s.mu.Lock()
			if s.stop == stop {
				s.stop = nil
			}
			s.mu.Unlock()
		}()
		for i := range buf {
			select {
			case <-stop:
				done <- &TimeoutError{Op: "read-buffered"}
				return
			default:
			}
			if err := s.trig.await(s.w.data, s.timeout); err != nil {
				done <- err
				return
			}
			// Store the raw word left-aligned, the way a transfer engine
			// would; the deferred pass aligns the whole buffer at once. The
			// status and gap cycles still have to be clocked, the frame is
			// not over without them.
			data := s.w.readSample()
			status := s.w.readStatus()
			buf[i] = data<<rawDataShift | int32(status)<<rawStatusShift
			if err := s.w.takeErr(); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	return done, nil
}

func (s *softEngine) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	return nil
}
