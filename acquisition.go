// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import (
	"sync/atomic"
	"time"
)

// An Acquisition is one buffered-capture session started by ReadBuffered.
//
// The engine fills the caller's buffer with raw shifted words. Once the
// completion event arrives, a deferred pass aligns and sign-extends every
// slot; only then does Complete flip to true and Done close, in that order.
// The buffer belongs to the caller for its whole lifetime, but it must not
// be read before Complete reports true or Done is closed; its contents are
// undefined until then.
//
// Every session owns its completion flag and buffer reference. Nothing is
// shared between sessions or between device instances.
type Acquisition struct {
	buf      []int32
	done     chan struct{}
	complete atomic.Bool
	err      error
}

// Done is closed after the buffer has been aligned and marked complete.
func (a *Acquisition) Done() <-chan struct{} {
	return a.done
}

// Complete reports whether the buffer holds its full count of finished,
// sign-extended samples. It flips to true exactly once.
func (a *Acquisition) Complete() bool {
	return a.complete.Load()
}

// Err returns the session error, if any. It is only valid once Done is
// closed.
func (a *Acquisition) Err() error {
	return a.err
}

// Wait blocks until the session finishes or timeout elapses.
func (a *Acquisition) Wait(timeout time.Duration) error {
	select {
	case <-a.done:
		return a.err
	case <-time.After(timeout):
		return &TimeoutError{Op: "read-buffered"}
	}
}

// finish runs in the deferred task, outside the completion event context:
// it performs the alignment and sign-extension pass over the whole buffer,
// then publishes the result.
func (a *Acquisition) finish(err error) {
	if err == nil {
		for i, raw := range a.buf {
			a.buf[i] = signExtend24(int32(uint32(raw) >> rawDataShift & 0xFFFFFF))
		}
		a.complete.Store(true)
	}
	a.err = err
	close(a.done)
}
