// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import (
	"context"
	"time"
)

// Masker is implemented by application interrupt sources that must stay
// quiet while a transaction is in flight.
//
// MaskInterrupts is called before every transaction. The source is not
// unmasked afterwards; the application re-arms it when it is ready.
type Masker interface {
	MaskInterrupts()
}

// coordinator parks the caller while the event handler drives a transaction
// and wakes it up on the terminal step.
type coordinator struct {
	p      Peripheral
	masker Masker
	done   chan struct{}
}

func newCoordinator(p Peripheral, m Masker) *coordinator {
	return &coordinator{p: p, masker: m, done: make(chan struct{}, 1)}
}

// park starts the transaction and blocks until resume is called, the timeout
// expires or ctx is done. A zero timeout waits forever.
func (c *coordinator) park(ctx context.Context, timeout time.Duration, handler func()) error {
	// A completion left over from an abandoned transaction.
	select {
	case <-c.done:
	default:
	}
	if c.masker != nil {
		c.masker.MaskInterrupts()
	}
	c.p.EnableEvent(handler)
	c.p.TriggerEvent()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-c.done:
		return nil
	case <-expired:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resume is called from the event handler.
func (c *coordinator) resume() {
	select {
	case c.done <- struct{}{}:
	default:
	}
}
