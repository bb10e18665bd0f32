// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package brakelight

import (
	"context"
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/brakelight/usii2c"
)

var errNotArmed = errors.New("brakelight: data ready is not armed")

// DataReady is the sensor interrupt line.
//
// It is disarmed by every bus transaction, through usii2c.Masker, and when
// Wait returns. A line that is still high when armed counts as ready, so a
// sample that arrived while masked is not lost.
type DataReady struct {
	pin  gpio.PinIn
	poll time.Duration

	mu    sync.Mutex
	armed bool
}

// NewDataReady configures pin for rising edges. poll bounds how long Wait
// goes without checking its context; 0 selects 100ms.
func NewDataReady(pin gpio.PinIn, poll time.Duration) (*DataReady, error) {
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, wrap(err)
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &DataReady{pin: pin, poll: poll}, nil
}

// Arm enables the line.
func (d *DataReady) Arm() {
	d.mu.Lock()
	d.armed = true
	d.mu.Unlock()
}

// MaskInterrupts implements usii2c.Masker.
func (d *DataReady) MaskInterrupts() {
	d.mu.Lock()
	d.armed = false
	d.mu.Unlock()
}

// Armed reports whether the line is enabled.
func (d *DataReady) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Wait blocks until the sensor signals a sample and disarms the line.
func (d *DataReady) Wait(ctx context.Context) error {
	if !d.Armed() {
		return errNotArmed
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.pin.Read() == gpio.High && d.take() {
			return nil
		}
		if d.pin.WaitForEdge(d.poll) && d.take() {
			return nil
		}
	}
}

func (d *DataReady) take() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ok := d.armed
	d.armed = false
	return ok
}

func (d *DataReady) String() string {
	return "DataReady(" + d.pin.String() + ")"
}

var _ usii2c.Masker = &DataReady{}
