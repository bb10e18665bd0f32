// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpioshift emulates a serial shift register over two open drain
// GPIO lines, so the usii2c engine can run on any host with two free pins.
//
// A line is driven low with Out(gpio.Low) and released with a pull-up input.
// Clock stretching is not supported.
package gpioshift

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/brakelight/usii2c"
)

// Opts holds the clock configuration.
type Opts struct {
	// Frequency is the SCL clock rate.
	Frequency physic.Frequency
}

// DefaultOpts clocks the bus at 100kHz.
var DefaultOpts = Opts{Frequency: 100 * physic.KiloHertz}

// MaxFrequency is the fastest clock accepted, the I²C fast mode limit.
const MaxFrequency = 400 * physic.KiloHertz

var errFrequency = errors.New("gpioshift: invalid frequency")

// Dev is a usii2c.Peripheral over two GPIO lines.
type Dev struct {
	usii2c.EventLine

	scl, sda gpio.PinIO

	mu    sync.Mutex
	half  time.Duration
	sr    byte
	drive bool
	err   error
}

// New returns a Dev using scl and sda. Both lines are released.
func New(scl, sda gpio.PinIO, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{scl: scl, sda: sda}
	if err := d.SetSpeed(opts.Frequency); err != nil {
		return nil, err
	}
	d.release(d.sda)
	d.release(d.scl)
	if d.err != nil {
		return nil, wrap(d.err)
	}
	return d, nil
}

// SetSpeed changes the clock rate. It is used by usii2c.Bus.SetSpeed.
func (d *Dev) SetSpeed(f physic.Frequency) error {
	if f <= 0 || f > MaxFrequency {
		return fmt.Errorf("%w: %s", errFrequency, f)
	}
	d.mu.Lock()
	d.half = f.Period() / 2
	d.mu.Unlock()
	return nil
}

// Err returns the first GPIO error encountered, if any.
func (d *Dev) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Dev) String() string {
	return fmt.Sprintf("gpioshift(%s, %s)", d.scl, d.sda)
}

// LoadTransmitByte implements usii2c.Peripheral.
func (d *Dev) LoadTransmitByte(b byte) {
	d.mu.Lock()
	d.sr = b
	d.mu.Unlock()
}

// ReadReceivedByte implements usii2c.Peripheral.
func (d *Dev) ReadReceivedByte() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sr
}

// SetOutputDriveEnabled implements usii2c.Peripheral.
func (d *Dev) SetOutputDriveEnabled(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drive = on
	if !on {
		d.release(d.sda)
	}
}

// AssertStartFraming implements usii2c.Peripheral. It works from the idle
// bus as well as after a bit that left SDA released, for a repeated start.
func (d *Dev) AssertStartFraming() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.release(d.sda)
	d.release(d.scl)
	d.wait()
	d.low(d.sda)
	d.wait()
	d.low(d.scl)
}

// AssertStopFraming implements usii2c.Peripheral.
func (d *Dev) AssertStopFraming() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.low(d.sda)
	d.release(d.scl)
	d.wait()
	d.release(d.sda)
	d.wait()
}

// SetBitRequest implements usii2c.Peripheral. The bits are clocked right
// away, most significant first, then the event is raised.
func (d *Dev) SetBitRequest(n int) {
	d.mu.Lock()
	for i := 0; i < n; i++ {
		if d.drive && d.sr&0x80 == 0 {
			d.low(d.sda)
		} else {
			d.release(d.sda)
		}
		d.wait()
		d.release(d.scl)
		d.wait()
		in := d.sda.Read()
		d.low(d.scl)
		d.sr <<= 1
		if in == gpio.High {
			d.sr |= 1
		}
	}
	d.mu.Unlock()
	d.Raise()
}

// Halt implements conn.Resource. Both lines are released.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.release(d.sda)
	d.release(d.scl)
	return wrap(d.err)
}

// Close stops event delivery and releases the lines.
func (d *Dev) Close() error {
	err := d.Halt()
	_ = d.EventLine.Close()
	return err
}

func (d *Dev) low(p gpio.PinIO) {
	d.keep(p.Out(gpio.Low))
}

func (d *Dev) release(p gpio.PinIO) {
	d.keep(p.In(gpio.PullUp, gpio.NoEdge))
}

func (d *Dev) keep(err error) {
	if err != nil && d.err == nil {
		d.err = err
	}
}

func (d *Dev) wait() {
	if d.half > 0 {
		time.Sleep(d.half)
	}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("gpioshift: %w", err)
}

var _ usii2c.Peripheral = &Dev{}
