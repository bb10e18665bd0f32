// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usii2ctest is meant to be used to test drivers over a simulated
// shift register peripheral.
//
// Peripheral implements usii2c.Peripheral. Each requested shift is carried
// out against a simulated Device on the other end of the lines and the
// resulting wire symbols are recorded in a Trace.
package usii2ctest

import (
	"sync"

	"github.com/GermanBionicSystems/brakelight/usii2c"
)

// Peripheral is a simulated shift register wired to a simulated I²C bus.
type Peripheral struct {
	usii2c.EventLine

	// Device is the slave on the bus. With no device, every byte is NACKed
	// and reads return 0xFF.
	Device *Device
	// HangAfter, when non-zero, stops raising events after that many shifts,
	// as if the peripheral clock died.
	HangAfter int
	// MaxTrace, when non-zero, stops recording symbols once the trace holds
	// that many.
	MaxTrace int

	mu      sync.Mutex
	sr      byte
	drive   bool
	owned   bool // between a start and a stop condition
	ackSlot bool // the next bit is the 9th clock of a byte
	ack     bool // the device acknowledged the byte just sent
	trace   Trace
	shifts  []int
	clears  int
}

// New returns a peripheral wired to d. d may be nil.
func New(d *Device) *Peripheral {
	return &Peripheral{Device: d}
}

// Trace returns a copy of the symbols recorded so far.
func (p *Peripheral) Trace() Trace {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(Trace(nil), p.trace...)
}

// Shifts returns the bit counts of every requested shift, in order.
func (p *Peripheral) Shifts() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.shifts...)
}

// Reset forgets the recorded trace and shifts.
func (p *Peripheral) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trace = nil
	p.shifts = nil
	p.clears = 0
}

// Clears returns how many times the pending event flag was cleared.
func (p *Peripheral) Clears() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clears
}

// LoadTransmitByte implements usii2c.Peripheral.
func (p *Peripheral) LoadTransmitByte(b byte) {
	p.mu.Lock()
	p.sr = b
	p.mu.Unlock()
}

// SetOutputDriveEnabled implements usii2c.Peripheral.
func (p *Peripheral) SetOutputDriveEnabled(on bool) {
	p.mu.Lock()
	p.drive = on
	p.mu.Unlock()
}

// ReadReceivedByte implements usii2c.Peripheral.
func (p *Peripheral) ReadReceivedByte() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sr
}

// ClearPendingEventFlag implements usii2c.Peripheral.
func (p *Peripheral) ClearPendingEventFlag() {
	p.mu.Lock()
	p.clears++
	p.mu.Unlock()
	p.EventLine.ClearPendingEventFlag()
}

// AssertStartFraming implements usii2c.Peripheral.
func (p *Peripheral) AssertStartFraming() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owned {
		p.add(Symbol{Kind: RepeatedStart})
	} else {
		p.add(Symbol{Kind: Start})
	}
	p.owned = true
	p.ackSlot = false
	if p.Device != nil {
		p.Device.start()
	}
}

// AssertStopFraming implements usii2c.Peripheral.
func (p *Peripheral) AssertStopFraming() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.owned {
		return
	}
	p.add(Symbol{Kind: Stop})
	p.owned = false
	p.ackSlot = false
	if p.Device != nil {
		p.Device.stop()
	}
}

// SetBitRequest implements usii2c.Peripheral. The shift happens right away;
// the event is delivered once the current handler returns.
func (p *Peripheral) SetBitRequest(n int) {
	p.mu.Lock()
	p.shifts = append(p.shifts, n)
	switch {
	case n == 8 && p.drive:
		// Master transmits.
		p.add(Symbol{Kind: Byte, B: p.sr})
		p.ack = p.Device != nil && p.Device.receive(p.sr)
		p.ackSlot = true
	case n == 8:
		// Master receives.
		b := byte(0xff)
		if p.Device != nil {
			b = p.Device.transmit()
		}
		p.sr = b
		p.add(Symbol{Kind: Byte, B: b})
		p.ackSlot = true
	case n == 1 && p.ackSlot && !p.drive:
		// Device answers.
		p.shiftIn(!p.ack)
		p.record(p.ack)
		p.ackSlot = false
	case n == 1 && p.ackSlot:
		// Master answers.
		bit := p.sr&0x80 != 0
		p.shiftIn(bit)
		p.record(!bit)
		if p.Device != nil {
			p.Device.acked(!bit)
		}
		p.ackSlot = false
	default:
		// Framing bits ahead of a stop or repeated start.
		for i := 0; i < n; i++ {
			p.shiftIn(!p.drive || p.sr&0x80 != 0)
		}
	}
	hung := p.HangAfter > 0 && len(p.shifts) > p.HangAfter
	p.mu.Unlock()
	if !hung {
		p.Raise()
	}
}

// shiftIn clocks one bit with the data line at level high.
func (p *Peripheral) shiftIn(high bool) {
	p.sr <<= 1
	if high {
		p.sr |= 1
	}
}

func (p *Peripheral) add(s Symbol) {
	if p.MaxTrace == 0 || len(p.trace) < p.MaxTrace {
		p.trace = append(p.trace, s)
	}
}

func (p *Peripheral) record(ack bool) {
	if ack {
		p.add(Symbol{Kind: ACK})
	} else {
		p.add(Symbol{Kind: NACK})
	}
}

func (p *Peripheral) String() string {
	return "usii2ctest"
}

var _ usii2c.Peripheral = &Peripheral{}
