// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2ctest

import "sync"

type phase byte

const (
	phaseIdle phase = iota
	phaseAddress
	phaseRegister
	phaseWrite
	phaseRead
	phaseIgnore
)

// Device is a simulated register mapped I²C slave: the first byte written
// after the address sets the register pointer, following bytes are stored
// at the pointer, reads return bytes from the pointer. The pointer
// increments after every data byte.
type Device struct {
	// Addr is the 7 bit address the device answers to.
	Addr byte
	// NACKRegister makes the device refuse the register byte.
	NACKRegister bool
	// ReadOnly makes the device refuse data bytes.
	ReadOnly bool
	// OnRead, if set, is called when register reg is about to be sent to the
	// master. It runs with the device lock held and may modify regs.
	OnRead func(reg byte, regs *[256]byte)

	mu    sync.Mutex
	regs  [256]byte
	ptr   byte
	phase phase
}

// NewDevice returns a device answering at the 7 bit address addr.
func NewDevice(addr byte) *Device {
	return &Device{Addr: addr}
}

// Set stores values starting at register reg.
func (d *Device) Set(reg byte, values ...byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range values {
		d.regs[reg+byte(i)] = v
	}
}

// Reg returns the content of register reg.
func (d *Device) Reg(reg byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg]
}

func (d *Device) start() {
	d.mu.Lock()
	d.phase = phaseAddress
	d.mu.Unlock()
}

func (d *Device) stop() {
	d.mu.Lock()
	d.phase = phaseIdle
	d.mu.Unlock()
}

// receive is called for every byte the master sends. It returns whether the
// device acknowledges it.
func (d *Device) receive(b byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.phase {
	case phaseAddress:
		if b>>1 != d.Addr {
			d.phase = phaseIgnore
			return false
		}
		if b&1 != 0 {
			d.phase = phaseRead
		} else {
			d.phase = phaseRegister
		}
		return true
	case phaseRegister:
		if d.NACKRegister {
			return false
		}
		d.ptr = b
		d.phase = phaseWrite
		return true
	case phaseWrite:
		if d.ReadOnly {
			return false
		}
		d.regs[d.ptr] = b
		d.ptr++
		return true
	}
	return false
}

// transmit is called when the master clocks in a byte. A device that is not
// addressed leaves the line high.
func (d *Device) transmit() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != phaseRead {
		return 0xff
	}
	if d.OnRead != nil {
		d.OnRead(d.ptr, &d.regs)
	}
	b := d.regs[d.ptr]
	d.ptr++
	return b
}

// acked is called with the master's answer to a transmitted byte.
func (d *Device) acked(ack bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !ack && d.phase == phaseRead {
		d.phase = phaseIgnore
	}
}
