// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mpu6050

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// DebugF the debug function type.
type DebugF func(string, ...interface{})

// transport is the register access layer. Every access is a single register
// transfer so it fits buses limited to short bursts.
type transport struct {
	d     *i2c.Dev
	debug DebugF
}

func (t *transport) writeByte(reg, value byte) error {
	t.debug("write register %#02x value %#02x", reg, value)
	if err := t.d.Tx([]byte{reg, value}, nil); err != nil {
		return wrapf("write %#02x: %w", reg, err)
	}
	return nil
}

func (t *transport) readByte(reg byte) (byte, error) {
	var r [1]byte
	if err := t.d.Tx([]byte{reg}, r[:]); err != nil {
		return 0, wrapf("read %#02x: %w", reg, err)
	}
	t.debug("read register %#02x: %#02x", reg, r[0])
	return r[0], nil
}

// readInt16 reads the big endian pair starting at the high register.
func (t *transport) readInt16(high byte) (int16, error) {
	var r [2]byte
	if err := t.d.Tx([]byte{high}, r[:]); err != nil {
		return 0, wrapf("read %#02x: %w", high, err)
	}
	t.debug("read registers %#02x: %#02x:%#02x", high, r[0], r[1])
	return int16(uint16(r[0])<<8 | uint16(r[1])), nil
}

// updateReg rewrites the bits of mask in register reg with value.
func (t *transport) updateReg(reg, mask, value byte) error {
	cur, err := t.readByte(reg)
	if err != nil {
		return err
	}
	next := cur&^mask | value&mask
	if next == cur {
		return nil
	}
	return t.writeByte(reg, next)
}

var errAddress = errors.New("mpu6050: invalid address")

func wrapf(format string, a ...interface{}) error {
	return fmt.Errorf("mpu6050: "+format, a...)
}

func noop(string, ...interface{}) {}
