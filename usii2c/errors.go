// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressNACK is returned when no device acknowledged its address.
	ErrAddressNACK = errors.New("usii2c: address not acknowledged")
	// ErrDataNACK is returned when the device refused a register or data
	// byte.
	ErrDataNACK = errors.New("usii2c: data not acknowledged")
	// ErrTimeout is returned when a transaction did not complete within
	// Opts.Timeout.
	ErrTimeout = errors.New("usii2c: transaction timed out")
	// ErrNoAddress is returned when a transfer is attempted before the slave
	// address was configured.
	ErrNoAddress = errors.New("usii2c: slave address not configured")
	// ErrAddressMismatch is returned by Tx for a device other than the one
	// configured. The engine drives a single slave.
	ErrAddressMismatch = errors.New("usii2c: bus is configured for another device")
	// ErrBurst is returned when a transfer exceeds MaxBurst bytes.
	ErrBurst = errors.New("usii2c: transfer too long")
	// ErrUnsupported is returned for transfers that are not register reads or
	// writes.
	ErrUnsupported = errors.New("usii2c: unsupported operation")
	// ErrClosed is returned once the bus was closed.
	ErrClosed = errors.New("usii2c: bus closed")
)

func wrapf(format string, a ...interface{}) error {
	return fmt.Errorf("usii2c: "+format, a...)
}
