// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import "fmt"

// MaxBurst is the largest number of data bytes a single transaction moves.
const MaxBurst = 2

// Direction of the data phase of a transaction.
type Direction byte

const (
	Write Direction = iota
	Read
)

func (d Direction) String() string {
	if d == Read {
		return "read"
	}
	return "write"
}

// Transaction is the context the state machine carries from one event to the
// next.
//
// It is set up by the caller before the first event and then only touched by
// the event handler until the transaction completes.
type Transaction struct {
	// Dir is fixed for the lifetime of the transaction.
	Dir Direction
	// Address is the slave address in its write form (7 bit address << 1).
	Address byte
	// Register is sent right after the first address phase.
	Register byte
	// Out holds the payload of a write, OutLen bytes of it are sent.
	Out    [MaxBurst]byte
	OutLen int
	// In holds the bytes received by a read. Budget bytes are requested.
	In     [MaxBurst]byte
	Budget int
	// Count is the number of data bytes transferred so far.
	Count int
	// AddressDone is set once the read address phase of the repeated start
	// was sent.
	AddressDone bool
	// Err is set when the transaction was aborted by a NACK.
	Err error
}

func newWrite(addr, reg byte, values []byte) (Transaction, error) {
	if len(values) > MaxBurst {
		return Transaction{}, fmt.Errorf("%w: %d bytes to write, at most %d", ErrBurst, len(values), MaxBurst)
	}
	t := Transaction{Dir: Write, Address: addr, Register: reg, OutLen: len(values)}
	copy(t.Out[:], values)
	return t, nil
}

func newRead(addr, reg byte, n int) (Transaction, error) {
	if n < 1 || n > MaxBurst {
		return Transaction{}, fmt.Errorf("%w: %d bytes to read, want 1 to %d", ErrBurst, n, MaxBurst)
	}
	return Transaction{Dir: Read, Address: addr, Register: reg, Budget: n}, nil
}

func (t *Transaction) String() string {
	if t.Dir == Read {
		return fmt.Sprintf("read %#02x reg %#02x %d/%d", t.Address, t.Register, t.Count, t.Budget)
	}
	return fmt.Sprintf("write %#02x reg %#02x %d/%d", t.Address, t.Register, t.Count, t.OutLen)
}
