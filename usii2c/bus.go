// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DebugF the debug function type.
type DebugF func(string, ...interface{})

// Opts holds the bus configuration.
type Opts struct {
	// Timeout bounds every transaction. Zero waits for the terminal step
	// forever.
	Timeout time.Duration
	// Masker, if set, is masked before every transaction.
	Masker Masker
}

// DefaultOpts waits forever and masks nothing.
var DefaultOpts = Opts{}

// Bus is a single master, single slave I²C bus driven through a Peripheral.
//
// Calls are serialized: only one transaction is in flight at a time.
type Bus struct {
	p     Peripheral
	opts  Opts
	c     *coordinator
	debug DebugF

	mu     sync.Mutex // one transaction at a time
	addr   byte
	hasAdr bool
	closed bool

	// ev is held by the event handler for the duration of each step. The
	// caller only takes it to set up a transaction, collect the result or
	// reclaim the engine after a timeout.
	ev    sync.Mutex
	state State
	tx    Transaction
}

// New returns a Bus that drives p. opts may be nil.
func New(p Peripheral, opts *Opts) *Bus {
	if opts == nil {
		opts = &DefaultOpts
	}
	return &Bus{p: p, opts: *opts, c: newCoordinator(p, opts.Masker), debug: noop}
}

// EnableDebug sets the debugging output function.
func (b *Bus) EnableDebug(f DebugF) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f == nil {
		f = noop
	}
	b.debug = f
}

// ConfigureSlaveAddress sets the device every transaction is addressed to.
// addr is the write form of the address: the 7 bit address shifted left by
// one, for example 0xD0 for a device at 0x68.
func (b *Bus) ConfigureSlaveAddress(addr byte) error {
	if addr&1 != 0 {
		return wrapf("address %#02x has the read bit set", addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addr = addr
	b.hasAdr = true
	return nil
}

// SlaveAddress returns the configured write form address.
func (b *Bus) SlaveAddress() (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr, b.hasAdr
}

// State returns the current protocol step. It is Idle between transactions.
func (b *Bus) State() State {
	b.ev.Lock()
	defer b.ev.Unlock()
	return b.state
}

// WriteRegister writes value into register reg of the device.
func (b *Bus) WriteRegister(reg, value byte) error {
	return b.WriteRegistersContext(context.Background(), reg, []byte{value})
}

// WriteRegisters writes up to MaxBurst bytes starting at register reg. An
// empty values only sets the register pointer of the device.
func (b *Bus) WriteRegisters(reg byte, values []byte) error {
	return b.WriteRegistersContext(context.Background(), reg, values)
}

// WriteRegisterContext is WriteRegister bounded by ctx.
func (b *Bus) WriteRegisterContext(ctx context.Context, reg, value byte) error {
	return b.WriteRegistersContext(ctx, reg, []byte{value})
}

// WriteRegistersContext is WriteRegisters bounded by ctx.
func (b *Bus) WriteRegistersContext(ctx context.Context, reg byte, values []byte) error {
	_, err := b.run(ctx, func(addr byte) (Transaction, error) {
		return newWrite(addr, reg, values)
	})
	return err
}

// ReadRegister reads register reg of the device.
func (b *Bus) ReadRegister(reg byte) (byte, error) {
	return b.ReadRegisterContext(context.Background(), reg)
}

// ReadRegisterContext is ReadRegister bounded by ctx.
func (b *Bus) ReadRegisterContext(ctx context.Context, reg byte) (byte, error) {
	var v [1]byte
	err := b.ReadRegistersContext(ctx, reg, v[:])
	return v[0], err
}

// ReadRegisters reads len(buf) consecutive registers starting at reg.
// len(buf) must be between 1 and MaxBurst.
func (b *Bus) ReadRegisters(reg byte, buf []byte) error {
	return b.ReadRegistersContext(context.Background(), reg, buf)
}

// ReadRegistersContext is ReadRegisters bounded by ctx.
func (b *Bus) ReadRegistersContext(ctx context.Context, reg byte, buf []byte) error {
	t, err := b.run(ctx, func(addr byte) (Transaction, error) {
		return newRead(addr, reg, len(buf))
	})
	if t.Count > 0 {
		copy(buf, t.In[:t.Count])
	}
	return err
}

// run executes one transaction from Idle back to Idle.
func (b *Bus) run(ctx context.Context, setup func(addr byte) (Transaction, error)) (Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Transaction{}, ErrClosed
	}
	if !b.hasAdr {
		return Transaction{}, ErrNoAddress
	}
	t, err := setup(b.addr)
	if err != nil {
		return t, err
	}

	b.ev.Lock()
	if b.state != Idle {
		b.ev.Unlock()
		return t, wrapf("engine in state %s", b.state)
	}
	b.tx = t
	b.ev.Unlock()

	b.debug("usii2c: start %s", &t)
	if err := b.c.park(ctx, b.opts.Timeout, b.handleEvent); err != nil {
		b.abort()
		b.debug("usii2c: abort %s: %v", &t, err)
		return t, err
	}

	b.ev.Lock()
	t = b.tx
	b.ev.Unlock()
	b.debug("usii2c: done %s err=%v", &t, t.Err)
	return t, t.Err
}

// handleEvent is the event entry point. It advances the state machine by
// one step.
func (b *Bus) handleEvent() {
	b.ev.Lock()
	ev := Event{Received: b.p.ReadReceivedByte()}
	next, t, cmds := Advance(b.state, b.tx, ev)
	b.state, b.tx = next, t
	complete := b.apply(cmds)
	b.p.ClearPendingEventFlag()
	b.ev.Unlock()
	if complete {
		b.c.resume()
	}
}

func (b *Bus) apply(cmds []Command) bool {
	complete := false
	for _, c := range cmds {
		switch c.Op {
		case CmdLoad:
			b.p.LoadTransmitByte(c.Arg)
		case CmdBits:
			b.p.SetBitRequest(int(c.Arg))
		case CmdDrive:
			b.p.SetOutputDriveEnabled(c.Arg != 0)
		case CmdStart:
			b.p.AssertStartFraming()
		case CmdStop:
			b.p.AssertStopFraming()
		case CmdComplete:
			complete = true
		}
	}
	return complete
}

// abort reclaims the engine after the caller gave up waiting. The lines are
// released and the state machine is reset to Idle.
func (b *Bus) abort() {
	b.p.DisableEvent()
	b.ev.Lock()
	defer b.ev.Unlock()
	if b.state != Idle {
		b.p.LoadTransmitByte(0xff)
		b.p.AssertStopFraming()
		b.p.SetOutputDriveEnabled(false)
	}
	b.state = Idle
	b.tx.AddressDone = false
}

// Tx implements i2c.Bus.
//
// w[0] is the register. With a non-empty r, w must hold exactly the register
// and len(r) registers are read. Otherwise w[1:] is written.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return wrapf("invalid 7 bit address %#x", addr)
	}
	wf := byte(addr << 1)
	b.mu.Lock()
	switch {
	case !b.hasAdr:
		b.addr, b.hasAdr = wf, true
	case b.addr != wf:
		b.mu.Unlock()
		return fmt.Errorf("%w: %#02x, not %#02x", ErrAddressMismatch, addr, b.addr>>1)
	}
	b.mu.Unlock()

	if len(w) == 0 {
		return fmt.Errorf("%w: transfer without a register", ErrUnsupported)
	}
	if len(r) != 0 {
		if len(w) != 1 {
			return fmt.Errorf("%w: write and read in one transfer", ErrUnsupported)
		}
		return b.ReadRegisters(w[0], r)
	}
	return b.WriteRegisters(w[0], w[1:])
}

// SetSpeed implements i2c.Bus. It is forwarded to the peripheral when it
// supports it.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if s, ok := b.p.(interface{ SetSpeed(physic.Frequency) error }); ok {
		return s.SetSpeed(f)
	}
	return fmt.Errorf("%w: peripheral has a fixed clock", ErrUnsupported)
}

// String implements conn.Resource.
func (b *Bus) String() string {
	if s, ok := b.p.(fmt.Stringer); ok {
		return "usii2c(" + s.String() + ")"
	}
	return "usii2c"
}

// Close implements i2c.BusCloser. It waits for the transaction in flight
// and closes the peripheral when it is an io.Closer.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.p.DisableEvent()
	if c, ok := b.p.(io.Closer); ok {
		if err := c.Close(); err != nil && !errors.Is(err, ErrClosed) {
			return wrapf("%w", err)
		}
	}
	return nil
}

func noop(string, ...interface{}) {}

var _ i2c.BusCloser = &Bus{}
