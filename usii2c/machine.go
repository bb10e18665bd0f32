// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import "fmt"

// Op is a peripheral operation emitted by the state machine.
type Op byte

const (
	// CmdLoad loads Arg into the shift register.
	CmdLoad Op = iota
	// CmdBits shifts Arg bits. It is always the last hardware command of a
	// step since it starts the shift.
	CmdBits
	// CmdDrive enables the data line driver when Arg is non zero.
	CmdDrive
	// CmdStart generates a start or repeated start condition.
	CmdStart
	// CmdStop generates a stop condition.
	CmdStop
	// CmdComplete resumes the parked caller.
	CmdComplete
)

// Command is one peripheral operation.
type Command struct {
	Op  Op
	Arg byte
}

func (c Command) String() string {
	switch c.Op {
	case CmdLoad:
		return fmt.Sprintf("load %#02x", c.Arg)
	case CmdBits:
		return fmt.Sprintf("bits %d", c.Arg)
	case CmdDrive:
		if c.Arg != 0 {
			return "drive on"
		}
		return "drive off"
	case CmdStart:
		return "start"
	case CmdStop:
		return "stop"
	case CmdComplete:
		return "complete"
	}
	return fmt.Sprintf("Op(%d)", c.Op)
}

// Event is what the hardware reports when a requested shift is done.
type Event struct {
	// Received is the shift register content. After a 1 bit shift, bit 0 is
	// the bit clocked in from the data line.
	Received byte
}

const (
	bitACK  byte = 0x00
	bitNACK byte = 0xff
)

func load(b byte) Command { return Command{Op: CmdLoad, Arg: b} }
func bits(n byte) Command { return Command{Op: CmdBits, Arg: n} }
func drive(on bool) Command {
	if on {
		return Command{Op: CmdDrive, Arg: 1}
	}
	return Command{Op: CmdDrive}
}

// stop drives the data line low for one bit so that releasing it in
// GenerateStop produces the stop condition.
func stop(t Transaction, err error) (State, Transaction, []Command) {
	if t.Err == nil {
		t.Err = err
	}
	return GenerateStop, t, []Command{drive(true), load(0x00), bits(1)}
}

// Advance computes one protocol step. It is a pure function: the returned
// commands are to be applied to the peripheral in order.
func Advance(s State, t Transaction, ev Event) (State, Transaction, []Command) {
	switch s {
	case Idle:
		t.Count = 0
		t.Err = nil
		return AwaitAddressAck, t, []Command{
			drive(true), {Op: CmdStart}, load(t.Address &^ 1), bits(8),
		}

	case AwaitAddressAck:
		return ProcessAddressAck, t, []Command{drive(false), bits(1)}

	case ProcessAddressAck:
		if ev.Received&0x01 != 0 {
			return stop(t, ErrAddressNACK)
		}
		if t.AddressDone {
			return AwaitDataAck, t, []Command{drive(false), bits(8)}
		}
		return AwaitReceiveAck, t, []Command{drive(true), load(t.Register), bits(8)}

	case RepeatedStart:
		t.AddressDone = true
		return AwaitAddressAck, t, []Command{
			drive(true), {Op: CmdStart}, load(t.Address | 1), bits(8),
		}

	case AwaitDataAck:
		if t.Count < len(t.In) {
			t.In[t.Count] = ev.Received
		}
		t.Count++
		if t.Count < t.Budget {
			return ProcessAddressAck, t, []Command{drive(true), load(bitACK), bits(1)}
		}
		return PrepareStop, t, []Command{drive(true), load(bitNACK), bits(1)}

	case PrepareStop:
		return stop(t, nil)

	case AwaitReceiveAck:
		return ProcessReceiveAck, t, []Command{drive(false), bits(1)}

	case ProcessReceiveAck:
		if ev.Received&0x01 != 0 {
			return stop(t, ErrDataNACK)
		}
		if t.Dir == Read {
			// Release the data line for one bit so both lines are high
			// before the repeated start.
			return RepeatedStart, t, []Command{drive(true), load(bitNACK), bits(1)}
		}
		if t.Count < t.OutLen {
			b := t.Out[t.Count]
			t.Count++
			return AwaitReceiveAck, t, []Command{drive(true), load(b), bits(8)}
		}
		return stop(t, nil)

	case GenerateStop:
		t.AddressDone = false
		return Idle, t, []Command{
			load(0xff), {Op: CmdStop}, drive(false), {Op: CmdComplete},
		}
	}
	// Unknown state: bail out through the stop condition.
	return stop(t, fmt.Errorf("usii2c: invalid state %s", s))
}
