// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usii2c implements an I²C master on top of a general purpose
// serial shift register, the way the USI module of small microcontrollers is
// used when no dedicated I²C controller is available.
//
// The shift register can only be told "shift N bits, then raise an event".
// The protocol is therefore driven by a state machine that is advanced by
// exactly one step per event: an 8 bit event for every address or data byte
// and a 1 bit event for every (N)ACK slot or framing bit.
//
// Callers see a synchronous API. Bus.WriteRegister and Bus.ReadRegister set
// up a transaction, fire the first event and park the calling goroutine
// until the state machine reaches its terminal step.
//
// # Wire sequences
//
// Register write:
//
//	START, addr+W, ACK, reg, ACK, value, ACK, STOP
//
// Register read:
//
//	START, addr+W, ACK, reg, ACK, REPEATED-START, addr+R, ACK, value, NACK, STOP
//
// A NACK in any acknowledge slot sends the engine straight to the stop
// condition and the reason is reported to the caller as ErrAddressNACK or
// ErrDataNACK.
//
// Bus implements i2c.Bus, so regular periph drivers can run on top of it as
// long as they only use register oriented transfers of up to MaxBurst bytes.
package usii2c
