// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import "strconv"

// State is the protocol step the engine executes on the next event.
type State byte

const (
	// Idle generates the start condition and sends the address with the
	// write bit.
	Idle State = iota
	// AwaitAddressAck releases the data line to clock in the address (N)ACK.
	AwaitAddressAck
	// ProcessAddressAck checks the address (N)ACK, then sends the register
	// or starts receiving data.
	ProcessAddressAck
	// RepeatedStart generates a repeated start and sends the address with
	// the read bit.
	RepeatedStart
	// AwaitDataAck latches a received byte and answers with ACK or NACK.
	AwaitDataAck
	// PrepareStop drives the data line low ahead of the stop condition.
	PrepareStop
	// AwaitReceiveAck releases the data line to clock in the slave (N)ACK
	// of a transmitted byte.
	AwaitReceiveAck
	// ProcessReceiveAck checks the slave (N)ACK, then sends the next byte,
	// switches to reading or heads for the stop condition.
	ProcessReceiveAck
	// GenerateStop generates the stop condition and completes the
	// transaction.
	GenerateStop
)

var stateNames = [...]string{
	Idle:              "Idle",
	AwaitAddressAck:   "AwaitAddressAck",
	ProcessAddressAck: "ProcessAddressAck",
	RepeatedStart:     "RepeatedStart",
	AwaitDataAck:      "AwaitDataAck",
	PrepareStop:       "PrepareStop",
	AwaitReceiveAck:   "AwaitReceiveAck",
	ProcessReceiveAck: "ProcessReceiveAck",
	GenerateStop:      "GenerateStop",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}
