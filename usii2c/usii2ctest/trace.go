// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2ctest

import (
	"fmt"
	"strings"
)

// Kind is the kind of a wire Symbol.
type Kind byte

const (
	Start Kind = iota
	RepeatedStart
	Byte
	ACK
	NACK
	Stop
)

// Symbol is one element of the two-wire protocol as seen on the lines.
type Symbol struct {
	Kind Kind
	// B is the byte value when Kind is Byte.
	B byte
}

func (s Symbol) String() string {
	switch s.Kind {
	case Start:
		return "START"
	case RepeatedStart:
		return "REPEATED-START"
	case Byte:
		return fmt.Sprintf("0x%02X", s.B)
	case ACK:
		return "ACK"
	case NACK:
		return "NACK"
	case Stop:
		return "STOP"
	}
	return fmt.Sprintf("Kind(%d)", s.Kind)
}

// Trace is a sequence of symbols in wire order.
type Trace []Symbol

// String returns the trace as a comma separated list, for example
// "START, 0xD0, ACK, 0x37, ACK, 0x00, ACK, STOP".
func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// Transactions splits t at every STOP. A trailing incomplete transaction is
// kept.
func (t Trace) Transactions() []Trace {
	var out []Trace
	begin := 0
	for i, s := range t {
		if s.Kind == Stop {
			out = append(out, t[begin:i+1])
			begin = i + 1
		}
	}
	if begin < len(t) {
		out = append(out, t[begin:])
	}
	return out
}
