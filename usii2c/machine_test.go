// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	ack  = Event{Received: 0x00}
	nack = Event{Received: 0x01}
)

type step struct {
	ev   Event
	want State
	cmds []Command
}

func run(t *testing.T, tx Transaction, steps []step) Transaction {
	t.Helper()
	s := Idle
	for i, st := range steps {
		next, ntx, cmds := Advance(s, tx, st.ev)
		if next != st.want {
			t.Fatalf("step %d from %s: got state %s, want %s", i, s, next, st.want)
		}
		if diff := cmp.Diff(st.cmds, cmds); diff != "" {
			t.Fatalf("step %d from %s: commands (-want +got):\n%s", i, s, diff)
		}
		s, tx = next, ntx
	}
	return tx
}

var (
	start    = Command{Op: CmdStart}
	stopCond = Command{Op: CmdStop}
	done     = Command{Op: CmdComplete}
	on       = drive(true)
	off      = drive(false)
)

func terminal() step {
	return step{ack, Idle, []Command{load(0xff), stopCond, off, done}}
}

func TestAdvanceWrite(t *testing.T) {
	tx, err := newWrite(0xd0, 0x37, []byte{0x00})
	if err != nil {
		t.Fatal(err)
	}
	tx = run(t, tx, []step{
		{ack, AwaitAddressAck, []Command{on, start, load(0xd0), bits(8)}},
		{ack, ProcessAddressAck, []Command{off, bits(1)}},
		{ack, AwaitReceiveAck, []Command{on, load(0x37), bits(8)}},
		{ack, ProcessReceiveAck, []Command{off, bits(1)}},
		{ack, AwaitReceiveAck, []Command{on, load(0x00), bits(8)}},
		{ack, ProcessReceiveAck, []Command{off, bits(1)}},
		{ack, GenerateStop, []Command{on, load(0x00), bits(1)}},
		terminal(),
	})
	if tx.Err != nil {
		t.Fatalf("unexpected error %v", tx.Err)
	}
	if tx.Count != 1 {
		t.Fatalf("Count = %d, want 1", tx.Count)
	}
}

func TestAdvanceWriteBurst(t *testing.T) {
	tx, err := newWrite(0xd0, 0x6b, []byte{0x20, 0x80})
	if err != nil {
		t.Fatal(err)
	}
	tx = run(t, tx, []step{
		{ack, AwaitAddressAck, []Command{on, start, load(0xd0), bits(8)}},
		{ack, ProcessAddressAck, []Command{off, bits(1)}},
		{ack, AwaitReceiveAck, []Command{on, load(0x6b), bits(8)}},
		{ack, ProcessReceiveAck, []Command{off, bits(1)}},
		{ack, AwaitReceiveAck, []Command{on, load(0x20), bits(8)}},
		{ack, ProcessReceiveAck, []Command{off, bits(1)}},
		{ack, AwaitReceiveAck, []Command{on, load(0x80), bits(8)}},
		{ack, ProcessReceiveAck, []Command{off, bits(1)}},
		{ack, GenerateStop, []Command{on, load(0x00), bits(1)}},
		terminal(),
	})
	if tx.Count != 2 {
		t.Fatalf("Count = %d, want 2", tx.Count)
	}
}

func TestAdvanceRead(t *testing.T) {
	tx, err := newRead(0xd0, 0x3f, 1)
	if err != nil {
		t.Fatal(err)
	}
	tx = run(t, tx, []step{
		{ack, AwaitAddressAck, []Command{on, start, load(0xd0), bits(8)}},
		{ack, ProcessAddressAck, []Command{off, bits(1)}},
		{ack, AwaitReceiveAck, []Command{on, load(0x3f), bits(8)}},
		{ack, ProcessReceiveAck, []Command{off, bits(1)}},
		{ack, RepeatedStart, []Command{on, load(0xff), bits(1)}},
		{ack, AwaitAddressAck, []Command{on, start, load(0xd1), bits(8)}},
		{ack, ProcessAddressAck, []Command{off, bits(1)}},
		{ack, AwaitDataAck, []Command{off, bits(8)}},
		// Single byte: NACK right away.
		{Event{Received: 0x12}, PrepareStop, []Command{on, load(0xff), bits(1)}},
		{ack, GenerateStop, []Command{on, load(0x00), bits(1)}},
		terminal(),
	})
	if tx.Count != 1 || tx.In[0] != 0x12 {
		t.Fatalf("got Count=%d In=%#v", tx.Count, tx.In)
	}
	if tx.AddressDone {
		t.Fatal("AddressDone must be cleared by the terminal step")
	}
}

func TestAdvanceReadBurst(t *testing.T) {
	tx, err := newRead(0xd0, 0x3f, 2)
	if err != nil {
		t.Fatal(err)
	}
	tx = run(t, tx, []step{
		{ack, AwaitAddressAck, []Command{on, start, load(0xd0), bits(8)}},
		{ack, ProcessAddressAck, []Command{off, bits(1)}},
		{ack, AwaitReceiveAck, []Command{on, load(0x3f), bits(8)}},
		{ack, ProcessReceiveAck, []Command{off, bits(1)}},
		{ack, RepeatedStart, []Command{on, load(0xff), bits(1)}},
		{ack, AwaitAddressAck, []Command{on, start, load(0xd1), bits(8)}},
		{ack, ProcessAddressAck, []Command{off, bits(1)}},
		{ack, AwaitDataAck, []Command{off, bits(8)}},
		{Event{Received: 0x12}, ProcessAddressAck, []Command{on, load(0x00), bits(1)}},
		{ack, AwaitDataAck, []Command{off, bits(8)}},
		{Event{Received: 0x34}, PrepareStop, []Command{on, load(0xff), bits(1)}},
		{ack, GenerateStop, []Command{on, load(0x00), bits(1)}},
		terminal(),
	})
	if tx.Count != 2 || tx.In != [MaxBurst]byte{0x12, 0x34} {
		t.Fatalf("got Count=%d In=%#v", tx.Count, tx.In)
	}
}

func TestAdvanceNACK(t *testing.T) {
	abort := []Command{on, load(0x00), bits(1)}
	data := []struct {
		name  string
		dir   Direction
		acks  int
		state State
		want  error
	}{
		{"write address", Write, 0, ProcessAddressAck, ErrAddressNACK},
		{"write register", Write, 1, ProcessReceiveAck, ErrDataNACK},
		{"write data", Write, 2, ProcessReceiveAck, ErrDataNACK},
		{"read address", Read, 0, ProcessAddressAck, ErrAddressNACK},
		{"read register", Read, 1, ProcessReceiveAck, ErrDataNACK},
		{"read second address", Read, 2, ProcessAddressAck, ErrAddressNACK},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			var tx Transaction
			if line.dir == Write {
				tx, _ = newWrite(0xd0, 0x37, []byte{0x55})
			} else {
				tx, _ = newRead(0xd0, 0x3f, 1)
			}
			s := Idle
			acked := 0
			for i := 0; i < 20; i++ {
				ev := ack
				if s == ProcessAddressAck || s == ProcessReceiveAck {
					if acked == line.acks {
						if s != line.state {
							t.Fatalf("NACK slot reached in %s, want %s", s, line.state)
						}
						ev = nack
					}
					acked++
				}
				next, ntx, cmds := Advance(s, tx, ev)
				if ev == nack {
					if next != GenerateStop {
						t.Fatalf("after NACK got %s, want GenerateStop", next)
					}
					if diff := cmp.Diff(abort, cmds); diff != "" {
						t.Fatalf("NACK commands (-want +got):\n%s", diff)
					}
					if !errors.Is(ntx.Err, line.want) {
						t.Fatalf("Err = %v, want %v", ntx.Err, line.want)
					}
					next, ntx, _ = Advance(next, ntx, ack)
					if next != Idle || ntx.AddressDone {
						t.Fatalf("terminal step left %s AddressDone=%t", next, ntx.AddressDone)
					}
					return
				}
				s, tx = next, ntx
			}
			t.Fatal("NACK slot never reached")
		})
	}
}

func TestAdvanceBudget(t *testing.T) {
	for budget := 1; budget <= MaxBurst; budget++ {
		tx, err := newRead(0xd0, 0x3b, budget)
		if err != nil {
			t.Fatal(err)
		}
		s := Idle
		for s != Idle || tx.Count == 0 {
			var cmds []Command
			s, tx, cmds = Advance(s, tx, ack)
			if tx.Count > tx.Budget {
				t.Fatalf("Count %d exceeds budget %d", tx.Count, tx.Budget)
			}
			if s == Idle {
				if cmds[len(cmds)-1].Op != CmdComplete {
					t.Fatalf("terminal step does not complete: %v", cmds)
				}
				break
			}
		}
		if tx.Count != budget {
			t.Fatalf("Count = %d, want %d", tx.Count, budget)
		}
	}
}

func TestNewTransactionLimits(t *testing.T) {
	if _, err := newRead(0xd0, 0, 0); !errors.Is(err, ErrBurst) {
		t.Fatalf("newRead(0) = %v", err)
	}
	if _, err := newRead(0xd0, 0, MaxBurst+1); !errors.Is(err, ErrBurst) {
		t.Fatalf("newRead(MaxBurst+1) = %v", err)
	}
	if _, err := newWrite(0xd0, 0, make([]byte, MaxBurst+1)); !errors.Is(err, ErrBurst) {
		t.Fatalf("newWrite(MaxBurst+1) = %v", err)
	}
	if _, err := newWrite(0xd0, 0, nil); err != nil {
		t.Fatalf("newWrite(nil) = %v", err)
	}
}

func TestAdvanceInvalidState(t *testing.T) {
	next, tx, _ := Advance(State(42), Transaction{}, ack)
	if next != GenerateStop || tx.Err == nil {
		t.Fatalf("got %s err=%v", next, tx.Err)
	}
}

func TestStateString(t *testing.T) {
	if s := GenerateStop.String(); s != "GenerateStop" {
		t.Fatal(s)
	}
	if s := State(42).String(); s != "State(42)" {
		t.Fatal(s)
	}
}
