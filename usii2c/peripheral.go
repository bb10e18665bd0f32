// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usii2c

import "sync"

// Peripheral is the capability surface of a serial shift register used as an
// I²C master.
//
// All the methods except EnableEvent, DisableEvent and TriggerEvent are only
// called from inside the event handler.
type Peripheral interface {
	// LoadTransmitByte loads b into the shift register. The most significant
	// bit is shifted out first.
	LoadTransmitByte(b byte)
	// SetBitRequest starts shifting n bits. When done, the peripheral raises
	// an event.
	SetBitRequest(n int)
	// SetOutputDriveEnabled enables or releases the data line driver. While
	// released, bits are shifted in from the line.
	SetOutputDriveEnabled(on bool)
	// AssertStartFraming generates a start condition, or a repeated start if
	// the bus is already owned.
	AssertStartFraming()
	// AssertStopFraming releases the data line while the clock is high.
	AssertStopFraming()
	// ReadReceivedByte returns the shift register content.
	ReadReceivedByte() byte
	// ClearPendingEventFlag acknowledges the event being handled.
	ClearPendingEventFlag()

	// EnableEvent routes events to h. h is never invoked concurrently with
	// itself.
	EnableEvent(h func())
	// DisableEvent drops pending and future events until EnableEvent is
	// called again.
	DisableEvent()
	// TriggerEvent raises an event by software, which starts a transaction.
	TriggerEvent()
}

// EventLine implements the event side of Peripheral: EnableEvent,
// DisableEvent, TriggerEvent and ClearPendingEventFlag.
//
// A peripheral embeds it and calls Raise once a requested shift is done.
// Events are delivered one at a time on a dedicated goroutine, in the order
// they were raised. An event whose flag was not cleared by the handler fires
// again.
//
// The zero value is ready to use. Close stops the delivery goroutine.
type EventLine struct {
	mu      sync.Mutex
	handler func()
	enabled bool
	flag    bool
	pending int
	started bool
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// EnableEvent implements Peripheral.
func (e *EventLine) EnableEvent(h func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
	e.enabled = h != nil
	if !e.started && !e.closed {
		e.started = true
		e.wake = make(chan struct{}, 1)
		e.done = make(chan struct{})
		go e.loop(e.wake, e.done)
	}
}

// DisableEvent implements Peripheral.
func (e *EventLine) DisableEvent() {
	e.mu.Lock()
	e.enabled = false
	e.pending = 0
	e.flag = false
	e.mu.Unlock()
}

// TriggerEvent implements Peripheral.
func (e *EventLine) TriggerEvent() {
	e.Raise()
}

// ClearPendingEventFlag implements Peripheral.
func (e *EventLine) ClearPendingEventFlag() {
	e.mu.Lock()
	e.flag = false
	e.mu.Unlock()
}

// Raise queues one event. It is a no-op while events are disabled.
func (e *EventLine) Raise() {
	e.mu.Lock()
	if !e.enabled || e.closed {
		e.mu.Unlock()
		return
	}
	e.pending++
	wake := e.wake
	e.mu.Unlock()
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Close stops event delivery for good.
func (e *EventLine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.enabled = false
	if e.started {
		close(e.done)
	}
	return nil
}

func (e *EventLine) loop(wake, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-wake:
		}
		for e.deliver() {
		}
	}
}

// deliver runs the handler for one pending event. It returns false when
// there is nothing left to deliver.
func (e *EventLine) deliver() bool {
	e.mu.Lock()
	if !e.enabled || e.pending == 0 {
		e.mu.Unlock()
		return false
	}
	e.pending--
	e.flag = true
	h := e.handler
	e.mu.Unlock()

	h()

	e.mu.Lock()
	if e.flag && e.enabled {
		e.pending++
	}
	e.mu.Unlock()
	return true
}
