// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioshift

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/brakelight/usii2c"
)

// wire models the two open drain lines with pull-ups and a slave that can
// pull SDA low. It logs the bits sampled on SCL rising edges and the
// start/stop conditions.
type wire struct {
	mu      sync.Mutex
	sclLow  bool
	sdaLow  bool
	slave   []bool // per clock: true pulls SDA low
	slaveLo bool
	events  []string
	sampled []int
}

type line struct {
	gpiotest.Pin
	w     *wire
	clock bool
}

func newWire() (*wire, *line, *line) {
	w := &wire{}
	return w, &line{Pin: gpiotest.Pin{N: "SCL"}, w: w, clock: true}, &line{Pin: gpiotest.Pin{N: "SDA"}, w: w}
}

func (w *wire) sda() bool { return !w.sdaLow && !w.slaveLo }

func (l *line) Out(v gpio.Level) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	l.set(v == gpio.Low)
	return nil
}

func (l *line) In(pull gpio.Pull, edge gpio.Edge) error {
	if pull != gpio.PullUp {
		return errors.New("line must be pulled up")
	}
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	l.set(false)
	return nil
}

func (l *line) Read() gpio.Level {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	high := l.w.sda()
	if l.clock {
		high = !l.w.sclLow
	}
	return gpio.Level(high)
}

func (l *line) set(low bool) {
	w := l.w
	if l.clock {
		rising := w.sclLow && !low
		w.sclLow = low
		if low {
			w.slaveLo = false
		}
		if rising {
			if len(w.slave) > 0 {
				w.slaveLo = w.slave[0]
				w.slave = w.slave[1:]
			}
			bit := 0
			if w.sda() {
				bit = 1
			}
			w.sampled = append(w.sampled, bit)
		}
		return
	}
	before := w.sda()
	w.sdaLow = low
	if !w.sclLow {
		switch after := w.sda(); {
		case before && !after:
			w.events = append(w.events, "START")
		case !before && after:
			w.events = append(w.events, "STOP")
		}
	}
}

func newDev(t *testing.T) (*Dev, *wire, chan struct{}) {
	t.Helper()
	w, scl, sda := newWire()
	d, err := New(scl, sda, &Opts{Frequency: MaxFrequency})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	events := make(chan struct{}, 4)
	d.EnableEvent(func() {
		d.ClearPendingEventFlag()
		events <- struct{}{}
	})
	return d, w, events
}

func waitEvent(t *testing.T, events chan struct{}) {
	t.Helper()
	select {
	case <-events:
	case <-time.After(time.Second):
		t.Fatal("no event raised")
	}
}

func TestTransmit(t *testing.T) {
	d, w, events := newDev(t)
	d.AssertStartFraming()
	d.SetOutputDriveEnabled(true)
	d.LoadTransmitByte(0xa5)
	d.SetBitRequest(8)
	waitEvent(t, events)
	w.mu.Lock()
	defer w.mu.Unlock()
	if diff := cmp.Diff([]int{1, 0, 1, 0, 0, 1, 0, 1}, w.sampled); diff != "" {
		t.Fatalf("sampled bits (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"START"}, w.events); diff != "" {
		t.Fatalf("conditions (-want +got):\n%s", diff)
	}
}

func TestReceive(t *testing.T) {
	d, w, events := newDev(t)
	d.AssertStartFraming()
	w.mu.Lock()
	// 0x3c on the line, then an ACK.
	w.slave = []bool{true, true, false, false, false, false, true, true, true}
	w.mu.Unlock()
	d.SetOutputDriveEnabled(false)
	d.SetBitRequest(8)
	waitEvent(t, events)
	if b := d.ReadReceivedByte(); b != 0x3c {
		t.Fatalf("received %#02x, want 0x3c", b)
	}
	d.SetBitRequest(1)
	waitEvent(t, events)
	if b := d.ReadReceivedByte(); b&1 != 0 {
		t.Fatalf("ACK read as %#02x", b)
	}
}

func TestStartStop(t *testing.T) {
	d, w, _ := newDev(t)
	d.AssertStartFraming()
	d.AssertStopFraming()
	w.mu.Lock()
	defer w.mu.Unlock()
	if diff := cmp.Diff([]string{"START", "STOP"}, w.events); diff != "" {
		t.Fatalf("conditions (-want +got):\n%s", diff)
	}
	if w.sclLow || w.sdaLow {
		t.Fatal("lines not released after stop")
	}
}

func TestSetSpeed(t *testing.T) {
	d, _, _ := newDev(t)
	if err := d.SetSpeed(0); !errors.Is(err, errFrequency) {
		t.Fatalf("SetSpeed(0) = %v", err)
	}
	if err := d.SetSpeed(physic.MegaHertz); !errors.Is(err, errFrequency) {
		t.Fatalf("SetSpeed(1MHz) = %v", err)
	}
	if err := d.SetSpeed(100 * physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	if d.half != 5*time.Microsecond {
		t.Fatalf("half period = %s", d.half)
	}
}

// TestBus runs a full register read through usii2c on top of the lines,
// with the slave acknowledging both address bytes and the register.
func TestBus(t *testing.T) {
	w, scl, sda := newWire()
	d, err := New(scl, sda, &Opts{Frequency: MaxFrequency})
	if err != nil {
		t.Fatal(err)
	}
	bus := usii2c.New(d, &usii2c.Opts{Timeout: 5 * time.Second})
	defer bus.Close()
	if err := bus.ConfigureSlaveAddress(0xd0); err != nil {
		t.Fatal(err)
	}
	w.mu.Lock()
	w.slave = append(w.slave, listen(8)...)
	w.slave = append(w.slave, true) // address ACK
	w.slave = append(w.slave, listen(8)...)
	w.slave = append(w.slave, true) // register ACK
	// The bit ahead of the repeated start, then SCL rising in the condition.
	w.slave = append(w.slave, listen(2)...)
	w.slave = append(w.slave, listen(8)...)
	w.slave = append(w.slave, true)
	w.slave = append(w.slave, send(0x68)...)
	w.mu.Unlock()

	v, err := bus.ReadRegister(0x75)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x68 {
		t.Fatalf("ReadRegister = %#02x, want 0x68", v)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if diff := cmp.Diff([]string{"START", "START", "STOP"}, w.events); diff != "" {
		t.Fatalf("conditions (-want +got):\n%s", diff)
	}
	if d.Err() != nil {
		t.Fatal(d.Err())
	}
}

// listen returns n clocks where the slave leaves SDA alone.
func listen(n int) []bool {
	return make([]bool, n)
}

// send returns the clocks of the slave transmitting b.
func send(b byte) []bool {
	out := make([]bool, 8)
	for i := range out {
		out[i] = b&(0x80>>i) == 0
	}
	return out
}
