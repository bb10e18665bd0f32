// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package brakelight

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// State is what the light shows.
type State byte

const (
	// Dark turns every LED off.
	Dark State = iota
	// Lit turns every LED on.
	Lit
)

func (s State) String() string {
	switch s {
	case Dark:
		return "Dark"
	case Lit:
		return "Lit"
	}
	return fmt.Sprintf("State(%d)", byte(s))
}

// Display shows a State.
type Display interface {
	Show(s State) error
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(s State) error

// Show implements Display.
func (f DisplayFunc) Show(s State) error {
	return f(s)
}

// LED is one output. The board drives two LEDs through pre-biased
// transistors, which inverts them.
type LED struct {
	Pin       gpio.PinOut
	ActiveLow bool
}

func (l LED) set(on bool) error {
	lvl := gpio.Level(on)
	if l.ActiveLow {
		lvl = !lvl
	}
	return l.Pin.Out(lvl)
}

// Indicators drives the LEDs of the light.
type Indicators struct {
	LEDs []LED
}

// NewIndicators returns the four LEDs of the board: LED1 and LED3 are
// active low, LED2 and LED4 active high.
func NewIndicators(led1, led2, led3, led4 gpio.PinOut) *Indicators {
	return &Indicators{LEDs: []LED{
		{Pin: led1, ActiveLow: true},
		{Pin: led2},
		{Pin: led3, ActiveLow: true},
		{Pin: led4},
	}}
}

// Show implements Display.
func (i *Indicators) Show(s State) error {
	var errs []error
	for n, l := range i.LEDs {
		if err := l.set(s == Lit); err != nil {
			errs = append(errs, fmt.Errorf("LED%d: %w", n+1, err))
		}
	}
	return errors.Join(errs...)
}

// AllOn lights every LED.
func (i *Indicators) AllOn() error {
	return i.Show(Lit)
}

// AllOff turns every LED off.
func (i *Indicators) AllOff() error {
	return i.Show(Dark)
}

// Halt implements conn.Resource.
func (i *Indicators) Halt() error {
	return i.AllOff()
}

func (i *Indicators) String() string {
	return fmt.Sprintf("Indicators(%d)", len(i.LEDs))
}

var _ Display = &Indicators{}
var _ conn.Resource = &Indicators{}
