// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package brakelight turns an MPU-6050 into an automatic bicycle brake
// light: the LEDs are lit while the bike decelerates.
//
// The sensor samples in low power cycle mode and raises a latched data ready
// interrupt. On every sample the pitch is tracked with a complementary
// filter, the vertical acceleration is corrected for it and the light state
// follows its sign.
package brakelight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/brakelight/mpu6050"
)

// DebugF the debug function type.
type DebugF func(string, ...interface{})

// Sensor is the subset of mpu6050.Dev the controller uses.
type Sensor interface {
	Init() (mpu6050.Vector, error)
	ReadAccel() (mpu6050.Vector, error)
	ReadGyro() (mpu6050.Vector, error)
	ClearInterrupt() (byte, error)
}

// Trigger signals new samples. DataReady implements it.
type Trigger interface {
	Arm()
	Wait(ctx context.Context) error
}

// Opts holds the controller configuration.
type Opts struct {
	// Interval is the sensor sample period.
	Interval time.Duration
	// Threshold is the corrected vertical acceleration, in LSB, above which
	// the light is lit.
	Threshold float64
}

// DefaultOpts matches the sensor set up by mpu6050.Dev.Init.
var DefaultOpts = Opts{Interval: DefaultInterval}

// Sample is the outcome of one update.
type Sample struct {
	Accel, Gyro mpu6050.Vector
	Pitch       float64
	State       State
}

func (s Sample) String() string {
	return fmt.Sprintf("accel=%s gyro=%s pitch=%.3f %s", s.Accel, s.Gyro, s.Pitch, s.State)
}

// Controller runs the light.
type Controller struct {
	sensor  Sensor
	display Display
	ready   Trigger
	opts    Opts
	debug   DebugF

	mu     sync.Mutex
	filter PitchFilter
	last   Sample
}

// New returns a Controller. opts may be nil.
func New(s Sensor, d Display, ready Trigger, opts *Opts) *Controller {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return &Controller{
		sensor:  s,
		display: d,
		ready:   ready,
		opts:    o,
		debug:   noop,
		filter:  PitchFilter{Interval: o.Interval},
	}
}

// EnableDebug sets the debugging output function.
func (c *Controller) EnableDebug(f DebugF) {
	if f == nil {
		f = noop
	}
	c.debug = f
}

// Setup initializes the sensor with every LED lit, then turns them off,
// releases the sensor interrupt and arms the trigger.
func (c *Controller) Setup() error {
	if err := c.display.Show(Lit); err != nil {
		return wrap(err)
	}
	initial, err := c.sensor.Init()
	if err != nil {
		return wrap(err)
	}
	c.mu.Lock()
	c.filter.Reset(initial)
	c.mu.Unlock()
	c.debug("initial accel %s pitch %.3f", initial, c.Pitch())
	if err := c.display.Show(Dark); err != nil {
		return wrap(err)
	}
	return c.rearm()
}

// Step waits for one sample and updates the light.
func (c *Controller) Step(ctx context.Context) (Sample, error) {
	if err := c.ready.Wait(ctx); err != nil {
		return Sample{}, err
	}
	a, err := c.sensor.ReadAccel()
	if err != nil {
		return Sample{}, wrap(err)
	}
	g, err := c.sensor.ReadGyro()
	if err != nil {
		return Sample{}, wrap(err)
	}
	c.mu.Lock()
	p := c.filter.Update(a, g)
	s := Sample{Accel: a, Gyro: g, Pitch: p, State: Decide(a, p, c.opts.Threshold)}
	c.last = s
	c.mu.Unlock()
	c.debug("%s", s)
	if err := c.display.Show(s.State); err != nil {
		return s, wrap(err)
	}
	return s, c.rearm()
}

// Run calls Setup then Step until ctx is done. It returns nil when stopped
// by ctx.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Setup(); err != nil {
		return err
	}
	for {
		if _, err := c.Step(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
	}
}

// Last returns the most recent sample.
func (c *Controller) Last() Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Pitch returns the filtered pitch in radians.
func (c *Controller) Pitch() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Pitch()
}

// Halt turns the light off.
func (c *Controller) Halt() error {
	return wrap(c.display.Show(Dark))
}

func (c *Controller) rearm() error {
	if _, err := c.sensor.ClearInterrupt(); err != nil {
		return wrap(err)
	}
	c.ready.Arm()
	return nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("brakelight: %w", err)
}

func noop(string, ...interface{}) {}
