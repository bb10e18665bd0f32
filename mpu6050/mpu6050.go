// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mpu6050 controls the InvenSense MPU-6050 6 axis motion sensor over
// I²C.
//
// Only the features needed to run the sensor in low power cycle mode with a
// latched data ready interrupt are exposed.
//
// # Datasheet
//
// https://invensense.tdk.com/wp-content/uploads/2015/02/MPU-6000-Register-Map1.pdf
package mpu6050

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the address with AD0 tied low.
const DefaultAddress uint16 = 0x68

// Registers.
const (
	I2CMstCtrl  = 0x24
	IntPinCfg   = 0x37
	IntEnable   = 0x38
	IntStatus   = 0x3A
	AccelXoutH  = 0x3B
	AccelXoutL  = 0x3C
	AccelYoutH  = 0x3D
	AccelYoutL  = 0x3E
	AccelZoutH  = 0x3F
	AccelZoutL  = 0x40
	GyroXoutH   = 0x43
	GyroXoutL   = 0x44
	GyroYoutH   = 0x45
	GyroYoutL   = 0x46
	GyroZoutH   = 0x47
	GyroZoutL   = 0x48
	PwrMgmt1    = 0x6B
	PwrMgmt2    = 0x6C
	WhoAmIReg   = 0x75
	WhoAmIValue = 0x68
)

// Register bits.
const (
	LatchIntEn  = 0x20 // INT_PIN_CFG: hold INT until INT_STATUS is read
	DataRdyEn   = 0x01 // INT_ENABLE
	DataRdyInt  = 0x01 // INT_STATUS
	Sleep       = 0x40 // PWR_MGMT_1
	Cycle       = 0x20 // PWR_MGMT_1
	LPWakeCtrl2 = 0x80 // PWR_MGMT_2: 20Hz wake up in cycle mode
)

// Opts holds the configuration options.
type Opts struct {
	// Addr is the 7 bit I²C address.
	Addr uint16
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Addr: DefaultAddress}

// Vector is one raw 3 axis sample.
type Vector struct {
	X, Y, Z int16
}

func (v Vector) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// Dev is a handle to an MPU-6050.
type Dev struct {
	t    transport
	addr uint16
}

// New returns a handle to an MPU-6050 on bus. opts may be nil.
//
// No I/O is done.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Addr != 0x68 && opts.Addr != 0x69 {
		return nil, fmt.Errorf("%w %#x", errAddress, opts.Addr)
	}
	return &Dev{
		t:    transport{d: &i2c.Dev{Bus: bus, Addr: opts.Addr}, debug: noop},
		addr: opts.Addr,
	}, nil
}

// EnableDebug sets the debugging output function.
func (d *Dev) EnableDebug(f DebugF) {
	if f == nil {
		f = noop
	}
	d.t.debug = f
}

func (d *Dev) String() string {
	return fmt.Sprintf("MPU6050{%#x}", d.addr)
}

// Init runs the start up sequence: the auxiliary I²C master is turned off,
// the attitude is sampled, the data ready interrupt is latched and the
// sensor is put in cycle mode. It returns the accelerometer sample taken
// before the interrupt is enabled.
func (d *Dev) Init() (Vector, error) {
	if err := d.DisableAuxMaster(); err != nil {
		return Vector{}, err
	}
	initial, err := d.ReadAccel()
	if err != nil {
		return Vector{}, err
	}
	if err := d.EnableDataReady(); err != nil {
		return Vector{}, err
	}
	if err := d.StartCycle(); err != nil {
		return Vector{}, err
	}
	return initial, nil
}

// WhoAmI returns the WHO_AM_I register, 0x68 on a genuine part.
func (d *Dev) WhoAmI() (byte, error) {
	return d.t.readByte(WhoAmIReg)
}

// DisableAuxMaster turns off the auxiliary I²C master.
func (d *Dev) DisableAuxMaster() error {
	return d.t.writeByte(I2CMstCtrl, 0x00)
}

// EnableDataReady routes data ready to the INT pin, latched until
// ClearInterrupt.
func (d *Dev) EnableDataReady() error {
	if err := d.t.writeByte(IntPinCfg, LatchIntEn); err != nil {
		return err
	}
	return d.t.writeByte(IntEnable, DataRdyEn)
}

// StartCycle wakes the sensor up in low power cycle mode.
func (d *Dev) StartCycle() error {
	if err := d.t.writeByte(PwrMgmt1, Cycle); err != nil {
		return err
	}
	return d.t.writeByte(PwrMgmt2, LPWakeCtrl2)
}

// ClearInterrupt reads INT_STATUS, which releases the INT latch. It returns
// the status.
func (d *Dev) ClearInterrupt() (byte, error) {
	return d.t.readByte(IntStatus)
}

// ReadAccel reads the accelerometer.
func (d *Dev) ReadAccel() (Vector, error) {
	return d.readVector(AccelXoutH, AccelYoutH, AccelZoutH)
}

// ReadGyro reads the gyroscope.
func (d *Dev) ReadGyro() (Vector, error) {
	return d.readVector(GyroXoutH, GyroYoutH, GyroZoutH)
}

// readVector reads Z first, then Y and X.
func (d *Dev) readVector(x, y, z byte) (Vector, error) {
	var v Vector
	var err error
	if v.Z, err = d.t.readInt16(z); err != nil {
		return Vector{}, err
	}
	if v.Y, err = d.t.readInt16(y); err != nil {
		return Vector{}, err
	}
	if v.X, err = d.t.readInt16(x); err != nil {
		return Vector{}, err
	}
	return v, nil
}

// Halt implements conn.Resource.
//
// It puts the sensor to sleep.
func (d *Dev) Halt() error {
	return d.t.updateReg(PwrMgmt1, Sleep|Cycle, Sleep)
}

var _ conn.Resource = &Dev{}
