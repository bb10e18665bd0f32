// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package brakelight is a container for the packages of an automatic
// bicycle brake light.
//
// usii2c drives an MPU-6050 through a serial shift register used as a
// single master I²C bus, gpioshift provides such a register on two GPIO
// lines, mpu6050 talks to the sensor and the brakelight subpackage decides
// when to light the LEDs. cmd/brakelight wires them together.
package brakelight
