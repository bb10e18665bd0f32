// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package brakelight

import (
	"math"
	"time"

	"github.com/GermanBionicSystems/brakelight/mpu6050"
)

// GyroSensitivity is the gyroscope scale in LSB per rad/s.
const GyroSensitivity = 65.536

// DefaultInterval is the sensor sample period in cycle mode.
const DefaultInterval = 40 * time.Millisecond

// Accelerometer magnitudes outside this window are dominated by motion and
// are not trusted for attitude.
const (
	minMagnitude = 8192
	maxMagnitude = 32768
)

// PitchFilter is a complementary filter: the gyroscope rate is integrated and
// slowly pulled towards the attitude given by the accelerometer.
type PitchFilter struct {
	// Interval is the time between two updates.
	Interval time.Duration

	pitch  float64
	primed bool
}

// Reset sets the pitch from an accelerometer sample at rest.
func (f *PitchFilter) Reset(a mpu6050.Vector) {
	f.pitch = math.Atan2(float64(a.Z), float64(a.X))
	f.primed = true
}

// Update folds in one sample and returns the new pitch in radians. The first
// update of a filter never Reset primes it from a.
func (f *PitchFilter) Update(a, g mpu6050.Vector) float64 {
	if !f.primed {
		f.Reset(a)
	}
	f.pitch += float64(g.Z) / GyroSensitivity * f.Interval.Seconds()
	m := abs(int(a.X)) + abs(int(a.Y)) + abs(int(a.Z))
	if m > minMagnitude && m < maxMagnitude {
		f.pitch = f.pitch*0.98 + math.Atan2(float64(a.Z), float64(a.X))*0.02
	}
	return f.pitch
}

// Pitch returns the current estimate in radians.
func (f *PitchFilter) Pitch() float64 {
	return f.pitch
}

// Decide returns Lit when the vertical acceleration corrected for pitch is
// above threshold.
func Decide(a mpu6050.Vector, pitch, threshold float64) State {
	if float64(a.Z)-math.Tan(pitch) > threshold {
		return Lit
	}
	return Dark
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
