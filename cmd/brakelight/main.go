// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// brakelight runs the automatic brake light.
//
// On a board, the MPU-6050 is reached through two GPIO lines bit banged as
// an I²C master, the data ready interrupt on a third and the four LEDs on
// GPIO outputs. With -sim, the sensor is simulated and the LEDs are drawn on
// the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/brakelight/brakelight"
	"github.com/GermanBionicSystems/brakelight/console"
	"github.com/GermanBionicSystems/brakelight/gpioshift"
	"github.com/GermanBionicSystems/brakelight/mpu6050"
	"github.com/GermanBionicSystems/brakelight/usii2c"
	"github.com/GermanBionicSystems/brakelight/usii2c/usii2ctest"
	"github.com/GermanBionicSystems/brakelight/wavedump"
)

var (
	sim       = flag.Bool("sim", false, "simulate the sensor and show the LEDs on the terminal")
	sclName   = flag.String("scl", "GPIO3", "I²C clock pin")
	sdaName   = flag.String("sda", "GPIO2", "I²C data pin")
	intName   = flag.String("int", "GPIO4", "sensor data ready pin")
	led1Name  = flag.String("led1", "GPIO17", "LED1 pin, active low")
	led2Name  = flag.String("led2", "GPIO27", "LED2 pin, active high")
	led3Name  = flag.String("led3", "GPIO22", "LED3 pin, active low")
	led4Name  = flag.String("led4", "GPIO23", "LED4 pin, active high")
	hz        = flag.Int("hz", 100000, "I²C clock in Hz")
	timeout   = flag.Duration("timeout", 100*time.Millisecond, "bus transaction timeout, 0 to wait forever")
	threshold = flag.Float64("threshold", 0, "corrected vertical acceleration above which the light is lit, in LSB")
	samples   = flag.Int("samples", 0, "stop after that many samples, 0 runs until interrupted")
	tracePath = flag.String("trace", "", "with -sim, write the start up bus traffic to this PNG file")
	traceTx   = flag.Int("trace-tx", 8, "number of transactions drawn by -trace")
)

func debugf(format string, a ...interface{}) {
	glog.V(2).Infof(format, a...)
}

// rig is everything that differs between the board and the simulation.
type rig struct {
	p       usii2c.Peripheral
	irq     gpio.PinIn
	display brakelight.Display
	sim     *usii2ctest.Peripheral
	stop    func()
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no pin %q", name)
	}
	return p, nil
}

func board() (*rig, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	var pins [7]gpio.PinIO
	for i, n := range []string{*sclName, *sdaName, *intName, *led1Name, *led2Name, *led3Name, *led4Name} {
		p, err := pin(n)
		if err != nil {
			return nil, err
		}
		pins[i] = p
	}
	sr, err := gpioshift.New(pins[0], pins[1], &gpioshift.Opts{Frequency: physic.Frequency(*hz) * physic.Hertz})
	if err != nil {
		return nil, err
	}
	glog.Infof("bus on %s", sr)
	return &rig{
		p:       sr,
		irq:     pins[2],
		display: brakelight.NewIndicators(pins[3], pins[4], pins[5], pins[6]),
		stop:    func() {},
	}, nil
}

// simulation wires a simulated MPU-6050 that samples every interval. The
// bike brakes for a second every four seconds.
func simulation(interval time.Duration) *rig {
	intPin := &gpiotest.Pin{N: "INT", EdgesChan: make(chan gpio.Level, 1)}
	sensor := usii2ctest.NewDevice(byte(mpu6050.DefaultAddress))
	sensor.Set(mpu6050.WhoAmIReg, mpu6050.WhoAmIValue)
	sensor.Set(mpu6050.AccelXoutH, 0x40, 0x00)
	begin := time.Now()
	sensor.OnRead = func(reg byte, regs *[256]byte) {
		switch reg {
		case mpu6050.AccelZoutH:
			t := time.Since(begin).Seconds()
			z := int16(-300)
			if math.Mod(t, 4) < 1 {
				z = 600
			}
			regs[mpu6050.AccelZoutH] = byte(uint16(z) >> 8)
			regs[mpu6050.AccelZoutL] = byte(z)
		case mpu6050.IntStatus:
			_ = intPin.Out(gpio.Low)
		}
	}

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				select {
				case intPin.EdgesChan <- gpio.High:
				default:
				}
			}
		}
	}()
	p := usii2ctest.New(sensor)
	p.MaxTrace = 4096
	return &rig{
		p:       p,
		irq:     intPin,
		display: console.New(nil),
		sim:     p,
		stop:    func() { close(done) },
	}
}

func mainImpl() error {
	var r *rig
	if *sim {
		r = simulation(brakelight.DefaultInterval)
	} else {
		var err error
		if r, err = board(); err != nil {
			return err
		}
	}
	defer r.stop()

	ready, err := brakelight.NewDataReady(r.irq, 0)
	if err != nil {
		return err
	}
	bus := usii2c.New(r.p, &usii2c.Opts{Timeout: *timeout, Masker: ready})
	defer bus.Close()
	bus.EnableDebug(debugf)

	dev, err := mpu6050.New(bus, nil)
	if err != nil {
		return err
	}
	dev.EnableDebug(debugf)
	if id, err := dev.WhoAmI(); err != nil {
		return err
	} else if id != mpu6050.WhoAmIValue {
		glog.Warningf("%s: unexpected WHO_AM_I %#02x", dev, id)
	}

	ctl := brakelight.New(dev, r.display, ready, &brakelight.Opts{Interval: brakelight.DefaultInterval, Threshold: *threshold})
	ctl.EnableDebug(debugf)
	defer func() {
		if err := ctl.Halt(); err != nil {
			glog.Errorf("halt: %v", err)
		}
		if err := dev.Halt(); err != nil {
			glog.Errorf("halt: %v", err)
		}
		if h, ok := r.display.(interface{ Halt() error }); ok {
			_ = h.Halt()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *samples == 0 {
		err = ctl.Run(ctx)
	} else {
		err = run(ctx, ctl, *samples)
	}
	if r.sim != nil && *tracePath != "" {
		if terr := saveTrace(r.sim.Trace(), *tracePath, *traceTx); terr != nil {
			glog.Errorf("trace: %v", terr)
		}
	}
	return err
}

func run(ctx context.Context, ctl *brakelight.Controller, n int) error {
	if err := ctl.Setup(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		s, err := ctl.Step(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		glog.V(1).Infof("#%d %s", i, s)
	}
	return nil
}

func saveTrace(t usii2ctest.Trace, path string, n int) error {
	var out usii2ctest.Trace
	for i, tx := range t.Transactions() {
		if i == n {
			break
		}
		out = append(out, tx...)
	}
	if err := wavedump.SavePNG(path, out, nil); err != nil {
		return err
	}
	glog.Infof("wrote %d symbols to %s", len(out), path)
	return nil
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := mainImpl(); err != nil {
		glog.Exitf("brakelight: %v", err)
	}
}
