// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console shows the brake light LEDs on the terminal using ANSI
// color codes.
//
// Useful while running against the simulated sensor, or to mirror the LEDs
// of a real board.
package console

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/brakelight/brakelight"
)

// Opts represents the options available for this display.
type Opts struct {
	// Lamps is the number of LEDs shown. 0 selects 4.
	Lamps int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Lit and Dark are the LED colors for each state.
	Lit, Dark color.NRGBA
	// Out defaults to a colorable stdout.
	Out io.Writer

	_ struct{}
}

// DefaultOpts shows four red LEDs.
var DefaultOpts = Opts{
	Lamps: 4,
	Lit:   color.NRGBA{R: 255, A: 255},
	Dark:  color.NRGBA{R: 48, G: 16, B: 16, A: 255},
}

// Dev is a row of LEDs drawn on the console.
type Dev struct {
	w          io.Writer
	palette    ansi256.Palette
	lit, dark  color.NRGBA
	showsLabel bool

	mu     sync.Mutex
	state  brakelight.State
	pixels []byte
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console. opts may be nil.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	n := opts.Lamps
	if n <= 0 {
		n = 4
	}
	return &Dev{
		w:          w,
		palette:    *p,
		lit:        opts.Lit,
		dark:       opts.Dark,
		showsLabel: true,
		pixels:     make([]byte, 3*n),
	}
}

func (d *Dev) String() string {
	return "Console"
}

// Show implements brakelight.Display.
func (d *Dev) Show(s brakelight.State) error {
	c := d.dark
	if s == brakelight.Lit {
		c = d.lit
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	d.showsLabel = true
	for i := 0; i < len(d.pixels); i += 3 {
		d.pixels[i], d.pixels[i+1], d.pixels[i+2] = c.R, c.G, c.B
	}
	_, err := d.refresh()
	return err
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and moves to the next line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Write accepts a stream of raw RGB pixels, one triplet per LED.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels)%3 != 0 {
		return 0, errors.New("console: invalid RGB stream length")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.pixels, pixels)
	d.showsLabel = false
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, len(d.pixels)/3, 1)
}

// Draw implements display.Drawer. Only the first row of src is used.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	d.mu.Lock()
	defer d.mu.Unlock()
	for x := r.Min.X; x < r.Max.X; x++ {
		c := color.NRGBAModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y)).(color.NRGBA)
		d.pixels[3*x], d.pixels[3*x+1], d.pixels[3*x+2] = c.R, c.G, c.B
	}
	d.showsLabel = false
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < len(d.pixels); i += 3 {
		c := color.NRGBA{d.pixels[i], d.pixels[i+1], d.pixels[i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	if d.showsLabel {
		_, _ = fmt.Fprintf(&d.buf, "%-5s", d.state)
	}
	_, err := d.buf.WriteTo(d.w)
	return len(d.pixels), err
}

var _ brakelight.Display = &Dev{}
var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
