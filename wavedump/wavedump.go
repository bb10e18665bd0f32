// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wavedump draws a recorded I²C trace as SCL and SDA waveforms, like
// a logic analyzer capture.
package wavedump

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/brakelight/usii2c/usii2ctest"
)

// Opts controls the layout.
type Opts struct {
	// CellWidth is the width in pixels of one clock.
	CellWidth int
	// FontSize is the label size in points.
	FontSize float64
}

// DefaultOpts is readable at 1:1.
var DefaultOpts = Opts{CellWidth: 16, FontSize: 10}

// Layout, in pixels.
const (
	marginLeft = 40
	marginRest = 8
	labelY     = 14
	sclHigh    = 26
	sclLow     = 50
	sdaHigh    = 70
	sdaLow     = 94
	height     = 104
)

// cell is one clock period split in quarters.
type cell struct {
	scl, sda [4]bool
}

var (
	idle    = cell{scl: [4]bool{true, true, true, true}, sda: [4]bool{true, true, true, true}}
	start   = cell{scl: [4]bool{true, true, true, true}, sda: [4]bool{true, true, false, false}}
	stop    = cell{scl: [4]bool{false, true, true, true}, sda: [4]bool{false, false, true, true}}
	bitLow  = cell{scl: [4]bool{false, true, true, false}}
	bitHigh = cell{scl: [4]bool{false, true, true, false}, sda: [4]bool{true, true, true, true}}
)

type label struct {
	text        string
	first, span int
}

// layout converts t to clock cells, with an idle cell at each end.
func layout(t usii2ctest.Trace) ([]cell, []label) {
	cells := []cell{idle}
	var labels []label
	add := func(text string, c ...cell) {
		labels = append(labels, label{text: text, first: len(cells), span: len(c)})
		cells = append(cells, c...)
	}
	for _, s := range t {
		switch s.Kind {
		case usii2ctest.Start:
			add("S", start)
		case usii2ctest.RepeatedStart:
			add("Sr", start)
		case usii2ctest.Stop:
			add("P", stop)
		case usii2ctest.ACK:
			add("A", bitLow)
		case usii2ctest.NACK:
			add("N", bitHigh)
		case usii2ctest.Byte:
			bits := make([]cell, 8)
			for i := range bits {
				if s.B&(0x80>>i) != 0 {
					bits[i] = bitHigh
				} else {
					bits[i] = bitLow
				}
			}
			add(fmt.Sprintf("0x%02X", s.B), bits...)
		}
	}
	return append(cells, idle), labels
}

var (
	faceOnce sync.Once
	ttf      *truetype.Font
	ttfErr   error
)

func face(size float64) (font.Face, error) {
	faceOnce.Do(func() {
		ttf, ttfErr = truetype.Parse(goregular.TTF)
	})
	if ttfErr != nil {
		return nil, fmt.Errorf("wavedump: %w", ttfErr)
	}
	return truetype.NewFace(ttf, &truetype.Options{Size: size}), nil
}

// Width returns the width in pixels of the rendering of t.
func Width(t usii2ctest.Trace, opts *Opts) int {
	if opts == nil {
		opts = &DefaultOpts
	}
	cells, _ := layout(t)
	return marginLeft + len(cells)*opts.CellWidth + marginRest
}

// Render draws t. opts may be nil.
func Render(t usii2ctest.Trace, opts *Opts) (image.Image, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.CellWidth < 4 {
		return nil, fmt.Errorf("wavedump: cell width %d is below 4", opts.CellWidth)
	}
	f, err := face(opts.FontSize)
	if err != nil {
		return nil, err
	}
	cells, labels := layout(t)
	w := float64(opts.CellWidth)
	dc := gg.NewContext(Width(t, opts), height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(f)

	dc.SetRGB(0.4, 0.4, 0.4)
	dc.DrawStringAnchored("SCL", marginRest, (sclHigh+sclLow)/2, 0, 0.5)
	dc.DrawStringAnchored("SDA", marginRest, (sdaHigh+sdaLow)/2, 0, 0.5)
	for _, l := range labels {
		x := marginLeft + (float64(l.first)+float64(l.span)/2)*w
		dc.DrawStringAnchored(l.text, x, labelY, 0.5, 0.5)
		if l.span > 1 {
			// Byte boundaries.
			x0 := marginLeft + float64(l.first)*w
			dc.DrawLine(x0, labelY+6, x0, height)
			dc.DrawLine(x0+float64(l.span)*w, labelY+6, x0+float64(l.span)*w, height)
		}
	}
	dc.SetLineWidth(0.5)
	dc.SetDash(2, 2)
	dc.Stroke()
	dc.SetDash()

	dc.SetLineWidth(2)
	dc.SetRGB(0, 0.5, 0)
	lane(dc, cells, w, sclHigh, sclLow, func(c cell) [4]bool { return c.scl })
	dc.SetRGB(0, 0, 0.7)
	lane(dc, cells, w, sdaHigh, sdaLow, func(c cell) [4]bool { return c.sda })
	return dc.Image(), nil
}

// lane strokes one waveform.
func lane(dc *gg.Context, cells []cell, w, high, low float64, level func(cell) [4]bool) {
	y := func(b bool) float64 {
		if b {
			return high
		}
		return low
	}
	x := float64(marginLeft)
	cur := level(cells[0])[0]
	dc.MoveTo(x, y(cur))
	for _, c := range cells {
		for _, b := range level(c) {
			if b != cur {
				dc.LineTo(x, y(b))
				cur = b
			}
			x += w / 4
			dc.LineTo(x, y(cur))
		}
	}
	dc.Stroke()
}

// EncodePNG renders t and writes it as a PNG.
func EncodePNG(out io.Writer, t usii2ctest.Trace, opts *Opts) error {
	img, err := Render(t, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(out)
}

// SavePNG renders t into the PNG file path.
func SavePNG(path string, t usii2ctest.Trace, opts *Opts) error {
	img, err := Render(t, opts)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}
