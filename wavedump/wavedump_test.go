// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wavedump

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/brakelight/usii2c/usii2ctest"
)

var write = usii2ctest.Trace{
	{Kind: usii2ctest.Start},
	{Kind: usii2ctest.Byte, B: 0xd0},
	{Kind: usii2ctest.ACK},
	{Kind: usii2ctest.Stop},
}

func TestLayout(t *testing.T) {
	cells, labels := layout(write)
	if len(cells) != 13 {
		t.Fatalf("%d cells", len(cells))
	}
	want := []label{{"S", 1, 1}, {"0xD0", 2, 8}, {"A", 10, 1}, {"P", 11, 1}}
	if diff := cmp.Diff(want, labels, cmp.AllowUnexported(label{})); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}
	// 0xD0 = 1101 0000
	if cells[2] != bitHigh || cells[4] != bitLow || cells[5] != bitHigh || cells[9] != bitLow {
		t.Fatal("byte bits misplaced")
	}
}

func white(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestRender(t *testing.T) {
	img, err := Render(write, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 256, height) {
		t.Fatalf("bounds %s", got)
	}
	if w := Width(write, nil); w != 256 {
		t.Fatalf("Width = %d", w)
	}
	idleX := marginLeft + DefaultOpts.CellWidth/2
	if white(img, idleX, sdaHigh) || !white(img, idleX, sdaLow) {
		t.Fatal("SDA not high while idle")
	}
	ackX := marginLeft + 10*DefaultOpts.CellWidth + DefaultOpts.CellWidth/2
	if !white(img, ackX, sdaHigh) || white(img, ackX, sdaLow) {
		t.Fatal("SDA not low on ACK")
	}
	if white(img, ackX, sclHigh) {
		t.Fatal("SCL not high in the middle of a clock")
	}
}

func TestRenderInvalid(t *testing.T) {
	if _, err := Render(write, &Opts{CellWidth: 2, FontSize: 10}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, write, nil); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 256 {
		t.Fatalf("bounds %s", img.Bounds())
	}

	path := filepath.Join(t.TempDir(), "trace.png")
	if err := SavePNG(path, write, &Opts{CellWidth: 8, FontSize: 8}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != marginLeft+13*8+marginRest {
		t.Fatalf("width %d", cfg.Width)
	}
}
