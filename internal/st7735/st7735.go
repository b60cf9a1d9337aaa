// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package st7735 drives a Sitronix ST7735 TFT panel over SPI with a
// data/command GPIO, as fitted on the 0.96" 160x80 Enviro LCD.
package st7735

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVOFF  = 0x20
	cmdINVON   = 0x21
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A
	cmdFRMCTR1 = 0xB1
	cmdFRMCTR2 = 0xB2
	cmdFRMCTR3 = 0xB3
	cmdINVCTR  = 0xB4
	cmdPWCTR1  = 0xC0
	cmdPWCTR2  = 0xC1
	cmdPWCTR3  = 0xC2
	cmdPWCTR4  = 0xC3
	cmdPWCTR5  = 0xC4
	cmdVMCTR1  = 0xC5
	cmdGMCTRP1 = 0xE0
	cmdGMCTRN1 = 0xE1

	colmod16bit = 0x05

	// MADCTL row/column exchange with mirrored rows: landscape, connector left.
	MADCTLLandscape = 0xA8

	defaultMaxTx = 4096
)

// Opts describes the panel geometry.
type Opts struct {
	Width, Height int // visible area after rotation
	// Offsets of the visible area inside the controller's 132x162 RAM.
	ColOffset, RowOffset int
	MADCTL               byte
	Invert               bool
}

// DefaultOpts fits the 0.96" 160x80 IPS panel in landscape.
var DefaultOpts = Opts{
	Width:     160,
	Height:    80,
	ColOffset: 1,
	RowOffset: 26,
	MADCTL:    MADCTLLandscape,
	Invert:    true,
}

var sleep = time.Sleep

// Dev is an open ST7735 panel. It implements periph's display.Drawer.
type Dev struct {
	c     spi.Conn
	dc    gpio.PinOut
	rst   gpio.PinOut
	bl    gpio.PinOut
	opts  Opts
	maxTx int
	buf   []byte
}

// New resets and initialises the panel. rst and bl may be nil.
func New(c spi.Conn, dc, rst, bl gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil {
		return nil, errors.New("st7735: data/command pin is required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{
		c:     c,
		dc:    dc,
		rst:   rst,
		bl:    bl,
		opts:  *opts,
		maxTx: defaultMaxTx,
		buf:   make([]byte, opts.Width*opts.Height*2),
	}
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		d.maxTx = l.MaxTxSize()
	}

	if err := d.init(); err != nil {
		return nil, fmt.Errorf("st7735: init: %w", err)
	}
	if err := d.Backlight(true); err != nil {
		return nil, fmt.Errorf("st7735: backlight: %w", err)
	}
	return d, nil
}

func (d *Dev) init() error {
	if d.rst != nil {
		for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
			if err := d.rst.Out(l); err != nil {
				return err
			}
			sleep(10 * time.Millisecond)
		}
	}

	if err := d.command(cmdSWRESET); err != nil {
		return err
	}
	sleep(150 * time.Millisecond)
	if err := d.command(cmdSLPOUT); err != nil {
		return err
	}
	sleep(500 * time.Millisecond)

	inv := byte(cmdINVOFF)
	if d.opts.Invert {
		inv = cmdINVON
	}
	seq := []struct {
		cmd  byte
		data []byte
	}{
		{cmdFRMCTR1, []byte{0x01, 0x2C, 0x2D}},
		{cmdFRMCTR2, []byte{0x01, 0x2C, 0x2D}},
		{cmdFRMCTR3, []byte{0x01, 0x2C, 0x2D, 0x01, 0x2C, 0x2D}},
		{cmdINVCTR, []byte{0x07}},
		{cmdPWCTR1, []byte{0xA2, 0x02, 0x84}},
		{cmdPWCTR2, []byte{0x0A, 0x00}},
		{cmdPWCTR3, []byte{0x0A, 0x00}},
		{cmdPWCTR4, []byte{0x8A, 0x2A}},
		{cmdPWCTR5, []byte{0x8A, 0xEE}},
		{cmdVMCTR1, []byte{0x0E}},
		{inv, nil},
		{cmdMADCTL, []byte{d.opts.MADCTL}},
		{cmdCOLMOD, []byte{colmod16bit}},
		{cmdGMCTRP1, []byte{0x02, 0x1C, 0x07, 0x12, 0x37, 0x32, 0x29, 0x2D, 0x29, 0x25, 0x2B, 0x39, 0x00, 0x01, 0x03, 0x10}},
		{cmdGMCTRN1, []byte{0x03, 0x1D, 0x07, 0x06, 0x2E, 0x2C, 0x29, 0x2D, 0x2E, 0x2E, 0x37, 0x3F, 0x00, 0x00, 0x02, 0x10}},
		{cmdNORON, nil},
	}
	for _, s := range seq {
		if err := d.command(s.cmd, s.data...); err != nil {
			return err
		}
	}
	sleep(10 * time.Millisecond)
	if err := d.command(cmdDISPON); err != nil {
		return err
	}
	sleep(100 * time.Millisecond)
	return nil
}

func (d *Dev) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return d.data(data)
}

func (d *Dev) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(b) > 0 {
		n := min(len(b), d.maxTx)
		if err := d.c.Tx(b[:n], nil); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (d *Dev) setWindow(r image.Rectangle) error {
	x0, x1 := r.Min.X+d.opts.ColOffset, r.Max.X-1+d.opts.ColOffset
	y0, y1 := r.Min.Y+d.opts.RowOffset, r.Max.Y-1+d.opts.RowOffset
	if err := d.command(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdRASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.command(cmdRAMWR)
}

// RGB565 packs c into the panel's big-endian 16-bit format.
func RGB565(c color.Color) (hi, lo byte) {
	r, g, b, _ := c.RGBA()
	v := uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11)
	return byte(v >> 8), byte(v)
}

// Draw copies src into the panel area r, starting at sp in src.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			hi, lo := RGB565(src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y))
			d.buf[n], d.buf[n+1] = hi, lo
			n += 2
		}
	}
	if err := d.setWindow(r); err != nil {
		return fmt.Errorf("st7735: set window: %w", err)
	}
	if err := d.data(d.buf[:n]); err != nil {
		return fmt.Errorf("st7735: write pixels: %w", err)
	}
	return nil
}

// Backlight switches the backlight pin, if wired.
func (d *Dev) Backlight(on bool) error {
	if d.bl == nil {
		return nil
	}
	return d.bl.Out(gpio.Level(on))
}

// Halt blanks the panel and turns the backlight off.
func (d *Dev) Halt() error {
	return errors.Join(d.command(cmdDISPOFF), d.Backlight(false))
}

func (d *Dev) ColorModel() color.Model { return color.RGBAModel }

func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

func (d *Dev) String() string {
	return fmt.Sprintf("ST7735{%s, %dx%d}", d.c, d.opts.Width, d.opts.Height)
}
