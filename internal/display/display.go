// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	periphdisplay "periph.io/x/conn/v3/display"

	"github.com/relabs-tech/enviro_monitor/internal/errcode"
	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

const (
	// TopPos is the height of the title bar above a graph.
	TopPos = 25
	// Offset is the margin around list text.
	Offset = 2

	LargeFontSize = 20
	SmallFontSize = 10
)

var (
	Black = color.RGBA{0, 0, 0, 255}
	White = color.RGBA{255, 255, 255, 255}

	// Status screen backgrounds.
	BGCyan = color.RGBA{0, 170, 170, 255}
	BGRed  = color.RGBA{85, 15, 15, 255}
)

// Panel is the physical screen. st7735.Dev, ssd1306.Dev and ImagePanel
// satisfy it.
type Panel interface {
	periphdisplay.Drawer
}

// Backlighter is implemented by panels with a switchable backlight.
type Backlighter interface {
	Backlight(on bool) error
}

// Display renders metric screens into a frame and pushes it to a panel.
//
// Display is not safe for concurrent use.
type Display struct {
	panel   Panel
	frame   *image.RGBA
	large   font.Face
	small   font.Face
	columns int
}

// New prepares fonts and a frame matching the panel bounds.
func New(p Panel, columns int) (*Display, error) {
	if columns < 1 {
		columns = 1
	}
	f, err := opentype.Parse(gomedium.TTF)
	if err != nil {
		return nil, errcode.Wrap(errcode.Display, "load font", err)
	}
	large, err := opentype.NewFace(f, &opentype.FaceOptions{Size: LargeFontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, errcode.Wrap(errcode.Display, "load font", err)
	}
	small, err := opentype.NewFace(f, &opentype.FaceOptions{Size: SmallFontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, errcode.Wrap(errcode.Display, "load font", err)
	}

	b := p.Bounds()
	return &Display{
		panel:   p,
		frame:   image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy())),
		large:   large,
		small:   small,
		columns: columns,
	}, nil
}

func (d *Display) Width() int  { return d.frame.Bounds().Dx() }
func (d *Display) Height() int { return d.frame.Bounds().Dy() }

// Frame returns a copy of the last rendered frame.
func (d *Display) Frame() *image.RGBA {
	out := image.NewRGBA(d.frame.Bounds())
	copy(out.Pix, d.frame.Pix)
	return out
}

func (d *Display) clear(c color.Color) {
	draw.Draw(d.frame, d.frame.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (d *Display) show() error {
	if err := d.panel.Draw(d.panel.Bounds(), d.frame, image.Point{}); err != nil {
		return errcode.Wrap(errcode.Display, "draw", err)
	}
	return nil
}

// text draws s with its top-left corner at (x, y).
func (d *Display) text(face font.Face, x, y int, s string, c color.Color) {
	dr := &font.Drawer{
		Dst:  d.frame,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	dr.DrawString(s)
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// DrawList shows one coloured line per status, filling columns top to bottom.
func (d *Display) DrawList(statuses []metric.Status) error {
	d.clear(Black)
	if len(statuses) > 0 {
		rows := int(math.Ceil(float64(len(statuses)) / float64(d.columns)))
		colSize := d.Width() / d.columns
		rowSize := d.Height() / rows
		for i, s := range statuses {
			x := Offset + colSize*(i/rows)
			y := Offset + rowSize*(i%rows)
			d.text(d.small, x, y, s.Text, s.Color)
		}
	}
	return d.show()
}

// DrawGraph plots the most recent history that fits the width, coloured by
// value, under a title bar.
func (d *Display) DrawGraph(title string, history []float64) error {
	w, h := d.Width(), d.Height()
	d.clear(White)

	if len(history) > w {
		history = history[len(history)-w:]
	}
	span := float64(h - TopPos)
	for i, v := range Normalize(history) {
		fill(d.frame, image.Rect(i, TopPos, i+1, h), Hue(v))
		y := h - int(TopPos+v*span) + TopPos
		fill(d.frame, image.Rect(i, y, i+1, y+1), Black)
	}

	d.text(d.large, 0, 0, title, Black)
	return d.show()
}

// DrawTextBox centres multi-line text on a solid background.
func (d *Display) DrawTextBox(text string, fg, bg color.Color) error {
	d.clear(bg)
	lines := strings.Split(text, "\n")
	m := d.small.Metrics()
	lineH := m.Height.Ceil()
	y := (d.Height() - lineH*len(lines)) / 2
	for _, line := range lines {
		adv := font.MeasureString(d.small, line).Ceil()
		d.text(d.small, (d.Width()-adv)/2, y, line, fg)
		y += lineH
	}
	return d.show()
}

// Off blanks the screen and turns the backlight off when the panel has one.
func (d *Display) Off() error {
	d.clear(Black)
	if err := d.show(); err != nil {
		return err
	}
	if bl, ok := d.panel.(Backlighter); ok {
		if err := bl.Backlight(false); err != nil {
			return errcode.Wrap(errcode.Display, "backlight", err)
		}
	}
	return nil
}

func (d *Display) String() string {
	return fmt.Sprintf("Display{%s %dx%d}", d.panel, d.Width(), d.Height())
}

// Normalize rescales values to (0, 1] as (v-min+1)/(max-min+1).
func Normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - lo + 1) / (hi - lo + 1)
	}
	return out
}

// Hue maps a normalised value to a colour, 0 blue through 1 red.
// Channels are truncated to 0..255, not rounded as RGB255 would.
func Hue(v float64) color.RGBA {
	c := colorful.Hsv((1-v)*0.6*360, 1, 1).Clamped()
	return color.RGBA{uint8(c.R * 255), uint8(c.G * 255), uint8(c.B * 255), 255}
}
