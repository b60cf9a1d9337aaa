// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
)

// ImagePanel is an in-memory panel. It backs mock mode and the web view.
type ImagePanel struct {
	mu        sync.RWMutex
	img       *image.RGBA
	backlight bool
	draws     int
}

func NewImagePanel(width, height int) *ImagePanel {
	return &ImagePanel{img: image.NewRGBA(image.Rect(0, 0, width, height)), backlight: true}
}

func (p *ImagePanel) String() string { return "ImagePanel" }

func (p *ImagePanel) ColorModel() color.Model { return color.RGBAModel }

func (p *ImagePanel) Bounds() image.Rectangle { return p.img.Bounds() }

func (p *ImagePanel) Halt() error { return nil }

func (p *ImagePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	draw.Draw(p.img, r, src, sp, draw.Src)
	p.draws++
	return nil
}

func (p *ImagePanel) Backlight(on bool) error {
	p.mu.Lock()
	p.backlight = on
	p.mu.Unlock()
	return nil
}

// BacklightOn reports the last backlight state set.
func (p *ImagePanel) BacklightOn() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backlight
}

// Draws counts frames pushed to the panel.
func (p *ImagePanel) Draws() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.draws
}

func (p *ImagePanel) At(x, y int) color.RGBA {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.img.RGBAAt(x, y)
}

// PNG encodes the current panel contents.
func (p *ImagePanel) PNG() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Mirror draws to a hardware panel and keeps a copy in an ImagePanel.
type Mirror struct {
	Panel
	Copy *ImagePanel
}

func (m Mirror) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if err := m.Copy.Draw(r, src, sp); err != nil {
		return err
	}
	return m.Panel.Draw(r, src, sp)
}

func (m Mirror) Backlight(on bool) error {
	_ = m.Copy.Backlight(on)
	if bl, ok := m.Panel.(Backlighter); ok {
		return bl.Backlight(on)
	}
	return nil
}
