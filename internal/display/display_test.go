// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

func newTestDisplay(t *testing.T) (*Display, *ImagePanel) {
	t.Helper()
	p := NewImagePanel(160, 80)
	d, err := New(p, 1)
	require.NoError(t, err)
	return d, p
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float64{1, 2, 3, 4, 5})
	want := []float64{0.2, 0.4, 0.6, 0.8, 1.0}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}

	assert.Equal(t, []float64{1, 1, 1}, Normalize([]float64{7, 7, 7}))
	assert.Nil(t, Normalize(nil))
}

func TestHue(t *testing.T) {
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, Hue(1))

	blue := Hue(0)
	assert.Equal(t, uint8(0), blue.R)
	assert.InDelta(t, 102, int(blue.G), 1)
	assert.Equal(t, uint8(255), blue.B)

	// green channel is 0.36*255 = 91.8, truncated
	assert.Equal(t, color.RGBA{255, 91, 0, 255}, Hue(0.9))
}

func nonBlack(p *ImagePanel, x0, y0, x1, y1 int) bool {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if p.At(x, y) != Black {
				return true
			}
		}
	}
	return false
}

func TestDrawList(t *testing.T) {
	d, p := newTestDisplay(t)
	statuses := []metric.Status{
		{Text: "temperature: 21.3 C", Color: metric.Green},
		{Text: "pressure: 1013.2 hPa", Color: metric.Yellow},
	}
	require.NoError(t, d.DrawList(statuses))
	assert.Equal(t, 1, p.Draws())

	assert.True(t, nonBlack(p, 0, 0, 160, 40), "first row")
	assert.True(t, nonBlack(p, 0, 40, 160, 80), "second row")
	assert.Equal(t, Black, p.At(159, 0))

	require.NoError(t, d.DrawList(nil))
	assert.False(t, nonBlack(p, 0, 0, 160, 80))
}

func TestDrawListColumns(t *testing.T) {
	p := NewImagePanel(160, 80)
	d, err := New(p, 2)
	require.NoError(t, err)

	statuses := []metric.Status{
		{Text: "a: 1.0", Color: metric.Red},
		{Text: "b: 1.0", Color: metric.Red},
		{Text: "c: 1.0", Color: metric.Red},
	}
	require.NoError(t, d.DrawList(statuses))
	// Two rows per column; the third status starts the second column.
	assert.True(t, nonBlack(p, 80, 0, 160, 40))
	assert.False(t, nonBlack(p, 80, 40, 160, 80))
}

func TestDrawGraph(t *testing.T) {
	d, p := newTestDisplay(t)
	require.NoError(t, d.DrawGraph("x", []float64{1, 2, 3, 4, 5}))

	assert.Equal(t, White, p.At(159, 1))
	assert.Equal(t, White, p.At(10, 79))
	assert.Equal(t, Hue(0.2), p.At(0, 79))
	assert.Equal(t, Black, p.At(0, 69))
	assert.Equal(t, Black, p.At(4, TopPos))
	assert.Equal(t, Hue(1), p.At(4, 79))
}

func TestDrawGraphKeepsNewest(t *testing.T) {
	d, p := newTestDisplay(t)
	history := make([]float64, 200)
	history[199] = 10
	require.NoError(t, d.DrawGraph("", history))

	assert.Equal(t, Black, p.At(159, TopPos))
	assert.Equal(t, Hue(1.0/11), p.At(0, 79))
}

func TestDrawTextBox(t *testing.T) {
	d, p := newTestDisplay(t)
	require.NoError(t, d.DrawTextBox("WiFi: connected\nUptime: 0:00:01", White, BGCyan))

	assert.Equal(t, BGCyan, p.At(0, 0))
	assert.Equal(t, BGCyan, p.At(159, 79))

	frame := d.Frame()
	var text int
	for y := 20; y < 60; y++ {
		for x := 0; x < 160; x++ {
			if frame.RGBAAt(x, y) != BGCyan {
				text++
			}
		}
	}
	assert.Positive(t, text, "text is centred vertically")
}

func TestOff(t *testing.T) {
	d, p := newTestDisplay(t)
	require.NoError(t, d.DrawTextBox("hello", White, BGRed))
	require.True(t, p.BacklightOn())

	require.NoError(t, d.Off())
	assert.False(t, p.BacklightOn())
	assert.False(t, nonBlack(p, 0, 0, 160, 80))
}

func TestFrameIsCopy(t *testing.T) {
	d, p := newTestDisplay(t)
	require.NoError(t, d.DrawTextBox("", White, BGRed))

	f := d.Frame()
	f.Set(0, 0, White)
	assert.Equal(t, BGRed, d.Frame().RGBAAt(0, 0))

	data, err := p.PNG()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
}

func TestMirror(t *testing.T) {
	hw := NewImagePanel(160, 80)
	m := Mirror{Panel: hw, Copy: NewImagePanel(160, 80)}
	d, err := New(m, 1)
	require.NoError(t, err)

	require.NoError(t, d.DrawTextBox("", White, BGCyan))
	assert.Equal(t, BGCyan, hw.At(10, 10))
	assert.Equal(t, BGCyan, m.Copy.At(10, 10))

	require.NoError(t, d.Off())
	assert.False(t, hw.BacklightOn())
	assert.False(t, m.Copy.BacklightOn())
}
