// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metric holds the state of single measured quantities: a rolling
// history of readings, read throttling and severity colouring.
package metric

import (
	"fmt"
	"image/color"
	"sort"
	"time"

	"github.com/relabs-tech/enviro_monitor/internal/errcode"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
)

const (
	// DefaultHistoryLen matches the panel width, one column per reading.
	DefaultHistoryLen  = 160
	DefaultMinInterval = 100 * time.Millisecond
)

// Bin palette, very low to very high.
var (
	Blue   = color.RGBA{0, 0, 255, 255}
	Cyan   = color.RGBA{0, 255, 255, 255}
	Green  = color.RGBA{0, 255, 0, 255}
	Yellow = color.RGBA{255, 255, 0, 255}
	Red    = color.RGBA{255, 0, 0, 255}

	BinColors = [5]color.RGBA{Blue, Cyan, Green, Yellow, Red}
)

// Bins are four ascending thresholds splitting values into five severities.
type Bins [4]float64

// Index counts the thresholds at or below v, so a value equal to a threshold
// lands in the bucket above it.
func (b Bins) Index(v float64) int {
	return sort.Search(len(b), func(i int) bool { return b[i] > v })
}

// Reader performs one physical read of a quantity.
type Reader interface {
	Read() (float64, error)
}

// ReadFunc adapts a function to Reader.
type ReadFunc func() (float64, error)

func (f ReadFunc) Read() (float64, error) { return f() }

// Metric is a single quantity with a fixed-length history.
//
// Metric is not safe for concurrent use; callers serialise sweeps.
type Metric struct {
	Name string
	Unit string
	Bins Bins

	raw         Reader
	history     []float64 // ring buffer, head is the oldest entry
	head        int
	lastRead    time.Time
	minInterval time.Duration
	now         func() time.Time
	log         logger.Logger
}

// Option customises a Metric.
type Option func(*Metric)

// WithHistoryLen sets the number of retained readings.
func WithHistoryLen(n int) Option {
	return func(m *Metric) {
		if n > 0 {
			m.history = make([]float64, n)
		}
	}
}

// WithMinInterval sets the minimum time between two physical reads.
func WithMinInterval(d time.Duration) Option {
	return func(m *Metric) { m.minInterval = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Metric) { m.now = now }
}

// WithLogger replaces the default logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Metric) { m.log = l }
}

// New creates a metric whose history is pre-filled with zeros.
func New(name, unit string, bins Bins, raw Reader, opts ...Option) *Metric {
	m := &Metric{
		Name:        name,
		Unit:        unit,
		Bins:        bins,
		raw:         raw,
		history:     make([]float64, DefaultHistoryLen),
		minInterval: DefaultMinInterval,
		now:         time.Now,
		log:         logger.New("metric"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Value is the most recent reading.
func (m *Metric) Value() float64 {
	return m.history[(m.head+len(m.history)-1)%len(m.history)]
}

// Len is the history capacity, constant for the metric's lifetime.
func (m *Metric) Len() int { return len(m.history) }

// History returns the retained readings, oldest first.
func (m *Metric) History() []float64 {
	out := make([]float64, 0, len(m.history))
	out = append(out, m.history[m.head:]...)
	return append(out, m.history[:m.head]...)
}

func (m *Metric) push(v float64) {
	m.history[m.head] = v
	m.head = (m.head + 1) % len(m.history)
}

// Read refreshes the metric if the minimum interval has passed since the last
// successful read, and returns the latest value either way. When the device
// read fails the previous value is returned together with a sensor_read error.
func (m *Metric) Read() (float64, error) {
	now := m.now()
	if !m.lastRead.IsZero() && now.Sub(m.lastRead) < m.minInterval {
		m.log.Debug("skipping read for %s", m.Name)
		return m.Value(), nil
	}

	v, err := m.raw.Read()
	if err != nil {
		return m.Value(), errcode.Wrap(errcode.SensorRead, m.Name, err)
	}
	m.lastRead = now
	m.push(v)
	return v, nil
}

// Average is the mean of the retained history.
func (m *Metric) Average() float64 {
	var sum float64
	for _, v := range m.history {
		sum += v
	}
	return sum / float64(len(m.history))
}

// BinIndex is the severity of the current value, 0 (very low) to 4 (very high).
func (m *Metric) BinIndex() int { return m.Bins.Index(m.Value()) }

// BinColor is the palette colour for the current value.
func (m *Metric) BinColor() color.RGBA { return BinColors[m.BinIndex()] }

// Format renders the current value for display, e.g. "humidity: 41.3 %".
func (m *Metric) Format() string {
	return fmt.Sprintf("%s: %.1f %s", m.Name, m.Value(), m.Unit)
}

// Status is a formatted line and its severity colour.
type Status struct {
	Text  string
	Color color.RGBA
}

func (m *Metric) Status() Status {
	return Status{Text: m.Format(), Color: m.BinColor()}
}
