// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"io"
	"sync"
	"time"

	"github.com/relabs-tech/enviro_monitor/internal/metric"
	"github.com/relabs-tech/enviro_monitor/internal/pms5003"
)

var (
	PM1Bins  = metric.Bins{5, 15, 35, 75}
	PM25Bins = metric.Bins{5, 15, 35, 75}
	PM10Bins = metric.Bins{15, 45, 100, 150}
)

// FrameReader is the part of pms5003.Dev the metrics use.
type FrameReader interface {
	ReadFrame() (pms5003.Frame, error)
}

// frameCache reads one frame per sweep and serves all three metrics from it.
type frameCache struct {
	mu     sync.Mutex
	dev    FrameReader
	maxAge time.Duration
	now    func() time.Time

	last   pms5003.Frame
	lastAt time.Time
}

func (c *frameCache) frame() (pms5003.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.lastAt.IsZero() && now.Sub(c.lastAt) < c.maxAge {
		return c.last, nil
	}
	f, err := c.dev.ReadFrame()
	if err != nil {
		return c.last, err
	}
	c.last, c.lastAt = f, now
	return f, nil
}

func (c *frameCache) reader(pick func(pms5003.Frame) uint16) metric.Reader {
	return metric.ReadFunc(func() (float64, error) {
		f, err := c.frame()
		if err != nil {
			return 0, err
		}
		return float64(pick(f)), nil
	})
}

// NewParticulatesSensor builds pm1, pm2_5 and pm10 over one PMS5003. The
// sensor streams a frame roughly every second, so frames are reused for
// that long.
func NewParticulatesSensor(dev FrameReader, closer io.Closer, o Options) *metric.Sensor {
	now := o.Clock
	if now == nil {
		now = time.Now
	}
	c := &frameCache{dev: dev, maxAge: time.Second, now: now}

	unit := "ug/m3"
	return metric.NewSensor("pms5003", closer,
		metric.New("pm1", unit, PM1Bins, c.reader(func(f pms5003.Frame) uint16 { return f.PM1 }), o.metricOpts()...),
		metric.New("pm2_5", unit, PM25Bins, c.reader(func(f pms5003.Frame) uint16 { return f.PM25 }), o.metricOpts()...),
		metric.New("pm10", unit, PM10Bins, c.reader(func(f pms5003.Frame) uint16 { return f.PM10 }), o.metricOpts()...),
	)
}
