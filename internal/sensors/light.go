// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"io"
	"time"

	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

var (
	LightBins     = metric.Bins{1000, 5000, 10000, 30000}
	ProximityBins = metric.Bins{-1, 10, 100, 1500}
)

const (
	DefaultProximityThreshold = 1500
	DefaultProximityDebounce  = 500 * time.Millisecond
)

// LightProximity is the part of ltr559.Dev the metrics use.
type LightProximity interface {
	Lux() (float64, error)
	Proximity() (float64, error)
}

// Proximity turns the proximity metric into a button: a tap on the sensor
// is a reading above Threshold.
type Proximity struct {
	*metric.Metric

	Threshold float64
	Debounce  time.Duration

	lastPress time.Time
	now       func() time.Time
}

// NewProximity wraps m. The debounce window starts at construction, so a
// hand already over the sensor at boot does not register.
func NewProximity(m *metric.Metric, threshold float64, debounce time.Duration, now func() time.Time) *Proximity {
	if now == nil {
		now = time.Now
	}
	return &Proximity{
		Metric:    m,
		Threshold: threshold,
		Debounce:  debounce,
		lastPress: now(),
		now:       now,
	}
}

// CheckPress reads the sensor and reports whether it counts as a new press.
func (p *Proximity) CheckPress() (bool, error) {
	v, err := p.Read()
	if err != nil {
		return false, err
	}
	now := p.now()
	if v > p.Threshold && now.Sub(p.lastPress) > p.Debounce {
		p.lastPress = now
		return true, nil
	}
	return false, nil
}

// NewLTR559Sensor builds the light and proximity metrics over one device.
func NewLTR559Sensor(dev LightProximity, closer io.Closer, threshold float64, debounce time.Duration, o Options) (*metric.Sensor, *Proximity) {
	light := metric.New("light", "Lux", LightBins, metric.ReadFunc(dev.Lux), o.metricOpts()...)
	prox := metric.New("proximity", "mm", ProximityBins, metric.ReadFunc(dev.Proximity), o.metricOpts()...)

	return metric.NewSensor("ltr559", closer, light, prox), NewProximity(prox, threshold, debounce, o.Clock)
}
