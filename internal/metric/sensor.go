// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metric

import (
	"errors"
	"io"
)

// Sensor is a physical device exposing one or more metrics. It owns the device
// handle the metrics share.
type Sensor struct {
	Name    string
	Metrics []*Metric

	closer io.Closer
}

// NewSensor groups metrics backed by one device. closer may be nil.
func NewSensor(name string, closer io.Closer, metrics ...*Metric) *Sensor {
	return &Sensor{Name: name, Metrics: metrics, closer: closer}
}

// ReadAll refreshes every metric. All metrics are attempted; failures are
// joined.
func (s *Sensor) ReadAll() error {
	var errs []error
	for _, m := range s.Metrics {
		if _, err := m.Read(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Values maps metric name to its latest value.
func (s *Sensor) Values() map[string]float64 {
	out := make(map[string]float64, len(s.Metrics))
	for _, m := range s.Metrics {
		out[m.Name] = m.Value()
	}
	return out
}

// Statuses returns one display line per metric, in metric order.
func (s *Sensor) Statuses() []Status {
	out := make([]Status, 0, len(s.Metrics))
	for _, m := range s.Metrics {
		out = append(out, m.Status())
	}
	return out
}

// Close releases the device handle.
func (s *Sensor) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
