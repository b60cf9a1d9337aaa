// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/enviro_monitor/internal/pms5003"
)

// Mock generates smooth changing values for every device so the monitor
// runs without an Enviro board.
type Mock struct {
	start time.Time
	now   func() time.Time
}

// NewMock starts the waveforms at now(). A nil now uses the wall clock.
func NewMock(now func() time.Time) *Mock {
	if now == nil {
		now = time.Now
	}
	return &Mock{start: now(), now: now}
}

func (m *Mock) elapsed() float64 { return m.now().Sub(m.start).Seconds() }

func (m *Mock) Sense(e *physic.Env) error {
	t := m.elapsed()
	e.Temperature = physic.ZeroCelsius + physic.Temperature((24+6*math.Sin(t/60))*float64(physic.Kelvin))
	e.Pressure = physic.Pressure((1005 + 15*math.Cos(t/90)) * 100 * float64(physic.Pascal))
	e.Humidity = physic.RelativeHumidity((45 + 25*math.Sin(t/45)) * float64(physic.PercentRH))
	return nil
}

// CPUTemperature runs a few degrees above the mock ambient.
func (m *Mock) CPUTemperature() (float64, error) {
	return 48 + 3*math.Sin(m.elapsed()/20), nil
}

func (m *Mock) Lux() (float64, error) {
	return 8000 + 7500*math.Sin(m.elapsed()/30), nil
}

// Proximity pulses above the press threshold for 300ms every 7s.
func (m *Mock) Proximity() (float64, error) {
	if math.Mod(m.elapsed(), 7) < 0.3 {
		return 2000, nil
	}
	return 5, nil
}

func (m *Mock) Halt() error { return nil }

// Record returns a 440Hz tone whose loudness drifts slowly.
func (m *Mock) Record(samples, sampleRate int) ([]float64, error) {
	amp := 0.05 + 0.04*math.Sin(m.elapsed()/15)
	out := make([]float64, samples)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}
	return out, nil
}

func (m *Mock) ReadFrame() (pms5003.Frame, error) {
	t := m.elapsed()
	pm := func(base, swing float64) uint16 { return uint16(base + swing*math.Sin(t/40)) }
	f := pms5003.Frame{PM1: pm(6, 4), PM25: pm(12, 8), PM10: pm(20, 12)}
	f.PM1Std, f.PM25Std, f.PM10Std = f.PM1, f.PM25, f.PM10
	return f, nil
}
