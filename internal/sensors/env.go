// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

// DefaultCPUTempFactor scales how much CPU heat is subtracted from the
// BME280 temperature. Lower values compensate more.
const DefaultCPUTempFactor = 2.0

var (
	TemperatureBins = metric.Bins{4, 18, 28, 35}
	PressureBins    = metric.Bins{970, 990, 1013.25, 1020}
	HumidityBins    = metric.Bins{20, 30, 60, 70}
)

// EnvSenser is the part of bmxx80.Dev the metrics use.
type EnvSenser interface {
	Sense(e *physic.Env) error
}

// OpenBME280 opens the BME280 on an I²C bus.
func OpenBME280(bus i2c.Bus, addr uint16) (*bmxx80.Dev, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("BME280 init at 0x%02X: %w", addr, err)
	}
	return dev, nil
}

func sense(dev EnvSenser) (physic.Env, error) {
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		return e, fmt.Errorf("BME280 sense: %w", err)
	}
	return e, nil
}

// Compensate removes the CPU's heat from a temperature read next to it.
func Compensate(raw, avgCPU, factor float64) float64 {
	return raw - (avgCPU-raw)/factor
}

type compensatedTemperature struct {
	dev    EnvSenser
	cpu    *metric.Metric
	factor float64
}

// Read samples the CPU temperature first so its rolling average smooths the
// correction.
func (c *compensatedTemperature) Read() (float64, error) {
	if _, err := c.cpu.Read(); err != nil {
		return 0, err
	}
	e, err := sense(c.dev)
	if err != nil {
		return 0, err
	}
	return Compensate(e.Temperature.Celsius(), c.cpu.Average(), c.factor), nil
}

// NewBME280Sensor builds the temperature, pressure and humidity metrics, in
// that order, over one shared device. cpu feeds the temperature compensation.
func NewBME280Sensor(dev EnvSenser, closer io.Closer, cpu *metric.Metric, factor float64, o Options) *metric.Sensor {
	if factor == 0 {
		factor = DefaultCPUTempFactor
	}
	temperature := metric.New("temperature", "C", TemperatureBins,
		&compensatedTemperature{dev: dev, cpu: cpu, factor: factor}, o.metricOpts()...)

	pressure := metric.New("pressure", "hPa", PressureBins, metric.ReadFunc(func() (float64, error) {
		e, err := sense(dev)
		if err != nil {
			return 0, err
		}
		return float64(e.Pressure) / float64(physic.Pascal) / 100, nil
	}), o.metricOpts()...)

	humidity := metric.New("humidity", "%", HumidityBins, metric.ReadFunc(func() (float64, error) {
		e, err := sense(dev)
		if err != nil {
			return 0, err
		}
		return float64(e.Humidity) / float64(physic.PercentRH), nil
	}), o.metricOpts()...)

	return metric.NewSensor("bme280", closer, temperature, pressure, humidity)
}
