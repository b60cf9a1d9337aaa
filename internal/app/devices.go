// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/enviro_monitor/internal/config"
	"github.com/relabs-tech/enviro_monitor/internal/display"
	"github.com/relabs-tech/enviro_monitor/internal/errcode"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
	"github.com/relabs-tech/enviro_monitor/internal/ltr559"
	"github.com/relabs-tech/enviro_monitor/internal/metric"
	"github.com/relabs-tech/enviro_monitor/internal/pms5003"
	"github.com/relabs-tech/enviro_monitor/internal/sensors"
	"github.com/relabs-tech/enviro_monitor/internal/st7735"
)

// devices are the raw handles behind the metrics, real or mocked.
type devices struct {
	panel display.Panel // nil when the display is disabled

	env      sensors.EnvSenser
	cpu      metric.Reader
	light    sensors.LightProximity
	recorder sensors.Recorder    // nil when noise is disabled
	frames   sensors.FrameReader // nil when particulates are disabled

	envCloser, lightCloser, framesCloser io.Closer

	// buses are closed after every device on them.
	buses []io.Closer
}

func (d *devices) closeBuses() error {
	var errs []error
	for _, b := range d.buses {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

func openMock(cfg *config.Config) *devices {
	m := sensors.NewMock(nil)
	d := &devices{
		env:   m,
		cpu:   metric.ReadFunc(m.CPUTemperature),
		light: m,
	}
	if cfg.Display.Enabled {
		d.panel = display.NewImagePanel(cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Sensors.Noise.Enabled {
		d.recorder = m
	}
	if cfg.Sensors.Particulates.Enabled {
		d.frames = m
	}
	return d
}

func openHardware(cfg *config.Config, log logger.Logger) (*devices, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.Sensors.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", cfg.Sensors.I2CBus, err)
	}
	d := &devices{
		cpu:   sensors.CPUTemperature{},
		buses: []io.Closer{bus},
	}
	fail := func(err error) (*devices, error) {
		_ = d.closeBuses()
		return nil, err
	}

	bme, err := sensors.OpenBME280(bus, cfg.Sensors.BME280Addr)
	if err != nil {
		return fail(err)
	}
	d.env, d.envCloser = bme, sensors.Closer(bme)
	log.Info("BME280 initialized at 0x%02X", cfg.Sensors.BME280Addr)

	ltr, err := ltr559.New(bus, cfg.Sensors.LTR559Addr)
	if err != nil {
		return fail(err)
	}
	d.light, d.lightCloser = ltr, sensors.Closer(ltr)
	log.Info("LTR559 initialized at 0x%02X", cfg.Sensors.LTR559Addr)

	if cfg.Sensors.Noise.Enabled {
		d.recorder = sensors.ARecord{Device: cfg.Sensors.Noise.Device}
	}

	if p := cfg.Sensors.Particulates; p.Enabled {
		pms, err := pms5003.Open(p.Port, p.BaudRate)
		if err != nil {
			return fail(err)
		}
		d.frames, d.framesCloser = pms, pms
		log.Info("PMS5003 opened on %s", p.Port)
	}

	if cfg.Display.Enabled {
		panel, err := openPanel(cfg.Display, bus, d)
		if err != nil {
			return fail(errcode.Wrap(errcode.Display, "open "+cfg.Display.Driver, err))
		}
		d.panel = panel
		log.Info("display initialized: %s", panel)
	}
	return d, nil
}

func openPanel(cfg config.DisplayConfig, bus i2c.Bus, d *devices) (display.Panel, error) {
	if cfg.Driver == config.DriverSSD1306 {
		return ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("SPI open %s: %w", cfg.SPIPort, err)
	}
	d.buses = append(d.buses, port)

	conn, err := port.Connect(physic.Frequency(cfg.SPISpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("SPI connect: %w", err)
	}

	dc, err := pin(cfg.DCPin)
	if err != nil {
		return nil, err
	}
	rst, err := pin(cfg.ResetPin)
	if err != nil {
		return nil, err
	}
	bl, err := pin(cfg.BacklightPin)
	if err != nil {
		return nil, err
	}

	opts := st7735.DefaultOpts
	opts.Width, opts.Height = cfg.Width, cfg.Height
	opts.ColOffset, opts.RowOffset = cfg.ColOffset, cfg.RowOffset
	return st7735.New(conn, dc, rst, bl, &opts)
}

// pin looks up a GPIO by name. An empty name means not wired.
func pin(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %s not found", name)
	}
	return p, nil
}

// monitor is everything the run loops need, built from devices.
type monitor struct {
	metrics   []*metric.Metric
	sensors   []*metric.Sensor
	proximity *sensors.Proximity
}

func buildMonitor(cfg *config.Config, d *devices, clock func() time.Time) monitor {
	o := sensors.Options{
		HistoryLen:  cfg.Sensors.HistoryLen,
		MinInterval: cfg.ReadInterval(),
		Clock:       clock,
		Logger:      logger.New("metric"),
	}

	cpu := sensors.NewCPUTemperature(d.cpu, o)
	bme := sensors.NewBME280Sensor(d.env, d.envCloser, cpu, cfg.Sensors.CPUTempFactor, o)
	ltr, prox := sensors.NewLTR559Sensor(d.light, d.lightCloser,
		cfg.Sensors.ProximityThreshold, cfg.Sensors.Debounce(), o)

	m := monitor{proximity: prox}
	m.sensors = append(m.sensors, bme, ltr)
	// Proximity is the mode button and is not shown.
	m.metrics = append(m.metrics, bme.Metrics...)
	m.metrics = append(m.metrics, ltr.Metrics[0])

	if d.recorder != nil {
		n := cfg.Sensors.Noise
		noise := sensors.NewNoiseSensor(sensors.NewNoise(d.recorder, n.SampleRate, n.CaptureDuration(), n.NoiseFloor), o)
		m.sensors = append(m.sensors, noise)
		m.metrics = append(m.metrics, noise.Metrics...)
	}
	if d.frames != nil {
		pm := sensors.NewParticulatesSensor(d.frames, d.framesCloser, o)
		m.sensors = append(m.sensors, pm)
		m.metrics = append(m.metrics, pm.Metrics...)
	}
	return m
}
