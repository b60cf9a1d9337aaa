// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package enviro ties the sensors, the display and the publisher together.
//
// The screen has len(metrics)+2 modes: 0 lists every reading, 1 shows device
// status and every later mode graphs one metric. A tap on the proximity
// sensor advances to the next mode.
package enviro

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/relabs-tech/enviro_monitor/internal/display"
	"github.com/relabs-tech/enviro_monitor/internal/env"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

const (
	ModeAll    = 0
	ModeStatus = 1

	extraModes = 2
)

// Display is the screen the monitor renders to.
type Display interface {
	DrawList(statuses []metric.Status) error
	DrawGraph(title string, history []float64) error
	DrawTextBox(text string, fg, bg color.Color) error
	Off() error
}

// Publisher forwards readings off the device.
type Publisher interface {
	PublishJSON(ctx context.Context, v any) error
	Host() string
	Sent() int
	Close() error
}

// Button reports debounced presses.
type Button interface {
	CheckPress() (bool, error)
}

type Options struct {
	Display Display
	// Metrics are shown and published in this order.
	Metrics []*metric.Metric
	// Sensors own the devices behind Metrics and Button; closed on Close.
	Sensors   []*metric.Sensor
	Button    Button
	Publisher Publisher // nil when MQTT is disabled
	Connected func() bool
	Clock     func() time.Time
	Logger    logger.Logger
}

// Enviro is safe for concurrent use. One lock serialises sensor sweeps and
// rendering so the display and publish loops never share a device mid-read.
type Enviro struct {
	mu sync.Mutex

	display   Display
	metrics   []*metric.Metric
	sensors   []*metric.Sensor
	button    Button
	publisher Publisher
	connected func() bool
	now       func() time.Time
	log       logger.Logger

	mode   int
	start  time.Time
	latest env.Reading
}

func New(o Options) *Enviro {
	e := &Enviro{
		display:   o.Display,
		metrics:   o.Metrics,
		sensors:   o.Sensors,
		button:    o.Button,
		publisher: o.Publisher,
		connected: o.Connected,
		now:       o.Clock,
		log:       o.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logger.New("enviro")
	}
	if e.connected == nil {
		e.connected = func() bool { return false }
	}
	e.start = e.now()
	return e
}

// Modes is the number of display modes.
func (e *Enviro) Modes() int { return len(e.metrics) + extraModes }

// Mode is the current display mode.
func (e *Enviro) Mode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// CheckMode advances the mode when the button was pressed and returns it.
func (e *Enviro) CheckMode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkMode()
}

func (e *Enviro) checkMode() int {
	if e.button == nil {
		return e.mode
	}
	pressed, err := e.button.CheckPress()
	if err != nil {
		e.log.Warn("proximity read failed: %v", err)
		return e.mode
	}
	if pressed {
		e.cycleMode()
	}
	return e.mode
}

// CycleMode switches to the next mode, wrapping to ModeAll.
func (e *Enviro) CycleMode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cycleMode()
	return e.mode
}

func (e *Enviro) cycleMode() {
	e.mode = (e.mode + 1) % e.Modes()
	e.log.Info("switched to mode %d", e.mode)
}

// ActiveMetric is the graphed metric, nil in the list and status modes.
func (e *Enviro) ActiveMetric() *metric.Metric {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeMetric()
}

func (e *Enviro) activeMetric() *metric.Metric {
	i := e.mode - extraModes
	if i < 0 || i >= len(e.metrics) {
		return nil
	}
	return e.metrics[i]
}

// Render checks the button then draws a frame for the current mode.
func (e *Enviro) Render() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.checkMode() {
	case ModeAll:
		return e.displayAll()
	case ModeStatus:
		return e.displayStatus()
	default:
		return e.displayActiveSensor()
	}
}

// DisplayAll lists every metric coloured by its bin.
func (e *Enviro) DisplayAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayAll()
}

func (e *Enviro) displayAll() error {
	return e.display.DrawList(e.readAllStatuses())
}

// DisplayStatus shows connectivity, publisher and uptime.
func (e *Enviro) DisplayStatus() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayStatus()
}

func (e *Enviro) displayStatus() error {
	connected := e.connected()
	bg := display.BGRed
	if connected {
		bg = display.BGCyan
	}
	return e.display.DrawTextBox(e.statusText(connected), display.White, bg)
}

// DisplayActiveSensor refreshes and graphs the selected metric.
func (e *Enviro) DisplayActiveSensor() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayActiveSensor()
}

func (e *Enviro) displayActiveSensor() error {
	m := e.activeMetric()
	if m == nil {
		return nil
	}
	if _, err := m.Read(); err != nil {
		e.log.Warn("%v", err)
	}
	return e.display.DrawGraph(m.Format(), m.History())
}

// StatusText is the body of the status screen.
func (e *Enviro) StatusText() string {
	return e.statusText(e.connected())
}

func (e *Enviro) statusText(connected bool) string {
	wifi := "disconnected"
	if connected {
		wifi = "connected"
	}
	host, sent := "N/A", 0
	if e.publisher != nil {
		host, sent = e.publisher.Host(), e.publisher.Sent()
	}
	return fmt.Sprintf("WiFi: %s\nMQTT host: %s\nPackets sent: %d\nUptime: %s",
		wifi, host, sent, FormatUptime(e.Uptime()))
}

// Uptime is the time since New, truncated to whole seconds.
func (e *Enviro) Uptime() time.Duration {
	return e.now().Sub(e.start).Truncate(time.Second)
}

// FormatUptime renders d as H:MM:SS, prefixed with a day count past 24h.
func FormatUptime(d time.Duration) string {
	s := int64(d / time.Second)
	days, s := s/86400, s%86400
	hms := fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
	switch {
	case days == 1:
		return "1 day, " + hms
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, hms)
	}
	return hms
}

// readAll refreshes every metric. A failed read keeps the previous value.
func (e *Enviro) readAll() {
	for _, m := range e.metrics {
		if _, err := m.Read(); err != nil {
			e.log.Warn("%v", err)
		}
	}
}

// ReadAllValues refreshes every metric and maps name to value.
func (e *Enviro) ReadAllValues() env.Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readAllValues()
}

func (e *Enviro) readAllValues() env.Reading {
	e.readAll()
	r := make(env.Reading, len(e.metrics))
	for _, m := range e.metrics {
		r[m.Name] = m.Value()
	}
	e.latest = r
	return r
}

// ReadAllStatuses refreshes every metric and returns its display lines.
func (e *Enviro) ReadAllStatuses() []metric.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readAllStatuses()
}

func (e *Enviro) readAllStatuses() []metric.Status {
	e.readAll()
	out := make([]metric.Status, 0, len(e.metrics))
	for _, m := range e.metrics {
		out = append(out, m.Status())
	}
	return out
}

// Latest is the reading from the most recent Publish or ReadAllValues, or
// nil before the first.
func (e *Enviro) Latest() env.Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

// Publish reads every metric, logs the reading and sends it to the broker
// when one is configured.
func (e *Enviro) Publish(ctx context.Context) (env.Reading, error) {
	e.mu.Lock()
	r := e.readAllValues()
	e.mu.Unlock()

	if data, err := r.JSON(); err == nil {
		e.log.Info("%s", data)
	}
	if e.publisher == nil {
		return r, nil
	}
	return r, e.publisher.PublishJSON(ctx, r)
}

// Close blanks the display, disconnects the publisher and releases every
// sensor.
func (e *Enviro) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Warn("shutting down")
	var errs []error
	if e.display != nil {
		errs = append(errs, e.display.Off())
	}
	if e.publisher != nil {
		errs = append(errs, e.publisher.Close())
	}
	for _, s := range e.sensors {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
