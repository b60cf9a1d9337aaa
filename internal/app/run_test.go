// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/enviro_monitor/internal/config"
	"github.com/relabs-tech/enviro_monitor/internal/display"
)

func metricNames(m monitor) []string {
	var names []string
	for _, mm := range m.metrics {
		names = append(names, mm.Name)
	}
	return names
}

func TestBuildMonitorMock(t *testing.T) {
	cfg := config.Default()
	cfg.Mock = true

	d := openMock(cfg)
	_, ok := d.panel.(*display.ImagePanel)
	assert.True(t, ok)

	m := buildMonitor(cfg, d, nil)
	assert.Equal(t, []string{"temperature", "pressure", "humidity", "light", "noise"}, metricNames(m))
	assert.Len(t, m.sensors, 3)
	require.NotNil(t, m.proximity)
	assert.Equal(t, "proximity", m.proximity.Name)

	cfg.Sensors.Noise.Enabled = false
	cfg.Sensors.Particulates.Enabled = true
	m = buildMonitor(cfg, openMock(cfg), nil)
	assert.Equal(t, []string{"temperature", "pressure", "humidity", "light", "pm1", "pm2_5", "pm10"}, metricNames(m))
}

func TestLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := loop(ctx, time.Millisecond, func() {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestRunEnviroMock(t *testing.T) {
	cfg := config.Default()
	cfg.Mock = true
	cfg.Display.Interval = 0.01
	cfg.Sensors.Noise.Enabled = false

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, RunEnviro(ctx, cfg))
}
