// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/enviro_monitor/internal/config"
	"github.com/relabs-tech/enviro_monitor/internal/display"
	"github.com/relabs-tech/enviro_monitor/internal/enviro"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
	"github.com/relabs-tech/enviro_monitor/internal/metric"
	"github.com/relabs-tech/enviro_monitor/internal/publisher"
	"github.com/relabs-tech/enviro_monitor/internal/sysinfo"
)

// RunEnviro brings up the devices, then renders and publishes until ctx is
// cancelled. Cleanup runs once both loops have stopped.
func RunEnviro(ctx context.Context, cfg *config.Config) error {
	log := logger.New("enviro")
	log.Debug("config: %+v", cfg.Redacted())

	var (
		d   *devices
		err error
	)
	if cfg.Mock {
		log.Info("using mock devices")
		d = openMock(cfg)
	} else {
		d, err = openHardware(cfg, logger.New("hardware"))
		if err != nil {
			return err
		}
	}
	defer func() {
		if err := d.closeBuses(); err != nil {
			log.Warn("close buses: %v", err)
		}
	}()

	mon := buildMonitor(cfg, d, nil)

	// Panel copy served by the web view.
	var frames *display.ImagePanel
	var disp enviro.Display
	if d.panel != nil {
		panel := d.panel
		if ip, ok := panel.(*display.ImagePanel); ok {
			frames = ip
		} else if cfg.Web.Enabled {
			b := panel.Bounds()
			frames = display.NewImagePanel(b.Dx(), b.Dy())
			panel = display.Mirror{Panel: panel, Copy: frames}
		}
		dd, err := display.New(panel, cfg.Display.Columns)
		if err != nil {
			closeSensors(mon.sensors, log)
			return err
		}
		disp = dd
	}

	deviceID := sysinfo.DeviceID(sysinfo.CPUInfoPath)
	log.Info("device id %s", deviceID)

	var pub enviro.Publisher
	if cfg.MQTT.Enabled {
		p, err := publisher.New(deviceID, publisher.Options{
			Host:          cfg.MQTT.Host,
			Port:          cfg.MQTT.Port,
			Topic:         cfg.MQTT.Topic,
			Username:      cfg.MQTT.Username,
			Password:      cfg.MQTT.Password,
			TLS:           cfg.MQTT.TLS,
			RetryAttempts: cfg.MQTT.RetryAttempts,
			RetryDelay:    cfg.MQTT.RetryBaseDelay(),
		})
		if err != nil {
			closeSensors(mon.sensors, log)
			return err
		}
		pub = p
	}

	e := enviro.New(enviro.Options{
		Display:   disp,
		Metrics:   mon.metrics,
		Sensors:   mon.sensors,
		Button:    mon.proximity,
		Publisher: pub,
		Connected: sysinfo.Connected,
		Logger:    log,
	})

	g, gctx := errgroup.WithContext(ctx)
	if disp != nil {
		g.Go(func() error {
			return loop(gctx, cfg.Display.UpdateInterval(), func() {
				if err := e.Render(); err != nil {
					log.Error("render: %v", err)
				}
			})
		})
	}
	if pub != nil || cfg.Web.Enabled {
		g.Go(func() error {
			return loop(gctx, cfg.MQTT.PublishInterval(), func() {
				if _, err := e.Publish(gctx); err != nil {
					log.Error("%v", err)
				}
			})
		})
	}
	if cfg.Web.Enabled {
		var fs frameSource
		if frames != nil {
			fs = frames
		}
		addr := fmt.Sprintf(":%d", cfg.Web.Port)
		g.Go(func() error {
			return serveWeb(gctx, addr, NewWebHandler(gctx, e, fs, time.Second))
		})
	}

	log.Info("running with %d metrics, %d modes", len(mon.metrics), e.Modes())
	err = g.Wait()
	if cerr := e.Close(); cerr != nil {
		log.Warn("close: %v", cerr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loop runs fn now and then on every tick until ctx is done.
func loop(ctx context.Context, interval time.Duration, fn func()) error {
	fn()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

func closeSensors(ss []*metric.Sensor, log logger.Logger) {
	for _, s := range ss {
		if err := s.Close(); err != nil {
			log.Warn("close %s: %v", s.Name, err)
		}
	}
}
