// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"io"
	"time"

	"github.com/relabs-tech/enviro_monitor/internal/logger"
	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

// Options are shared by every metric a constructor creates.
type Options struct {
	HistoryLen  int
	MinInterval time.Duration
	Clock       func() time.Time
	Logger      logger.Logger
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func (o Options) metricOpts(extra ...metric.Option) []metric.Option {
	var opts []metric.Option
	if o.HistoryLen > 0 {
		opts = append(opts, metric.WithHistoryLen(o.HistoryLen))
	}
	opts = append(opts, metric.WithMinInterval(o.MinInterval))
	if o.Clock != nil {
		opts = append(opts, metric.WithClock(o.Clock))
	}
	if o.Logger != nil {
		opts = append(opts, metric.WithLogger(o.Logger))
	}
	return append(opts, extra...)
}

type halter interface {
	Halt() error
}

// haltCloser lets periph devices, which halt rather than close, own a Sensor.
type haltCloser struct {
	h halter
}

func (c haltCloser) Close() error { return c.h.Halt() }

// Closer adapts a device with a Halt method to io.Closer. nil stays nil.
func Closer(v any) io.Closer {
	switch d := v.(type) {
	case nil:
		return nil
	case io.Closer:
		return d
	case halter:
		return haltCloser{d}
	}
	return nil
}
