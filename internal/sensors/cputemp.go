// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

// CPUTempHistoryLen is short: the CPU average only smooths jitter.
const CPUTempHistoryLen = 5

const thermalZone = "/sys/class/thermal/thermal_zone0/temp"

// CPUTemperature reads the SoC temperature through the firmware tool, or
// the kernel thermal zone when vcgencmd is not installed.
type CPUTemperature struct {
	Command     func() ([]byte, error)
	ThermalPath string
}

func vcgencmd() ([]byte, error) {
	return exec.Command("vcgencmd", "measure_temp").Output()
}

func (c CPUTemperature) Read() (float64, error) {
	run := c.Command
	if run == nil {
		run = vcgencmd
	}
	out, err := run()
	if err == nil {
		return ParseVcgencmd(out)
	}

	path := c.ThermalPath
	if path == "" {
		path = thermalZone
	}
	data, zerr := os.ReadFile(path)
	if zerr != nil {
		return 0, fmt.Errorf("cpu temperature: vcgencmd: %v; thermal zone: %w", err, zerr)
	}
	milli, zerr := strconv.Atoi(strings.TrimSpace(string(data)))
	if zerr != nil {
		return 0, fmt.Errorf("cpu temperature: parse %s: %w", path, zerr)
	}
	return float64(milli) / 1000, nil
}

// ParseVcgencmd parses output such as "temp=39.5'C".
func ParseVcgencmd(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	_, v, ok := strings.Cut(s, "=")
	if !ok {
		return 0, fmt.Errorf("cpu temperature: unexpected output %q", s)
	}
	v, _, _ = strings.Cut(v, "'")
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("cpu temperature: %w", err)
	}
	return t, nil
}

// NewCPUTemperature returns the compensation metric. It keeps its own short
// history regardless of o.HistoryLen.
func NewCPUTemperature(r metric.Reader, o Options) *metric.Metric {
	o.HistoryLen = CPUTempHistoryLen
	return metric.New("cpu_temperature", "C", TemperatureBins, r, o.metricOpts()...)
}
