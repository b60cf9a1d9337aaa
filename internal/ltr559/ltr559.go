// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ltr559 reads the Lite-On LTR-559 ambient light and proximity sensor
// over I²C.
//
// Only what the monitor needs is implemented: both sensors in active mode with
// fixed gain and integration time, raw proximity counts and lux.
package ltr559

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddr is the fixed I²C address of the part.
const DefaultAddr uint16 = 0x23

const (
	regALSControl  = 0x80
	regPSControl   = 0x81
	regPSLED       = 0x82
	regPSNPulses   = 0x83
	regPSMeasRate  = 0x84
	regALSMeasRate = 0x85
	regPartID      = 0x86
	regALSDataCh1  = 0x88 // ch1 low, ch1 high, ch0 low, ch0 high
	regPSData      = 0x8D

	partID = 0x09 // upper nibble of PART_ID

	alsActive    = 0x01
	alsGain4x    = 0x02 << 2
	psActive     = 0x03
	psSaturation = 0x00
	ledPulse     = 0x1B // 60kHz, 100% duty, 50mA
	nPulses      = 0x01
	psRate       = 0x00 // 50ms
	alsRate50ms  = 0x08 // 50ms integration, 50ms repeat

	gain          = 4.0
	integrationMS = 50.0
)

// Channel coefficients by ch1 ratio bucket.
var (
	ch0Coeff = [4]float64{1.7743, 4.2785, 0.5926, 0}
	ch1Coeff = [4]float64{-1.1059, 1.9548, -0.1185, 0}
)

// Dev is an LTR-559 on an I²C bus. Methods are safe for concurrent use.
type Dev struct {
	mu sync.Mutex
	d  i2c.Dev
}

// New configures the sensor for continuous light and proximity measurement.
func New(bus i2c.Bus, addr uint16) (*Dev, error) {
	d := &Dev{d: i2c.Dev{Bus: bus, Addr: addr}}

	id, err := d.readReg(regPartID)
	if err != nil {
		return nil, fmt.Errorf("ltr559: read part id: %w", err)
	}
	if id>>4 != partID {
		return nil, fmt.Errorf("ltr559: unexpected part id 0x%02X", id)
	}

	setup := [][2]byte{
		{regALSControl, alsActive | alsGain4x},
		{regPSControl, psActive | psSaturation},
		{regPSLED, ledPulse},
		{regPSNPulses, nPulses},
		{regPSMeasRate, psRate},
		{regALSMeasRate, alsRate50ms},
	}
	for _, w := range setup {
		if err := d.writeReg(w[0], w[1]); err != nil {
			return nil, fmt.Errorf("ltr559: write 0x%02X: %w", w[0], err)
		}
	}
	return d, nil
}

func (d *Dev) readReg(reg byte) (byte, error) {
	var b [1]byte
	if err := d.d.Tx([]byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Dev) writeReg(reg, val byte) error {
	return d.d.Tx([]byte{reg, val}, nil)
}

// Proximity returns the raw 11-bit proximity count; higher is closer.
func (d *Dev) Proximity() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b [2]byte
	if err := d.d.Tx([]byte{regPSData}, b[:]); err != nil {
		return 0, fmt.Errorf("ltr559: read proximity: %w", err)
	}
	return float64(uint16(b[1]&0x07)<<8 | uint16(b[0])), nil
}

// Lux returns the ambient light level.
func (d *Dev) Lux() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b [4]byte
	if err := d.d.Tx([]byte{regALSDataCh1}, b[:]); err != nil {
		return 0, fmt.Errorf("ltr559: read als: %w", err)
	}
	ch1 := uint16(b[1])<<8 | uint16(b[0])
	ch0 := uint16(b[3])<<8 | uint16(b[2])
	return Lux(ch0, ch1), nil
}

// Lux converts raw channel counts to lux at the configured gain and
// integration time.
func Lux(ch0, ch1 uint16) float64 {
	ratio := 101.0
	if sum := float64(ch0) + float64(ch1); sum > 0 {
		ratio = float64(ch1) * 100 / sum
	}

	idx := 3
	switch {
	case ratio < 45:
		idx = 0
	case ratio < 64:
		idx = 1
	case ratio < 85:
		idx = 2
	}

	lux := float64(ch0)*ch0Coeff[idx] - float64(ch1)*ch1Coeff[idx]
	lux /= integrationMS / 100
	lux /= gain
	return max(lux, 0)
}

// Halt puts both sensors in standby.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeReg(regALSControl, 0); err != nil {
		return err
	}
	return d.writeReg(regPSControl, 0)
}

func (d *Dev) String() string { return fmt.Sprintf("LTR559{%s}", &d.d) }
