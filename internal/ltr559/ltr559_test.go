// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ltr559

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestLux(t *testing.T) {
	assert.Equal(t, 0.0, Lux(0, 0))

	// ratio 20: 1.7743*ch0 + 1.1059*ch1
	assert.InDelta(t, 410.155, Lux(400, 100), 1e-6)

	// ratio 50: 4.2785*ch0 - 1.9548*ch1
	assert.InDelta(t, 116.185, Lux(100, 100), 1e-6)

	// ratio 75: 0.5926*ch0 + 0.1185*ch1
	assert.InDelta(t, 47.405, Lux(100, 300), 1e-6)

	// ratio above 85 gives no usable reading
	assert.Equal(t, 0.0, Lux(10, 990))
}

func TestNewAndRead(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddr, W: []byte{regPartID}, R: []byte{0x92}},
			{Addr: DefaultAddr, W: []byte{regALSControl, alsActive | alsGain4x}},
			{Addr: DefaultAddr, W: []byte{regPSControl, psActive}},
			{Addr: DefaultAddr, W: []byte{regPSLED, ledPulse}},
			{Addr: DefaultAddr, W: []byte{regPSNPulses, nPulses}},
			{Addr: DefaultAddr, W: []byte{regPSMeasRate, psRate}},
			{Addr: DefaultAddr, W: []byte{regALSMeasRate, alsRate50ms}},
			{Addr: DefaultAddr, W: []byte{regPSData}, R: []byte{0xDC, 0x05}},
			{Addr: DefaultAddr, W: []byte{regALSDataCh1}, R: []byte{100, 0, 0x90, 0x01}},
		},
	}
	dev, err := New(bus, DefaultAddr)
	require.NoError(t, err)

	p, err := dev.Proximity()
	require.NoError(t, err)
	assert.Equal(t, 1500.0, p)

	lux, err := dev.Lux()
	require.NoError(t, err)
	assert.InDelta(t, 410.155, lux, 1e-6)

	require.NoError(t, bus.Close())
}

func TestNewRejectsWrongPart(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: DefaultAddr, W: []byte{regPartID}, R: []byte{0x60}}},
		DontPanic: true,
	}
	_, err := New(bus, DefaultAddr)
	assert.ErrorContains(t, err, "unexpected part id")
}
