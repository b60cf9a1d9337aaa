// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/enviro_monitor/internal/errcode"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
	"github.com/relabs-tech/enviro_monitor/internal/metric"
	"github.com/relabs-tech/enviro_monitor/internal/pms5003"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testOptions(c *clock) Options {
	return Options{HistoryLen: 5, Clock: c.Now, Logger: logger.Noop()}
}

type fixedEnv struct {
	env   physic.Env
	err   error
	calls int
}

func (f *fixedEnv) Sense(e *physic.Env) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	*e = f.env
	return nil
}

func TestParseVcgencmd(t *testing.T) {
	v, err := ParseVcgencmd([]byte("temp=39.5'C\n"))
	require.NoError(t, err)
	assert.Equal(t, 39.5, v)

	_, err = ParseVcgencmd([]byte("error"))
	assert.Error(t, err)
}

func TestCPUTemperatureFallsBackToThermalZone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	require.NoError(t, os.WriteFile(path, []byte("41250\n"), 0o644))

	c := CPUTemperature{
		Command:     func() ([]byte, error) { return nil, errors.New("not found") },
		ThermalPath: path,
	}
	v, err := c.Read()
	require.NoError(t, err)
	assert.InDelta(t, 41.25, v, 1e-9)

	c.ThermalPath = filepath.Join(t.TempDir(), "missing")
	_, err = c.Read()
	assert.Error(t, err)
}

func TestCompensate(t *testing.T) {
	assert.Equal(t, 20.0, Compensate(30, 50, 2))
	assert.Equal(t, 30.0, Compensate(30, 30, 2))
}

func TestBME280Sensor(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	dev := &fixedEnv{env: physic.Env{
		Temperature: physic.ZeroCelsius + 30*physic.Kelvin,
		Pressure:    101325 * physic.Pascal,
		Humidity:    40 * physic.PercentRH,
	}}
	cpu := NewCPUTemperature(metric.ReadFunc(func() (float64, error) { return 50, nil }), testOptions(c))
	assert.Equal(t, CPUTempHistoryLen, cpu.Len())

	s := NewBME280Sensor(dev, nil, cpu, 2, testOptions(c))
	require.Len(t, s.Metrics, 3)

	for range CPUTempHistoryLen {
		require.NoError(t, s.ReadAll())
	}
	values := s.Values()
	assert.InDelta(t, 20, values["temperature"], 1e-9)
	assert.InDelta(t, 1013.25, values["pressure"], 1e-6)
	assert.InDelta(t, 40, values["humidity"], 1e-6)
}

func TestBME280SensorReadFailure(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	dev := &fixedEnv{err: errors.New("i2c nack")}
	cpu := NewCPUTemperature(metric.ReadFunc(func() (float64, error) { return 50, nil }), testOptions(c))
	s := NewBME280Sensor(dev, nil, cpu, 0, testOptions(c))

	err := s.ReadAll()
	require.Error(t, err)
	assert.Equal(t, errcode.SensorRead, errcode.KindOf(err))
	assert.Equal(t, 0.0, s.Values()["pressure"])
}

type fakeLight struct {
	lux, prox float64
}

func (f *fakeLight) Lux() (float64, error)       { return f.lux, nil }
func (f *fakeLight) Proximity() (float64, error) { return f.prox, nil }

func TestLTR559Sensor(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	dev := &fakeLight{lux: 12000, prox: 3}
	s, prox := NewLTR559Sensor(dev, nil, DefaultProximityThreshold, DefaultProximityDebounce, testOptions(c))

	require.NoError(t, s.ReadAll())
	assert.Equal(t, "light", s.Metrics[0].Name)
	assert.Equal(t, 12000.0, s.Metrics[0].Value())
	assert.Equal(t, 3, s.Metrics[0].BinIndex())
	assert.Same(t, s.Metrics[1], prox.Metric)
}

func TestProximityDebounce(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	dev := &fakeLight{prox: 2000}
	_, prox := NewLTR559Sensor(dev, nil, 1500, 500*time.Millisecond, testOptions(c))

	// Still inside the window that starts at construction.
	c.Advance(300 * time.Millisecond)
	pressed, err := prox.CheckPress()
	require.NoError(t, err)
	assert.False(t, pressed)

	c.Advance(300 * time.Millisecond)
	pressed, _ = prox.CheckPress()
	assert.True(t, pressed)

	c.Advance(300 * time.Millisecond)
	pressed, _ = prox.CheckPress()
	assert.False(t, pressed, "held hand inside the debounce window")

	c.Advance(300 * time.Millisecond)
	pressed, _ = prox.CheckPress()
	assert.True(t, pressed)

	dev.prox = 1500
	c.Advance(time.Second)
	pressed, _ = prox.CheckPress()
	assert.False(t, pressed, "threshold is exclusive")
}

func tone(freq float64, amp float64, n, rate int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func TestSpectrumPeak(t *testing.T) {
	mag := Spectrum(tone(440, 1, 8000, 16000), 16000)
	require.Len(t, mag, 8001)

	peak := 0
	for i, v := range mag {
		if v > mag[peak] {
			peak = i
		}
	}
	assert.Equal(t, 440, peak)
}

func TestNoiseProfile(t *testing.T) {
	p := NoiseProfile(make([]float64, 8000), 16000, 100, DefaultLowBand, DefaultMidBand)
	assert.Equal(t, Profile{}, p)

	p = NoiseProfile(tone(440, 0.5, 8000, 16000), 16000, 100, DefaultLowBand, DefaultMidBand)
	assert.Greater(t, p.Low, p.Mid)
	assert.Greater(t, p.Low, p.High)
	assert.InDelta(t, (p.Low+p.Mid+p.High)/3, p.Total, 1e-12)
}

type fakeRecorder struct {
	samples []float64
	err     error
	asked   int
}

func (f *fakeRecorder) Record(samples, _ int) ([]float64, error) {
	f.asked = samples
	return f.samples, f.err
}

func TestNoiseRead(t *testing.T) {
	rec := &fakeRecorder{samples: tone(440, 0.5, 8000, 16000)}
	n := NewNoise(rec, 0, 0, DefaultNoiseFloor)

	v, err := n.Read()
	require.NoError(t, err)
	assert.Equal(t, 8000, rec.asked)

	p := NoiseProfile(rec.samples, 16000, 100, DefaultLowBand, DefaultMidBand)
	assert.InDelta(t, p.Total*128, v, 1e-9)

	_, err = n.AmplitudeAt(100, 9000)
	assert.Error(t, err)
	amp, err := n.AmplitudeAt(430, 450)
	require.NoError(t, err)
	assert.Greater(t, amp, 0.0)

	rec.err = errors.New("no device")
	_, err = n.Read()
	assert.Error(t, err)
}

func TestDecodeS16LE(t *testing.T) {
	v, err := decodeS16LE([]byte{0x00, 0x40, 0x00, 0xC0, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5}, v)
}

type countingFrames struct {
	calls int
}

func (c *countingFrames) ReadFrame() (pms5003.Frame, error) {
	c.calls++
	return pms5003.Frame{PM1: 4, PM25: 20, PM10: 160}, nil
}

func TestParticulatesShareFrame(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	dev := &countingFrames{}
	s := NewParticulatesSensor(dev, nil, testOptions(c))

	require.NoError(t, s.ReadAll())
	assert.Equal(t, 1, dev.calls)
	assert.Equal(t, map[string]float64{"pm1": 4, "pm2_5": 20, "pm10": 160}, s.Values())
	assert.Equal(t, []int{0, 2, 4}, []int{s.Metrics[0].BinIndex(), s.Metrics[1].BinIndex(), s.Metrics[2].BinIndex()})

	c.Advance(2 * time.Second)
	require.NoError(t, s.ReadAll())
	assert.Equal(t, 2, dev.calls)
}

func TestMock(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	m := NewMock(c.Now)

	p, _ := m.Proximity()
	assert.Greater(t, p, float64(DefaultProximityThreshold))
	c.Advance(time.Second)
	p, _ = m.Proximity()
	assert.Less(t, p, float64(DefaultProximityThreshold))

	var e physic.Env
	require.NoError(t, m.Sense(&e))
	assert.InDelta(t, 24, e.Temperature.Celsius(), 6)

	samples, err := m.Record(100, 16000)
	require.NoError(t, err)
	assert.Len(t, samples, 100)
}

func TestCloser(t *testing.T) {
	assert.Nil(t, Closer(nil))
	m := NewMock(nil)
	require.NotNil(t, Closer(m))
	assert.NoError(t, Closer(m).Close())
}
