// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/cmplx"
	"os/exec"
	"strconv"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/relabs-tech/enviro_monitor/internal/metric"
)

var NoiseBins = metric.Bins{10, 20, 65, 85}

const (
	DefaultSampleRate = 16000
	DefaultDuration   = 500 * time.Millisecond
	DefaultNoiseFloor = 100
	DefaultLowBand    = 0.12
	DefaultMidBand    = 0.36

	// noiseScale maps the mean FFT amplitude onto a rough dB scale.
	noiseScale = 128
)

// Recorder captures mono samples in [-1, 1].
type Recorder interface {
	Record(samples, sampleRate int) ([]float64, error)
}

// ARecord records from an ALSA device with the arecord tool.
type ARecord struct {
	Device string
}

func (a ARecord) Record(samples, sampleRate int) ([]float64, error) {
	dev := a.Device
	if dev == "" {
		dev = "default"
	}
	cmd := exec.Command("arecord", "-q", "-D", dev, "-t", "raw", "-f", "S16_LE", "-c", "1",
		"-r", strconv.Itoa(sampleRate), "-s", strconv.Itoa(samples))
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("arecord %s: %w", dev, err)
	}
	return decodeS16LE(out)
}

func decodeS16LE(b []byte) ([]float64, error) {
	raw := make([]int16, len(b)/2)
	if err := binary.Read(bytes.NewReader(b[:len(raw)*2]), binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	out := make([]float64, len(raw))
	for i, s := range raw {
		out[i] = float64(s) / 32768
	}
	return out, nil
}

// Profile is the mean spectral amplitude per band.
type Profile struct {
	Low, Mid, High, Total float64
}

// Noise measures ambient sound level from a microphone.
type Noise struct {
	Recorder   Recorder
	SampleRate int
	Duration   time.Duration
	NoiseFloor int
	Low, Mid   float64
}

// NewNoise returns a Noise with the default bands.
func NewNoise(r Recorder, sampleRate int, duration time.Duration, noiseFloor int) *Noise {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Noise{
		Recorder:   r,
		SampleRate: sampleRate,
		Duration:   duration,
		NoiseFloor: noiseFloor,
		Low:        DefaultLowBand,
		Mid:        DefaultMidBand,
	}
}

func (n *Noise) record() ([]float64, error) {
	count := int(n.Duration.Seconds() * float64(n.SampleRate))
	samples, err := n.Recorder.Record(count, n.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("noise record: %w", err)
	}
	return samples, nil
}

// Spectrum is the magnitude of the real FFT of samples, zero padded or
// truncated to size points. It has size/2+1 entries.
func Spectrum(samples []float64, size int) []float64 {
	seq := make([]float64, size)
	copy(seq, samples)
	coeff := fourier.NewFFT(size).Coefficients(nil, seq)
	mag := make([]float64, len(coeff))
	for i, c := range coeff {
		mag[i] = cmplx.Abs(c)
	}
	return mag
}

func mean(v []float64, from, to int) float64 {
	from = max(from, 0)
	to = min(to, len(v))
	if to <= from {
		return 0
	}
	var sum float64
	for _, x := range v[from:to] {
		sum += x
	}
	return sum / float64(to-from)
}

// NoiseProfile splits the spectrum above noiseFloor Hz into three bands.
// low and mid are fractions of the usable range; high takes the rest.
func NoiseProfile(samples []float64, sampleRate, noiseFloor int, low, mid float64) Profile {
	high := 1 - low - mid
	mag := Spectrum(samples, sampleRate)

	count := float64(sampleRate/2 - noiseFloor)
	midStart := noiseFloor + int(count*low)
	highStart := midStart + int(count*mid)
	ceiling := highStart + int(count*high)

	p := Profile{
		Low:  mean(mag, noiseFloor, midStart),
		Mid:  mean(mag, midStart, highStart),
		High: mean(mag, highStart, ceiling),
	}
	p.Total = (p.Low + p.Mid + p.High) / 3
	return p
}

// Profile records a sample and returns its band profile.
func (n *Noise) Profile() (Profile, error) {
	samples, err := n.record()
	if err != nil {
		return Profile{}, err
	}
	return NoiseProfile(samples, n.SampleRate, n.NoiseFloor, n.Low, n.Mid), nil
}

// AmplitudeAt records a sample and returns the mean amplitude between start
// and end Hz.
func (n *Noise) AmplitudeAt(start, end int) (float64, error) {
	nyquist := n.SampleRate / 2
	if start > nyquist || end > nyquist {
		return 0, fmt.Errorf("noise: maximum frequency is %d Hz", nyquist)
	}
	samples, err := n.record()
	if err != nil {
		return 0, err
	}
	return mean(Spectrum(samples, n.SampleRate), start, end), nil
}

func (n *Noise) Read() (float64, error) {
	p, err := n.Profile()
	if err != nil {
		return 0, err
	}
	return p.Total * noiseScale, nil
}

// NewNoiseSensor wraps n in the noise metric.
func NewNoiseSensor(n *Noise, o Options) *metric.Sensor {
	return metric.NewSensor("noise", nil, metric.New("noise", "dB", NoiseBins, n, o.metricOpts()...))
}
