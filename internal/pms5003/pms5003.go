// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pms5003 decodes the Plantower PMS5003 particulate sensor stream.
// In its default active mode the sensor pushes one 32-byte frame per second.
package pms5003

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
)

const (
	frameLen  = 32
	start1    = 0x42
	start2    = 0x4D
	bodyLen   = frameLen - 4
	nDataWord = 13
)

var ErrChecksum = errors.New("pms5003: checksum mismatch")

// Frame is one decoded measurement. Mass concentrations are µg/m³, counts
// are particles beyond the given diameter per 0.1 L of air.
type Frame struct {
	PM1Std, PM25Std, PM10Std uint16 // CF=1, factory environment
	PM1, PM25, PM10          uint16 // atmospheric environment

	Gt03um, Gt05um, Gt1um, Gt25um, Gt5um, Gt10um uint16
}

// Decode parses a complete frame, start bytes included.
func Decode(b []byte) (Frame, error) {
	if len(b) != frameLen {
		return Frame{}, fmt.Errorf("pms5003: frame is %d bytes, want %d", len(b), frameLen)
	}
	if b[0] != start1 || b[1] != start2 {
		return Frame{}, fmt.Errorf("pms5003: bad start bytes 0x%02X 0x%02X", b[0], b[1])
	}
	if n := binary.BigEndian.Uint16(b[2:4]); n != bodyLen {
		return Frame{}, fmt.Errorf("pms5003: frame length field %d, want %d", n, bodyLen)
	}

	var sum uint16
	for _, c := range b[:frameLen-2] {
		sum += uint16(c)
	}
	if sum != binary.BigEndian.Uint16(b[frameLen-2:]) {
		return Frame{}, ErrChecksum
	}

	var w [nDataWord]uint16
	for i := range w {
		w[i] = binary.BigEndian.Uint16(b[4+2*i:])
	}
	return Frame{
		PM1Std: w[0], PM25Std: w[1], PM10Std: w[2],
		PM1: w[3], PM25: w[4], PM10: w[5],
		Gt03um: w[6], Gt05um: w[7], Gt1um: w[8], Gt25um: w[9], Gt5um: w[10], Gt10um: w[11],
	}, nil
}

// Dev reads frames from a serial stream.
type Dev struct {
	rc io.ReadCloser
	r  *bufio.Reader
}

// New wraps an already open stream.
func New(rc io.ReadCloser) *Dev {
	return &Dev{rc: rc, r: bufio.NewReaderSize(rc, 4*frameLen)}
}

// Open opens the UART the sensor is wired to.
func Open(port string, baud int) (*Dev, error) {
	rc, err := serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, fmt.Errorf("pms5003: open %s: %w", port, err)
	}
	return New(rc), nil
}

// ReadFrame blocks until the next valid frame. Bytes before a start sequence
// are skipped, so reading can begin mid-frame.
func (d *Dev) ReadFrame() (Frame, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if b != start1 {
			continue
		}
		next, err := d.r.Peek(1)
		if err != nil {
			return Frame{}, err
		}
		if next[0] != start2 {
			continue
		}

		buf := make([]byte, frameLen)
		buf[0] = start1
		if _, err := io.ReadFull(d.r, buf[1:]); err != nil {
			return Frame{}, err
		}
		return Decode(buf)
	}
}

func (d *Dev) Close() error { return d.rc.Close() }
