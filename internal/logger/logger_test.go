// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		SetDebug(false)
	})
	return &buf
}

func TestStdLoggerPrefix(t *testing.T) {
	buf := captureLog(t)
	l := New("display")

	l.Info("frame %d", 3)
	l.Warn("slow blit")
	l.Error("panel gone")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"display: frame 3",
		"display: WARN slow blit",
		"display: ERROR panel gone",
	}, lines)
}

func TestDebugGate(t *testing.T) {
	buf := captureLog(t)
	l := New("metric")

	SetDebug(false)
	l.Debug("skipping read")
	assert.Empty(t, buf.String())

	SetDebug(true)
	l.Debug("skipping read")
	assert.Equal(t, "metric: DEBUG skipping read\n", buf.String())
}

func TestBufferLogger(t *testing.T) {
	b := NewBufferLogger()
	b.Info("a")
	b.Warn("b %s", "c")
	b.Warn("d")

	assert.Equal(t, 2, b.Count("WARN"))
	assert.Equal(t, Message{Level: "WARN", Message: "b c"}, b.Messages()[1])
}
