// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/enviro_monitor/internal/logger"
)

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

func TestFormatReading(t *testing.T) {
	line, err := FormatReading("enviro/00000000abcdef01", []byte(`{"temperature": 21.3, "humidity": 40}`))
	require.NoError(t, err)
	assert.Equal(t, "[00000000abcdef01] humidity=40.00 temperature=21.30", line)

	_, err = FormatReading("enviro/x", []byte("not json"))
	assert.Error(t, err)
}

func TestPrintReadingsLogsBadPayload(t *testing.T) {
	buf := logger.NewBufferLogger()
	prev := consoleLog
	consoleLog = buf
	t.Cleanup(func() { consoleLog = prev })

	var out bytes.Buffer
	handle := printReadings(&out)
	handle(nil, fakeMessage{topic: "enviro/a", payload: []byte("not json")})
	handle(nil, fakeMessage{topic: "enviro/a", payload: []byte(`{"pm10": 3}`)})

	assert.Equal(t, "[a] pm10=3.00\n", out.String())
	assert.Equal(t, 1, buf.Count("WARN"))
}
