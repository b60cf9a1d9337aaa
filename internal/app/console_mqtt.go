// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/enviro_monitor/internal/config"
	"github.com/relabs-tech/enviro_monitor/internal/env"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
	"github.com/relabs-tech/enviro_monitor/internal/publisher"
)

var consoleLog = logger.New("console")

// RunConsoleMQTT prints every reading published under the configured topic
// until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg config.MQTTConfig, out io.Writer) error {
	o := publisher.Options{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		TLS:      cfg.TLS,
	}
	opts := publisher.ClientOptions("", o).
		SetClientID("enviro-console-" + uuid.NewString()[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	consoleLog.Info("connected to MQTT broker at %s", o.Broker())

	topic := cfg.Topic + "/+"
	token := client.Subscribe(topic, 0, printReadings(out))
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	consoleLog.Info("subscribed to %s", topic)

	<-ctx.Done()
	consoleLog.Info("shutting down")
	client.Disconnect(250)
	return nil
}

// printReadings writes one line per message and skips undecodable payloads.
func printReadings(out io.Writer) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		line, err := FormatReading(msg.Topic(), msg.Payload())
		if err != nil {
			consoleLog.Warn("%s unmarshal: %v", msg.Topic(), err)
			return
		}
		fmt.Fprintln(out, line)
	}
}

// FormatReading renders a payload as "[device] name=value ..." with names
// sorted. The device is the last topic segment.
func FormatReading(topic string, payload []byte) (string, error) {
	r, err := env.Decode(payload)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", path.Base(topic))
	for _, name := range r.Names() {
		fmt.Fprintf(&b, " %s=%.2f", name, r[name])
	}
	return b.String(), nil
}
