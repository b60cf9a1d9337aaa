// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package publisher sends readings to an MQTT broker as JSON.
package publisher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/enviro_monitor/internal/errcode"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
	"github.com/relabs-tech/enviro_monitor/internal/sysinfo"
)

// quiesce is how long Close lets in-flight messages drain, in ms.
const quiesce = 250

type Options struct {
	Host     string
	Port     int
	Topic    string
	Username string
	Password string
	TLS      bool

	RetryAttempts uint
	RetryDelay    time.Duration

	Logger logger.Logger
}

// ClientID is "rpi-<deviceID>". Boards without a serial get a random suffix
// so two of them can share a broker.
func ClientID(deviceID string) string {
	if deviceID == "" || deviceID == sysinfo.UnknownID {
		return "rpi-" + uuid.NewString()[:8]
	}
	return "rpi-" + deviceID
}

// Broker is the paho broker URL for o.
func (o Options) Broker() string {
	scheme := "tcp"
	if o.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port)
}

// ClientOptions builds the paho options for a device.
func ClientOptions(deviceID string, o Options) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker()).
		SetClientID(ClientID(deviceID)).
		SetAutoReconnect(true)
	if o.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	if o.Username != "" && o.Password != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}
	return opts
}

// Publisher publishes to "<topic>/<deviceID>" and counts delivered messages.
type Publisher struct {
	client mqtt.Client
	host   string
	topic  string
	sent   atomic.Int64

	attempts uint
	delay    time.Duration
	log      logger.Logger
}

// New connects to the broker described by o.
func New(deviceID string, o Options) (*Publisher, error) {
	return NewWithClient(mqtt.NewClient(ClientOptions(deviceID, o)), deviceID, o)
}

// NewWithClient connects client and publishes through it.
func NewWithClient(client mqtt.Client, deviceID string, o Options) (*Publisher, error) {
	log := o.Logger
	if log == nil {
		log = logger.New("mqtt")
	}
	if o.RetryAttempts == 0 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}

	log.Info("connecting %s to broker %s:%d", deviceID, o.Host, o.Port)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errcode.Wrap(errcode.Publish, "connect", token.Error())
	}

	return &Publisher{
		client:   client,
		host:     o.Host,
		topic:    o.Topic + "/" + deviceID,
		attempts: o.RetryAttempts,
		delay:    o.RetryDelay,
		log:      log,
	}, nil
}

func (p *Publisher) Host() string  { return p.host }
func (p *Publisher) Topic() string { return p.topic }

// Sent is the number of messages the broker accepted.
func (p *Publisher) Sent() int { return int(p.sent.Load()) }

// PublishJSON marshals v and publishes it at QoS 0, retrying with backoff.
func (p *Publisher) PublishJSON(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errcode.Wrap(errcode.Publish, "marshal", err)
	}

	err = retry.Do(func() error {
		token := p.client.Publish(p.topic, 0, false, payload)
		token.Wait()
		return token.Error()
	},
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.log.Warn("publish to %s failed (attempt %d): %v", p.topic, n+1, err)
		}),
	)
	if err != nil {
		return errcode.Wrap(errcode.Publish, p.topic, err)
	}
	p.sent.Add(1)
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(quiesce)
	return nil
}
