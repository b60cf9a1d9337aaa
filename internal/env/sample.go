// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"encoding/json"
	"maps"
	"slices"
)

// Reading is one sweep over all metrics: metric name -> latest value.
// It is the MQTT payload as-is, e.g. {"temperature": 21.4, "humidity": 40.2}.
type Reading map[string]float64

// Names returns the metric names in sorted order.
func (r Reading) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// JSON encodes the reading. Keys are emitted sorted, so the payload for a
// given reading is always byte-identical.
func (r Reading) JSON() ([]byte, error) {
	return json.Marshal(map[string]float64(r))
}

// Decode parses a payload produced by JSON.
func Decode(payload []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, err
	}
	return r, nil
}
