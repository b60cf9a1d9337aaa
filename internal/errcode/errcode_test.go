// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(Publish, "publish", nil))
}

func TestKindOf(t *testing.T) {
	cause := errors.New("i2c: nack")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"bare kind", Config, Config},
		{"wrapped", Wrap(SensorRead, "humidity", cause), SensorRead},
		{"wrapped twice", fmt.Errorf("render: %w", Wrap(Display, "draw", cause)), Display},
		{"plain", cause, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorsIs(t *testing.T) {
	cause := errors.New("broker unreachable")
	err := fmt.Errorf("loop: %w", Wrap(Publish, "enviro/abc", cause))

	assert.ErrorIs(t, err, Publish)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, Display)
	assert.Equal(t, "publish: enviro/abc: broker unreachable", errors.Unwrap(err).Error())
}
