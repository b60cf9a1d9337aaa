// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package errcode defines the failure kinds the monitor distinguishes between.
//
// Each kind maps to a handling policy:
//
//	sensor_read  log and continue, the metric keeps its last value
//	display      fail fast during panel bring-up, logged during rendering
//	publish      retried with backoff, then reported
//	config       abort start-up
package errcode

import "errors"

// Kind is a stable, comparable error identifier. It implements error so it can
// be used directly with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	SensorRead Kind = "sensor_read"
	Display    Kind = "display"
	Publish    Kind = "publish"
	Config     Kind = "config"

	Unknown Kind = "error"
)

// Error keeps the failed operation and its cause alongside the kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Wrap returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errcode.Publish) match a wrapped *Error.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the kind of err. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Unknown
}
