// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logger is the levelled logging front used by every component.
// Messages go through the standard log package with a "component:" prefix.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// Logger accepts printf-style messages at four levels.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var debugEnabled atomic.Bool

func init() {
	if os.Getenv("ENVIRO_DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

// SetDebug toggles debug output for all loggers.
func SetDebug(on bool) { debugEnabled.Store(on) }

type stdLogger struct {
	prefix string
}

// New returns a logger that prefixes every line with "component: ".
func New(component string) Logger {
	return &stdLogger{prefix: component + ": "}
}

func (l *stdLogger) Debug(format string, args ...any) {
	if debugEnabled.Load() {
		log.Printf(l.prefix+"DEBUG "+format, args...)
	}
}

func (l *stdLogger) Info(format string, args ...any) {
	log.Printf(l.prefix+format, args...)
}

func (l *stdLogger) Warn(format string, args ...any) {
	log.Printf(l.prefix+"WARN "+format, args...)
}

func (l *stdLogger) Error(format string, args ...any) {
	log.Printf(l.prefix+"ERROR "+format, args...)
}

type noopLogger struct{}

// Noop discards everything.
func Noop() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Message is one captured line.
type Message struct {
	Level   string
	Message string
}

// BufferLogger records messages for assertions in tests.
type BufferLogger struct {
	mu       sync.Mutex
	messages []Message
}

func NewBufferLogger() *BufferLogger { return &BufferLogger{} }

func (b *BufferLogger) add(level, format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (b *BufferLogger) Debug(format string, args ...any) { b.add("DEBUG", format, args...) }
func (b *BufferLogger) Info(format string, args ...any)  { b.add("INFO", format, args...) }
func (b *BufferLogger) Warn(format string, args ...any)  { b.add("WARN", format, args...) }
func (b *BufferLogger) Error(format string, args ...any) { b.add("ERROR", format, args...) }

// Messages returns a copy of everything logged so far.
func (b *BufferLogger) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Count returns how many messages were logged at level.
func (b *BufferLogger) Count(level string) int {
	n := 0
	for _, m := range b.Messages() {
		if m.Level == level {
			n++
		}
	}
	return n
}
