// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sysinfo reads facts about the host the monitor runs on.
package sysinfo

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	"strings"
)

const (
	CPUInfoPath = "/proc/cpuinfo"
	// UnknownID is reported when the board serial cannot be read.
	UnknownID = "N/A"
)

// DeviceID returns the Raspberry Pi serial number from a cpuinfo file.
func DeviceID(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return UnknownID
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Serial") {
			continue
		}
		if _, v, ok := strings.Cut(line, ":"); ok {
			if id := strings.TrimSpace(v); id != "" {
				return id
			}
		}
	}
	return UnknownID
}

// Connected reports whether the host has any IP address, per `hostname -I`.
func Connected() bool {
	out, err := exec.Command("hostname", "-I").Output()
	return err == nil && len(bytes.TrimSpace(out)) > 0
}
