// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/relabs-tech/rotary_encoder/internal/config"
	"github.com/relabs-tech/rotary_encoder/internal/telemetry"
)

// RunSerialMonitor opens SERIAL_PORT and prints every $YXENC sentence the
// producer writes to the other end of the link.
func RunSerialMonitor() error {
	cfg := config.Get()
	if cfg.SerialPort == "" {
		return fmt.Errorf("serial monitor: SERIAL_PORT is not set")
	}

	port, err := openSerial(cfg.SerialPort, cfg.SerialBaudRate)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("serial: port opened on %s at %d baud", cfg.SerialPort, cfg.SerialBaudRate)

	return monitorSentences(port, func(r telemetry.Reading) {
		fmt.Printf("[SER] count=%5d acc=%9d rpm=%8.2f deg=%7.2f\n", r.Count, r.Accumulator, r.RPM, r.AngleDeg)
	})
}

// monitorSentences reads lines until r fails. Lines that are not valid ENC
// sentences are skipped; a noisy link produces partial lines at startup.
func monitorSentences(r io.Reader, fn func(telemetry.Reading)) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			log.Printf("serial: read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		reading, err := telemetry.Parse(line)
		if err != nil {
			continue
		}
		fn(reading)
	}
}
