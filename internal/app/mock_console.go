// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/rotary_encoder/internal/config"
	"github.com/relabs-tech/rotary_encoder/internal/sensors"
)

// RunMockConsole drives the encoder pipeline against the simulated sensor and
// prints each sample. It needs neither hardware nor a broker.
func RunMockConsole() error {
	cfg := *config.Default()
	if loaded := config.Get(); loaded != nil {
		cfg = *loaded
	}
	cfg.EncoderMock = true

	clk := clock.New()
	src, err := sensors.OpenEncoderSource(&cfg, clk)
	if err != nil {
		return err
	}
	defer src.Close()

	ticker := clk.Ticker(time.Duration(cfg.EncoderUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if err := src.Update(); err != nil {
			log.Printf("mock: %v", err)
			continue
		}
		fmt.Println(formatSample("MOCK", src.Sample()))
	}
	return nil
}
