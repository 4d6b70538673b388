// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/relabs-tech/rotary_encoder/internal/config"
	"github.com/relabs-tech/rotary_encoder/internal/encoder"
	"github.com/relabs-tech/rotary_encoder/internal/mt6701"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// EncoderSource polls one rotary encoder. It is not safe for concurrent use;
// the producer loop is its only caller.
type EncoderSource interface {
	Update() error
	Sample() encoder.Sample
	Stats() encoder.Stats
	Close() error
}

type encoderSource struct {
	name  string
	bus   i2c.BusCloser
	dev   *mt6701.Dev
	clock clock.Clock
}

// NewEncoderSource opens the encoder described by the global config.
func NewEncoderSource(clk clock.Clock) (EncoderSource, error) {
	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("encoder: config not initialized")
	}
	return OpenEncoderSource(cfg, clk)
}

// OpenEncoderSource opens the real I²C bus named by cfg, or a simulated
// sensor when cfg.EncoderMock is set.
func OpenEncoderSource(cfg *config.Config, clk clock.Clock) (EncoderSource, error) {
	if cfg.EncoderMock {
		addr := cfg.EncoderI2CAddr
		if addr == 0 {
			addr = mt6701.DefaultAddr
		}
		bus := NewSimulatedBus(clk, addr, cfg.EncoderMockRPM)
		bus.SetFailEvery(cfg.EncoderMockFailEvery)
		log.Printf("encoder: using simulated MT6701 at %.1f RPM (fail every %d)", cfg.EncoderMockRPM, cfg.EncoderMockFailEvery)
		return newEncoderSource("mock", bus, cfg, clk)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("encoder: periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.EncoderI2CBus)
	if err != nil {
		return nil, fmt.Errorf("encoder: I2C open %q: %w", cfg.EncoderI2CBus, err)
	}
	src, err := newEncoderSource(bus.String(), bus, cfg, clk)
	if err != nil {
		bus.Close()
		return nil, err
	}
	return src, nil
}

func newEncoderSource(name string, bus i2c.BusCloser, cfg *config.Config, clk clock.Clock) (*encoderSource, error) {
	dev, err := mt6701.New(bus, &mt6701.Opts{
		Addr:           cfg.EncoderI2CAddr,
		UpdateInterval: cfg.EncoderUpdateInterval,
		RPMThreshold:   cfg.EncoderRPMThreshold,
		FilterSize:     cfg.EncoderFilterSize,
		Clock:          clk,
	})
	if err != nil {
		return nil, fmt.Errorf("encoder: device creation: %w", err)
	}
	if cfg.EncoderFilterSize > dev.FilterSize() {
		log.Printf("encoder: filter size %d clamped to %d", cfg.EncoderFilterSize, dev.FilterSize())
	}

	// Some host buses cannot change speed; the sensor still works at the
	// bus default.
	if err := dev.Begin(); err != nil {
		log.Printf("encoder: WARNING: %v", err)
	}
	log.Printf("encoder: %s ready (addr=0x%02X, interval=%s, threshold=%d RPM, filter=%d)",
		name, dev.Addr(), dev.UpdateInterval(), cfg.EncoderRPMThreshold, dev.FilterSize())

	return &encoderSource{name: name, bus: bus, dev: dev, clock: clk}, nil
}

// Update runs one driver update cycle.
func (s *encoderSource) Update() error {
	if err := s.dev.Update(); err != nil {
		return fmt.Errorf("%s encoder: %w", s.name, err)
	}
	return nil
}

// Sample snapshots the driver state.
func (s *encoderSource) Sample() encoder.Sample {
	return encoder.Sample{
		Source:      s.name,
		Count:       s.dev.Count(),
		Accumulator: s.dev.Accumulator(),
		AngleRad:    s.dev.AngleRadians(),
		AngleDeg:    s.dev.AngleDegrees(),
		FullTurns:   s.dev.FullTurns(),
		Turns:       s.dev.Turns(),
		RPM:         s.dev.RPM(),
		InstantRPM:  s.dev.InstantRPM(),
		Time:        s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
}

func (s *encoderSource) Stats() encoder.Stats {
	st := s.dev.Stats()
	return encoder.Stats{
		Updates:     st.Updates,
		Retries:     st.Retries,
		Skipped:     st.Skipped,
		Outliers:    st.Outliers,
		ZeroElapsed: st.ZeroElapsed,
	}
}

func (s *encoderSource) Close() error {
	if err := s.dev.Halt(); err != nil {
		return err
	}
	return s.bus.Close()
}
