// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mt6701 drives the MT6701 14-bit magnetic rotary position sensor
// over I²C.
//
// The driver polls the absolute angle register and keeps a continuous
// multi-turn position, an instantaneous RPM estimate and a moving-average RPM.
// It never schedules itself: the caller invokes Update periodically, roughly
// every UpdateInterval milliseconds.
//
// A Dev is not safe for concurrent use. Callers serialize Update and the
// accessors.
package mt6701

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddr is the factory I²C address of the MT6701.
	DefaultAddr uint16 = 0b0000110

	// DefaultUpdateInterval is the advisory poll interval in milliseconds.
	DefaultUpdateInterval = 50

	// DefaultRPMThreshold is the RPM magnitude at or above which an estimate
	// is kept out of the moving average.
	DefaultRPMThreshold = 1000

	// CountsPerRevolution is the resolution of the angle register.
	CountsPerRevolution = 16384

	// BusFrequency is the reduced clock selected by Begin.
	BusFrequency = 100 * physic.KiloHertz

	countsToRadians = 2 * math.Pi / CountsPerRevolution
	countsToDegrees = 360.0 / CountsPerRevolution

	// readAttempts is one read plus three immediate retries.
	readAttempts = 4
)

// ErrReadFailed is returned by Update when every read attempt of a cycle
// failed. The cycle is skipped and no state changes.
var ErrReadFailed = errors.New("mt6701: angle read failed")

// Opts holds construction options.
//
// Zero fields take the matching value from DefaultOpts. FilterSize above
// FilterCapacity is truncated to FilterCapacity.
type Opts struct {
	Addr uint16
	// UpdateInterval is advisory metadata in milliseconds; the driver never
	// reads it for timing.
	UpdateInterval int
	RPMThreshold   int
	FilterSize     int
	// Clock is the time base for elapsed-time measurement. Nil means the
	// wall clock.
	Clock clock.Clock
}

// DefaultOpts are the recommended options.
var DefaultOpts = Opts{
	Addr:           DefaultAddr,
	UpdateInterval: DefaultUpdateInterval,
	RPMThreshold:   DefaultRPMThreshold,
	FilterSize:     FilterCapacity,
}

// Stats counts what happened to update cycles since construction.
type Stats struct {
	Updates     uint64 // cycles that committed a new sample
	Retries     uint64 // read attempts beyond the first in a cycle
	Skipped     uint64 // cycles dropped after every attempt failed
	Outliers    uint64 // RPM estimates kept out of the filter
	ZeroElapsed uint64 // cycles with no elapsed time, velocity not estimated
}

// Dev is a handle to an MT6701 sensor.
type Dev struct {
	dev   i2c.Dev
	clock clock.Clock
	epoch time.Time

	updateInterval int
	rpmThreshold   float64

	count       uint16
	accumulator int64
	lastUpdate  uint32
	rpm         float64
	filter      rpmFilter

	stats Stats
}

// New returns a driver for the sensor at opts.Addr on bus.
//
// Begin must be called before Update.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if bus == nil {
		return nil, errors.New("mt6701: nil bus")
	}
	o := DefaultOpts
	if opts != nil {
		if opts.Addr != 0 {
			o.Addr = opts.Addr
		}
		if opts.UpdateInterval > 0 {
			o.UpdateInterval = opts.UpdateInterval
		}
		if opts.RPMThreshold > 0 {
			o.RPMThreshold = opts.RPMThreshold
		}
		if opts.FilterSize > 0 {
			o.FilterSize = opts.FilterSize
		}
		o.Clock = opts.Clock
	}
	if o.Addr > 0x7F {
		return nil, fmt.Errorf("mt6701: invalid address 0x%X", o.Addr)
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}

	d := &Dev{
		dev:            i2c.Dev{Bus: bus, Addr: o.Addr},
		clock:          o.Clock,
		epoch:          o.Clock.Now(),
		updateInterval: o.UpdateInterval,
		rpmThreshold:   float64(o.RPMThreshold),
		filter:         newRPMFilter(o.FilterSize),
	}
	return d, nil
}

// Begin selects the reduced bus clock. It performs no sensor handshake.
func (d *Dev) Begin() error {
	if err := d.dev.Bus.SetSpeed(BusFrequency); err != nil {
		return fmt.Errorf("mt6701: set bus speed %s: %w", BusFrequency, err)
	}
	return nil
}

// Update reads a new sample and advances position, velocity and the RPM
// filter.
//
// When all read attempts fail the cycle is skipped: position, count and the
// time base are left untouched, which stretches the next elapsed-time
// measurement. When no time elapsed since the last update, position is
// tracked but velocity is not estimated.
func (d *Dev) Update() error {
	raw, err := d.readRawSample()
	for i := 1; i < readAttempts && err != nil; i++ {
		d.stats.Retries++
		raw, err = d.readRawSample()
	}
	if err != nil {
		d.stats.Skipped++
		return fmt.Errorf("%w after %d attempts: %w", ErrReadFailed, readAttempts, err)
	}

	diff := d.trackPosition(raw)

	now := d.millis()
	if elapsed := now - d.lastUpdate; elapsed > 0 {
		d.rpm = estimateRPM(diff, elapsed)
		if math.Abs(d.rpm) < d.rpmThreshold {
			d.filter.offer(d.rpm)
		} else {
			d.stats.Outliers++
		}
	} else {
		d.stats.ZeroElapsed++
	}
	d.lastUpdate = now
	d.stats.Updates++
	return nil
}

// AngleRadians returns the shaft angle in [0, 2π).
func (d *Dev) AngleRadians() float64 {
	return float64(d.count) * countsToRadians
}

// AngleDegrees returns the shaft angle in [0, 360).
func (d *Dev) AngleDegrees() float64 {
	return float64(d.count) * countsToDegrees
}

// FullTurns returns the number of whole turns since construction.
// Negative travel truncates toward zero.
func (d *Dev) FullTurns() int64 {
	return d.accumulator / CountsPerRevolution
}

// Turns returns the travel since construction in turns.
func (d *Dev) Turns() float64 {
	return float64(d.accumulator) / CountsPerRevolution
}

// Accumulator returns the continuous multi-turn position in raw counts.
func (d *Dev) Accumulator() int64 {
	return d.accumulator
}

// Count returns the last valid raw count in [0, CountsPerRevolution).
func (d *Dev) Count() uint16 {
	return d.count
}

// RPM returns the moving average of the admitted RPM estimates.
func (d *Dev) RPM() float64 {
	return d.filter.mean()
}

// InstantRPM returns the last RPM estimate before filtering, outliers
// included.
func (d *Dev) InstantRPM() float64 {
	return d.rpm
}

// Addr returns the I²C address of the sensor.
func (d *Dev) Addr() uint16 {
	return d.dev.Addr
}

// UpdateInterval returns the advisory poll interval.
func (d *Dev) UpdateInterval() time.Duration {
	return time.Duration(d.updateInterval) * time.Millisecond
}

// FilterSize returns the active length of the RPM filter.
func (d *Dev) FilterSize() int {
	return d.filter.size
}

// Stats returns the update counters.
func (d *Dev) Stats() Stats {
	return d.stats
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("MT6701{%s}", &d.dev)
}

// Halt implements conn.Resource. The sensor has nothing to stop.
func (d *Dev) Halt() error {
	return nil
}

// millis is the monotonic millisecond clock; it wraps at 2^32.
func (d *Dev) millis() uint32 {
	return uint32(d.clock.Since(d.epoch).Milliseconds())
}
