// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/relabs-tech/rotary_encoder/internal/mt6701"
	"periph.io/x/conn/v3/physic"
)

// ErrSimulatedNACK is returned by SimulatedBus for injected failures.
var ErrSimulatedNACK = errors.New("simulated: NACK")

// SimulatedBus is an i2c.BusCloser with a single MT6701 whose shaft turns at
// a constant RPM on the given clock. It answers only the angle register read.
type SimulatedBus struct {
	mu        sync.Mutex
	clock     clock.Clock
	start     time.Time
	base      float64 // turns at start
	addr      uint16
	rpm       float64
	failEvery int
	txs       int
	speed     physic.Frequency
}

// NewSimulatedBus starts the shaft at count 0.
func NewSimulatedBus(clk clock.Clock, addr uint16, rpm float64) *SimulatedBus {
	return &SimulatedBus{clock: clk, start: clk.Now(), addr: addr, rpm: rpm}
}

// SetFailEvery makes every nth transaction fail. 0 disables failures.
func (b *SimulatedBus) SetFailEvery(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failEvery = n
}

// SetRPM changes the shaft speed, keeping the current angle.
func (b *SimulatedBus) SetRPM(rpm float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.base = b.turnsLocked()
	b.start = b.clock.Now()
	b.rpm = rpm
}

func (b *SimulatedBus) String() string {
	return fmt.Sprintf("simulated-mt6701@0x%02X", b.addr)
}

// SetSpeed implements i2c.Bus.
func (b *SimulatedBus) SetSpeed(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.speed = f
	return nil
}

// Speed returns the last frequency set.
func (b *SimulatedBus) Speed() physic.Frequency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

// Tx implements i2c.Bus.
func (b *SimulatedBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs++
	if b.failEvery > 0 && b.txs%b.failEvery == 0 {
		return ErrSimulatedNACK
	}
	if addr != b.addr {
		return fmt.Errorf("simulated: no device at 0x%02X", addr)
	}
	if !bytes.Equal(w, []byte{mt6701.RegAngleH}) || len(r) != 2 {
		return fmt.Errorf("simulated: unsupported transaction w=%X len(r)=%d", w, len(r))
	}
	r[0], r[1] = mt6701.EncodeAngle(b.countLocked())
	return nil
}

// Close implements io.Closer.
func (b *SimulatedBus) Close() error {
	return nil
}

// Count returns the raw count the sensor would report now.
func (b *SimulatedBus) Count() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countLocked()
}

func (b *SimulatedBus) turnsLocked() float64 {
	return b.base + b.rpm*b.clock.Since(b.start).Minutes()
}

func (b *SimulatedBus) countLocked() uint16 {
	turns := b.turnsLocked()
	frac := turns - math.Floor(turns)
	return uint16(frac*mt6701.CountsPerRevolution) % mt6701.CountsPerRevolution
}
