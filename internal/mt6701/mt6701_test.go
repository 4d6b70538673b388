// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mt6701

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const tick = DefaultUpdateInterval * time.Millisecond

// flakyBus serves counts in order and fails the next fail transactions.
type flakyBus struct {
	counts []uint16
	fail   int
	txs    int
	speed  physic.Frequency
}

func (b *flakyBus) String() string { return "flaky" }

func (b *flakyBus) SetSpeed(f physic.Frequency) error {
	b.speed = f
	return nil
}

func (b *flakyBus) Tx(addr uint16, w, r []byte) error {
	b.txs++
	if b.fail > 0 {
		b.fail--
		return errors.New("nack")
	}
	if len(b.counts) == 0 {
		return errors.New("no data")
	}
	r[0], r[1] = EncodeAngle(b.counts[0])
	b.counts = b.counts[1:]
	return nil
}

func angleIO(count uint16) i2ctest.IO {
	hi, lo := EncodeAngle(count)
	return i2ctest.IO{Addr: DefaultAddr, W: []byte{RegAngleH}, R: []byte{hi, lo}}
}

func playback(counts ...uint16) *i2ctest.Playback {
	ops := make([]i2ctest.IO, 0, len(counts))
	for _, c := range counts {
		ops = append(ops, angleIO(c))
	}
	return &i2ctest.Playback{Ops: ops, DontPanic: true}
}

func newTestDev(t *testing.T, bus i2c.Bus, opts Opts) (*Dev, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	opts.Clock = clk
	d, err := New(bus, &opts)
	require.NoError(t, err)
	require.NoError(t, d.Begin())
	return d, clk
}

func requireInvariant(t *testing.T, d *Dev) {
	t.Helper()
	mod := d.Accumulator() % CountsPerRevolution
	if mod < 0 {
		mod += CountsPerRevolution
	}
	require.Equal(t, int64(d.Count()), mod)
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		d, err := New(&flakyBus{}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint16(0b0000110), d.Addr())
		assert.Equal(t, 50*time.Millisecond, d.UpdateInterval())
		assert.Equal(t, FilterCapacity, d.FilterSize())
		assert.Equal(t, float64(DefaultRPMThreshold), d.rpmThreshold)
	})
	t.Run("filter size clamped", func(t *testing.T) {
		d, err := New(&flakyBus{}, &Opts{FilterSize: 25})
		require.NoError(t, err)
		assert.Equal(t, FilterCapacity, d.FilterSize())
	})
	t.Run("custom", func(t *testing.T) {
		d, err := New(&flakyBus{}, &Opts{Addr: 0x46, UpdateInterval: 20, RPMThreshold: 300, FilterSize: 4})
		require.NoError(t, err)
		assert.Equal(t, uint16(0x46), d.Addr())
		assert.Equal(t, 20*time.Millisecond, d.UpdateInterval())
		assert.Equal(t, 4, d.FilterSize())
	})
	t.Run("invalid address", func(t *testing.T) {
		_, err := New(&flakyBus{}, &Opts{Addr: 0x80})
		require.Error(t, err)
	})
	t.Run("nil bus", func(t *testing.T) {
		_, err := New(nil, nil)
		require.Error(t, err)
	})
}

func TestBeginSelectsReducedClock(t *testing.T) {
	bus := &flakyBus{}
	newTestDev(t, bus, Opts{})
	assert.Equal(t, 100*physic.KiloHertz, bus.speed)
	assert.Zero(t, bus.txs)
}

func TestUpdateTracksPositionAndVelocity(t *testing.T) {
	bus := playback(4096, 8192, 12288)
	d, clk := newTestDev(t, bus, Opts{})

	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.Equal(t, uint16(4096), d.Count())
	assert.Equal(t, int64(4096), d.Accumulator())
	assert.InDelta(t, 90.0, d.AngleDegrees(), 1e-9)
	assert.InDelta(t, math.Pi/2, d.AngleRadians(), 1e-9)
	// A quarter turn in 50ms is 300 RPM; nine slots are still zero.
	assert.InDelta(t, 300.0, d.InstantRPM(), 1e-9)
	assert.InDelta(t, 30.0, d.RPM(), 1e-9)

	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.InDelta(t, 60.0, d.RPM(), 1e-9)

	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.Equal(t, int64(12288), d.Accumulator())
	assert.InDelta(t, 0.75, d.Turns(), 1e-9)
	assert.Equal(t, int64(0), d.FullTurns())
	assert.InDelta(t, 90.0, d.RPM(), 1e-9)
	requireInvariant(t, d)

	require.NoError(t, bus.Close())
	assert.Equal(t, Stats{Updates: 3}, d.Stats())
}

func TestUpdateForwardWraparound(t *testing.T) {
	bus := playback(16000, 100)
	d, clk := newTestDev(t, bus, Opts{RPMThreshold: 100000})

	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.Equal(t, int64(-384), d.Accumulator())
	requireInvariant(t, d)

	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.Equal(t, int64(100), d.Accumulator())
	assert.Greater(t, d.InstantRPM(), 0.0)
	requireInvariant(t, d)
	require.NoError(t, bus.Close())
}

func TestUpdateReverseWraparound(t *testing.T) {
	bus := playback(100, 16000)
	d, clk := newTestDev(t, bus, Opts{})

	clk.Add(tick)
	require.NoError(t, d.Update())
	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.Equal(t, int64(100-484), d.Accumulator())
	assert.Less(t, d.InstantRPM(), 0.0)
	assert.Equal(t, int64(0), d.FullTurns())
	requireInvariant(t, d)
	require.NoError(t, bus.Close())
}

func TestUpdateNoMotion(t *testing.T) {
	bus := playback(5000, 5000, 5000)
	d, clk := newTestDev(t, bus, Opts{RPMThreshold: 100000})

	clk.Add(tick)
	require.NoError(t, d.Update())
	acc := d.Accumulator()

	for i := 0; i < 2; i++ {
		clk.Add(tick)
		require.NoError(t, d.Update())
		assert.Equal(t, acc, d.Accumulator())
		assert.Equal(t, 0.0, d.InstantRPM())
	}
	require.NoError(t, bus.Close())
}

func TestUpdateRejectsOutliers(t *testing.T) {
	bus := playback(4096, 12096)
	d, clk := newTestDev(t, bus, Opts{})

	clk.Add(tick)
	require.NoError(t, d.Update())
	before := d.filter

	// 8000 counts in 10ms is roughly 2930 RPM.
	clk.Add(10 * time.Millisecond)
	require.NoError(t, d.Update())
	assert.InDelta(t, 8000.0/CountsPerRevolution*6000, d.InstantRPM(), 1e-9)
	assert.Equal(t, before, d.filter)
	assert.InDelta(t, 30.0, d.RPM(), 1e-9)
	assert.Equal(t, int64(12096), d.Accumulator())
	assert.Equal(t, uint64(1), d.Stats().Outliers)
	require.NoError(t, bus.Close())
}

func TestUpdateThresholdIsStrict(t *testing.T) {
	for _, tc := range []struct {
		name      string
		threshold int
		admitted  bool
	}{
		{"at threshold", 300, false},
		{"above threshold", 301, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bus := playback(4096)
			d, clk := newTestDev(t, bus, Opts{RPMThreshold: tc.threshold})
			clk.Add(tick)
			require.NoError(t, d.Update())
			assert.InDelta(t, 300.0, d.InstantRPM(), 1e-9)
			if tc.admitted {
				assert.InDelta(t, 30.0, d.RPM(), 1e-9)
			} else {
				assert.Equal(t, 0.0, d.RPM())
			}
		})
	}
}

func TestUpdateSkipsCycleWhenReadsFail(t *testing.T) {
	bus := &flakyBus{counts: []uint16{4096, 8192}}
	d, clk := newTestDev(t, bus, Opts{})

	clk.Add(tick)
	require.NoError(t, d.Update())
	count, acc, last, filter := d.Count(), d.Accumulator(), d.lastUpdate, d.filter

	bus.fail = 4
	bus.txs = 0
	clk.Add(tick)
	err := d.Update()
	require.ErrorIs(t, err, ErrReadFailed)
	assert.Equal(t, 4, bus.txs)
	assert.Equal(t, count, d.Count())
	assert.Equal(t, acc, d.Accumulator())
	assert.Equal(t, last, d.lastUpdate)
	assert.Equal(t, filter, d.filter)
	assert.Equal(t, Stats{Updates: 1, Retries: 3, Skipped: 1}, d.Stats())

	// The skipped cycle stretches the next elapsed time to 100ms.
	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.InDelta(t, 150.0, d.InstantRPM(), 1e-9)
}

func TestUpdateRetriesTransientFailure(t *testing.T) {
	bus := &flakyBus{counts: []uint16{4096}, fail: 3}
	d, clk := newTestDev(t, bus, Opts{})

	clk.Add(tick)
	require.NoError(t, d.Update())
	assert.Equal(t, 4, bus.txs)
	assert.Equal(t, uint16(4096), d.Count())
	assert.Equal(t, uint64(3), d.Stats().Retries)
	assert.Zero(t, d.Stats().Skipped)
}

func TestUpdateZeroElapsedKeepsFilter(t *testing.T) {
	bus := playback(4096, 4200, 4300)
	d, clk := newTestDev(t, bus, Opts{})

	clk.Add(tick)
	require.NoError(t, d.Update())
	filter, rpm := d.filter, d.InstantRPM()

	require.NoError(t, d.Update())
	assert.Equal(t, int64(4200), d.Accumulator())
	assert.Equal(t, filter, d.filter)
	assert.Equal(t, rpm, d.InstantRPM())

	require.NoError(t, d.Update())
	assert.Equal(t, int64(4300), d.Accumulator())
	assert.Equal(t, filter, d.filter)
	assert.Equal(t, uint64(2), d.Stats().ZeroElapsed)
	requireInvariant(t, d)
	require.NoError(t, bus.Close())
}

func TestUpdateAcrossClockWrap(t *testing.T) {
	bus := playback(0, 4096)
	d, clk := newTestDev(t, bus, Opts{})

	clk.Add(tick)
	require.NoError(t, d.Update())

	clk.Add(time.Duration(1<<32)*time.Millisecond + tick)
	require.NoError(t, d.Update())
	assert.InDelta(t, 300.0, d.InstantRPM(), 1e-9)
	require.NoError(t, bus.Close())
}

func TestTurns(t *testing.T) {
	d, err := New(&flakyBus{}, nil)
	require.NoError(t, err)

	d.accumulator = CountsPerRevolution*3 + 8192
	assert.Equal(t, int64(3), d.FullTurns())
	assert.InDelta(t, 3.5, d.Turns(), 1e-9)

	d.accumulator = -(CountsPerRevolution + 8192)
	assert.Equal(t, int64(-1), d.FullTurns())
	assert.InDelta(t, -1.5, d.Turns(), 1e-9)
}

func TestAngleRange(t *testing.T) {
	d, err := New(&flakyBus{}, nil)
	require.NoError(t, err)

	for _, c := range []uint16{0, 1, 8192, CountsPerRevolution - 1} {
		d.count = c
		rad, deg := d.AngleRadians(), d.AngleDegrees()
		assert.InDelta(t, float64(c)*2*math.Pi/CountsPerRevolution, rad, 1e-12)
		assert.InDelta(t, float64(c)*360/CountsPerRevolution, deg, 1e-12)
		assert.GreaterOrEqual(t, rad, 0.0)
		assert.Less(t, rad, 2*math.Pi)
		assert.GreaterOrEqual(t, deg, 0.0)
		assert.Less(t, deg, 360.0)
	}
}

func TestString(t *testing.T) {
	d, err := New(&flakyBus{}, nil)
	require.NoError(t, err)
	assert.Contains(t, d.String(), "MT6701")
	assert.NoError(t, d.Halt())
}
