// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mt6701

const millisPerMinute = 60 * 1000

// trackPosition folds a new raw count into the accumulator and returns the
// unwrapped delta from the previous count.
func (d *Dev) trackPosition(raw uint16) int {
	diff := unwrap(d.count, raw)
	d.accumulator += int64(diff)
	d.count = raw
	return diff
}

// unwrap returns the shortest signed delta from prev to next on the circle.
// The shaft is assumed to move less than half a turn between samples.
func unwrap(prev, next uint16) int {
	diff := int(next) - int(prev)
	if diff > CountsPerRevolution/2 {
		diff -= CountsPerRevolution
	} else if diff < -CountsPerRevolution/2 {
		diff += CountsPerRevolution
	}
	return diff
}

// estimateRPM converts a delta over elapsed milliseconds to revolutions per
// minute. elapsed must be non-zero.
func estimateRPM(diff int, elapsed uint32) float64 {
	return (float64(diff) / CountsPerRevolution) * (millisPerMinute / float64(elapsed))
}
