// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mt6701

// FilterCapacity is the number of slots in the RPM moving average.
const FilterCapacity = 10

// rpmFilter is a fixed-capacity circular buffer of RPM estimates. Only the
// first size slots are used. Slots start at zero, so the mean is biased
// toward zero until size values have been offered.
type rpmFilter struct {
	buf    [FilterCapacity]float64
	cursor int
	size   int
}

func newRPMFilter(size int) rpmFilter {
	if size < 1 || size > FilterCapacity {
		size = FilterCapacity
	}
	return rpmFilter{size: size}
}

// offer overwrites the oldest slot.
func (f *rpmFilter) offer(rpm float64) {
	f.buf[f.cursor] = rpm
	f.cursor = (f.cursor + 1) % f.size
}

func (f *rpmFilter) mean() float64 {
	var sum float64
	for _, v := range f.buf[:f.size] {
		sum += v
	}
	return sum / float64(f.size)
}
