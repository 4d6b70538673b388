// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mt6701

import "fmt"

// I²C register map, angle block only.
const (
	RegAngleH = 0x03 // ANGLE[13:6]
	RegAngleL = 0x04 // ANGLE[5:0] in bits 7:2
)

// readRawSample selects ANGLE_H and reads ANGLE_H and ANGLE_L in one
// repeated-start transaction.
func (d *Dev) readRawSample() (uint16, error) {
	var buf [2]byte
	if err := d.dev.Tx([]byte{RegAngleH}, buf[:]); err != nil {
		return 0, fmt.Errorf("read angle: %w", err)
	}
	return DecodeAngle(buf[0], buf[1]), nil
}

// DecodeAngle combines the two angle register bytes into a raw count in
// [0, CountsPerRevolution). Only the upper 14 bits of the 16-bit field carry
// the angle.
func DecodeAngle(hi, lo byte) uint16 {
	return uint16(hi)<<6 | uint16(lo)>>2
}

// EncodeAngle is the inverse of DecodeAngle. The low two bits of the second
// byte are left clear.
func EncodeAngle(count uint16) (hi, lo byte) {
	count %= CountsPerRevolution
	return byte(count >> 6), byte(count&0x3F) << 2
}
