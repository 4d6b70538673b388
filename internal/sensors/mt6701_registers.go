// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/rotary_encoder/internal/mt6701"
)

// BitField describes a field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo describes one device register.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// MT6701RegisterMap returns metadata for the registers the driver reads.
func MT6701RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: fmt.Sprintf("0x%02X", mt6701.RegAngleH), Name: "ANGLE_H", Description: "Absolute angle, high byte", Access: "R",
			BitFields: []BitField{
				{Bits: "7:0", Name: "ANGLE[13:6]", Description: "Angle bits 13 to 6", Values: "count = ANGLE_H<<6 | ANGLE_L>>2"},
			}},
		{Address: fmt.Sprintf("0x%02X", mt6701.RegAngleL), Name: "ANGLE_L", Description: "Absolute angle, low bits", Access: "R",
			BitFields: []BitField{
				{Bits: "7:2", Name: "ANGLE[5:0]", Description: "Angle bits 5 to 0"},
				{Bits: "1:0", Name: "RESERVED", Description: "Not part of the angle", Values: "Ignored"},
			}},
	}
}
