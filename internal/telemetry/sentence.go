// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry encodes encoder samples as NMEA 0183 style sentences for
// the serial link, so a downstream controller can frame and checksum them
// with an ordinary NMEA reader:
//
//	$YXENC,<count>,<accumulator>,<rpm>,<angle_deg>*<checksum>
package telemetry

import (
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/rotary_encoder/internal/encoder"
)

const (
	// TalkerID is the NMEA transducer talker.
	TalkerID = "YX"
	// TypeENC is the sentence type carrying one encoder sample.
	TypeENC = "ENC"
)

// Reading is a parsed ENC sentence.
type Reading struct {
	nmea.BaseSentence
	Count       int64
	Accumulator int64
	RPM         float64
	AngleDeg    float64
}

var parser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeENC: parseENC,
	},
}

// Encode formats s as one CRLF-terminated sentence.
func Encode(s encoder.Sample) string {
	body := fmt.Sprintf("%s%s,%d,%d,%.2f,%.3f", TalkerID, TypeENC, s.Count, s.Accumulator, s.RPM, s.AngleDeg)
	return "$" + body + "*" + nmea.Checksum(body) + "\r\n"
}

// Parse decodes one ENC sentence, checksum included.
func Parse(line string) (Reading, error) {
	s, err := parser.Parse(strings.TrimSpace(line))
	if err != nil {
		return Reading{}, fmt.Errorf("telemetry: %w", err)
	}
	r, ok := s.(Reading)
	if !ok {
		return Reading{}, fmt.Errorf("telemetry: unexpected sentence %s", s.Prefix())
	}
	return r, nil
}

func parseENC(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	return Reading{
		BaseSentence: s,
		Count:        p.Int64(0, "count"),
		Accumulator:  p.Int64(1, "accumulator"),
		RPM:          p.Float64(2, "rpm"),
		AngleDeg:     p.Float64(3, "angle"),
	}, p.Err()
}
