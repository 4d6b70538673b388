// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"os"

	"github.com/relabs-tech/rotary_encoder/internal/app"
)

func main() {
	log.Println("starting rotary-encoder (MT6701 producer, publishes to MQTT and serial)")

	if err := app.NewCLI("encoder_producer", "MT6701 producer, publishes to MQTT and serial", true, app.RunEncoderProducer).Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
