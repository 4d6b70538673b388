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
	log.Println("starting rotary-encoder (web server, MQTT subscriber)")
	log.Println("Note: live data requires the encoder producer to be running (sudo ./encoder_producer)")

	if err := app.NewCLI("web", "web server, MQTT subscriber", true, app.RunWeb).Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
