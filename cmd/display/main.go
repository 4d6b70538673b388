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
	log.Println("starting rotary-encoder (OLED display, MQTT subscriber)")

	if err := app.NewCLI("display", "OLED display, MQTT subscriber", true, app.RunDisplay).Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
