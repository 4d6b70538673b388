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
	log.Println("starting rotary-encoder (serial telemetry monitor)")

	if err := app.NewCLI("serial_monitor", "serial telemetry monitor", true, app.RunSerialMonitor).Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
