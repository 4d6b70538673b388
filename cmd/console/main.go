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
	log.Println("starting rotary-encoder (mock console, simulated MT6701)")

	if err := app.NewCLI("console", "mock console, simulated MT6701", false, app.RunMockConsole).Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
