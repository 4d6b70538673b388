// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/relabs-tech/rotary_encoder/internal/config"
)

// DefaultConfigPath is the config file the tools read when --config is not
// given.
const DefaultConfigPath = "encoder_config.txt"

const flagConfig = "config"

// NewCLI wraps run in a command line app that loads the global config from
// --config first. With requireConfig unset a missing default file is not an
// error and run sees a nil config.Get().
func NewCLI(name, usage string, requireConfig bool, run func() error) *cli.App {
	return &cli.App{
		Name:            name,
		Usage:           usage,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   DefaultConfigPath,
				EnvVars: []string{"ENCODER_CONFIG"},
				Usage:   "load configuration from `FILE`",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String(flagConfig)
			if !requireConfig && !c.IsSet(flagConfig) {
				if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
					log.Printf("%s: no %s, using defaults", name, path)
					return run()
				}
			}
			if err := config.InitGlobal(path); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return run()
		},
	}
}
