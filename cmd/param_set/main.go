// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/teleop_joy/internal/app"
	"github.com/relabs-tech/teleop_joy/internal/config"
)

func main() {
	configPath := flag.String("config", "./teleop_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("sending teleop parameter update")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunParamSet(flag.Args()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
