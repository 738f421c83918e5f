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

	log.Println("starting teleop node")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunTeleop(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
