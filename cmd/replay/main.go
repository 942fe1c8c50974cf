// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command replay runs a CSV recording through the step detector, e.g.
//
//	replay -config pedometer.yaml -plot walk.png walk.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/app"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to configuration file")
	plotPath := flag.String("plot", "", "write a plot of the detector signal to this PNG/SVG/PDF file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] recording.csv\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, logger, err := app.Setup("replay", *configPath)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunReplay(ctx, cfg, logger, flag.Arg(0), *plotPath, os.Stdout); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}
