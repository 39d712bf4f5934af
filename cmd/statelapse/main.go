// Package main runs the statelapse reconstruction pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	statelapsecmd "github.com/louisbranch/statelapse/internal/cmd/statelapse"
	"github.com/louisbranch/statelapse/internal/platform/config"
)

func main() {
	cfg, err := statelapsecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[STATELAPSE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := statelapsecmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("run pipeline: %v", err)
	}
}
