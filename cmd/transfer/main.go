// Package main starts the warm transfer service and handles termination.
//
// The process is an HTTP adapter around transfer orchestration: it moves a
// caller between rooms on the realtime platform while the pending transfer
// state lives in memory.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	transfercmd "github.com/ThatGuyChandan/livekit-warm-transfer/internal/cmd/transfer"
)

func main() {
	cfg, err := transfercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TRANSFER] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := transfercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
