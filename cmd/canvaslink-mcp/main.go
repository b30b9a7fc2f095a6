package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "canvaslink/internal/adapters/mcp"
	"canvaslink/internal/bootstrap"
	"canvaslink/internal/config"
)

const version = "0.1.0"

func main() {
	configFlag := flag.String("config", "", "config file (default "+config.DefaultPath()+")")
	vaultFlag := flag.String("vault", "", "path to the vault")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("canvaslink-mcp: %v", err)
	}
	if *vaultFlag != "" {
		cfg.Vault = config.ExpandHome(*vaultFlag)
	}

	ctx := context.Background()
	// stdout carries the protocol
	rt, err := bootstrap.New(ctx, cfg, bootstrap.Options{LogOutput: os.Stderr})
	if err != nil {
		log.Fatalf("canvaslink-mcp: %v", err)
	}
	defer rt.Close(ctx)

	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go rt.PollRegistry(pollCtx, cfg.Watch.RegistryPoll)

	mcpServer := mcpadapter.NewServer(version, mcpadapter.Services{
		Registry: rt.Registry,
		Engine:   rt.Engine,
		Store:    rt.Store,
	})

	if err := server.ServeStdio(mcpServer); err != nil {
		stopPoll()
		rt.Close(ctx)
		log.Fatalf("canvaslink-mcp: %v", err)
	}
}
