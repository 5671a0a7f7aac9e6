package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/cache"
	"github.com/cruxrec/cruxrec/pkg/cli"
	"github.com/cruxrec/cruxrec/pkg/gateway"
	"github.com/cruxrec/cruxrec/pkg/logging"
	"github.com/cruxrec/cruxrec/pkg/pipeline"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	listenAddr := flag.String("listen", "", "override the configured listen address")
	flag.Parse()

	cfg, err := cli.Setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logging.Flush()

	logger := logging.GetLogger("services")

	if *listenAddr != "" {
		cfg.Gateway.ListenAddr = *listenAddr
	}

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		logger.Error("Failed to open cache", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	g := gateway.New(cfg.Gateway, pipeline.New(cfg, store), store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := g.Start(ctx); err != nil {
		logger.Error("Failed to start gateway", zap.Error(err))
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := g.Stop(shutdownCtx); err != nil {
		logger.Error("Gateway shutdown error", zap.Error(err))
	}
	logger.Info("Gateway shutdown complete")
}
