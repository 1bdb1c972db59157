package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sevler/gatehouse/internal/app"
	"github.com/sevler/gatehouse/internal/config"
	"github.com/sevler/gatehouse/internal/version"
)

const shutdownTimeout = 30 * time.Second

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "path to configuration file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("gatehouse %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildDate)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-errCh:
			if err != nil {
				slog.Error("server failed", "error", err)
				os.Exit(1)
			}
			return
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				if err := application.Reload(*configPath); err != nil {
					slog.Error("configuration reload failed", "error", err)
				}
				continue
			}

			slog.Info("received shutdown signal", "signal", sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err := application.Shutdown(ctx)
			cancel()
			if err != nil {
				slog.Error("shutdown failed", "error", err)
				os.Exit(1)
			}
			return
		}
	}
}
