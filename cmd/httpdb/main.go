// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command httpdb starts the http-db server: a shared realtime key-value
// register with per-item secrets, served over HTTP and a WebSocket
// streaming channel.
//
// Usage:
//
//	go run ./cmd/httpdb
//	go run ./cmd/httpdb --listen :9090 --db /var/lib/httpdb
//
// Example requests:
//
//	# Write an item, claiming it with a secret
//	curl -X POST http://localhost:8080/db/greeting -d 'value=hello&password=s3cret'
//
//	# Read it back
//	curl http://localhost:8080/db/greeting?password=s3cret
//
//	# Append
//	curl -X POST http://localhost:8080/db/greeting -d 'value=!&append=1&password=s3cret'
//
//	# Clear
//	curl -X DELETE http://localhost:8080/db/greeting?password=s3cret
//
// Streaming clients connect to ws://localhost:8080/instant/db/ and send
// {"command":"open","item":"greeting","data":{"secret":"s3cret"}}.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/esoadamo/http-db/cmd/httpdb/config"
	"github.com/esoadamo/http-db/pkg/logging"
	"github.com/esoadamo/http-db/services/register"
	badgerstore "github.com/esoadamo/http-db/services/register/storage/badger"
)

var (
	flagConfig string
	flagListen string
	flagDB     string
	flagDebug  bool

	rootCmd = &cobra.Command{
		Use:   "httpdb",
		Short: "A shared realtime key-value register over HTTP and WebSocket",
		Long: `httpdb serves named string items protected by claim-on-first-write
secrets. Clients read and write items over plain HTTP calls, and a
WebSocket channel pushes a notification to every watcher whenever an
item they opened changes.`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.httpdb/httpdb.yaml)")
	rootCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address, overrides the config")
	rootCmd.Flags().StringVar(&flagDB, "db", "", "Database directory, overrides the config")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging and gin debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := flagConfig
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}

	level := logging.ParseLevel(cfg.Log.Level)
	if flagDebug {
		level = logging.LevelDebug
	}
	logger, err := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "httpdb",
		JSON:    cfg.Log.JSON,
	})
	if err != nil {
		// Stderr logging still works; file logging is best-effort.
		fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
	}
	defer logger.Close()
	logging.SetGlobal(logger)

	if flagDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := badgerstore.OpenWithPath(expandHome(cfg.Database.Path), slog.Default())
	if err != nil {
		return fmt.Errorf("open item store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close the item store", slog.String("error", err.Error()))
		}
	}()

	svc := register.NewService(store, register.DefaultServiceConfig())
	handlers := register.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if flagDebug {
		router.Use(gin.Logger())
	}
	register.RegisterRoutes(router, handlers)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting http-db server",
			slog.String("address", cfg.Listen),
			slog.String("database", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down http-db server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + path[1:]
		}
	}
	return path
}
