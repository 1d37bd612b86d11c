// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command strata bootstraps an engine instance against a live backend.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgx client).
//  4. Connect to Redis when configured.
//  5. Create the schema container and metadata collection (idempotent).
//  6. Ping and report.
//
// No engine logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/taibuivan/strata/access"
	"github.com/taibuivan/strata/adapter"
	"github.com/taibuivan/strata/adapter/postgres"
	"github.com/taibuivan/strata/cache"
	"github.com/taibuivan/strata/database"
	"github.com/taibuivan/strata/internal/platform/config"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	level := slog.LevelInfo
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log = log.With(slog.String("app", "strata"))
	slog.SetDefault(log)

	log.Info("[Strata] engine_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})).With(slog.String("app", "strata"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	client, err := postgres.NewClient(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		if cerr := client.Disconnect(); cerr != nil {
			log.Error("postgres close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Cache ──────────────────────────────────────────────────────────
	var backend cache.Cache = cache.NewNone()
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisFromURL(startupCtx, cfg.RedisURL)
		must(log, err, "connect to redis")
		must(log, redisCache.Ping(startupCtx), "ping redis")
		backend = redisCache
		log.Info("redis cache connected")
	}

	// ── 5. Engine ─────────────────────────────────────────────────────────
	db := database.New(postgres.New(client),
		database.WithCache(backend),
		database.WithLogger(log),
		database.WithCacheName(cfg.Database),
	)
	db.SetMeta(adapter.Meta{
		Database:          cfg.Database,
		Schema:            cfg.Schema,
		Namespace:         cfg.Namespace,
		SharedTables:      cfg.SharedTables,
		TenantID:          cfg.TenantID,
		TenantPerDocument: cfg.TenantPerDocument,
	})

	ctx := access.Init(context.Background())
	must(log, db.Create(ctx), "create schema container")
	must(log, db.Ping(ctx), "ping engine")

	log.Info("engine_ready",
		slog.String("schema", cfg.Schema),
		slog.String("namespace", cfg.Namespace),
		slog.Bool("shared_tables", cfg.SharedTables),
	)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
