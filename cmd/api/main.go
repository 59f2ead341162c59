/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/marcelomcd/NewFarol-sub000/internal/adapters/azdo"
    "github.com/marcelomcd/NewFarol-sub000/internal/adapters/openai"
    "github.com/marcelomcd/NewFarol-sub000/internal/cache"
    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    httpx "github.com/marcelomcd/NewFarol-sub000/internal/http"
    "github.com/marcelomcd/NewFarol-sub000/internal/jobs"
    "github.com/marcelomcd/NewFarol-sub000/internal/logger"
    "github.com/marcelomcd/NewFarol-sub000/internal/repo"
    "github.com/marcelomcd/NewFarol-sub000/internal/scope"
    "github.com/marcelomcd/NewFarol-sub000/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // DB is optional: the report path is upstream-only, the database holds
    // the webhook audit and the cron lock
    var repository *repo.Repository
    if cfg.DBDSN != "" {
        db := repo.MustOpen(ctx, cfg, log)
        defer db.Close()
        repository = repo.NewRepository(db, log)
    } else {
        log.Warn().Msg("DB_DSN empty; webhook audit disabled, cron runs unlocked")
    }

    // Adapters
    az := azdo.NewClient(cfg, log)
    llm := openai.NewClient(cfg, log)
    scopes := scope.NewResolver(cfg)

    // Services
    svc := services.New(cfg, log, az, cache.New(), scopes, repository, llm)

    // HTTP server (Gin)
    router := httpx.NewRouter(cfg, log, svc, scopes)

    // Cron
    cron := jobs.NewCron(cfg, log, svc, repository)
    cron.Start()
    defer cron.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
