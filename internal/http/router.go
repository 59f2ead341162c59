/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/gin-gonic/gin"
    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/scope"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc any, scopes *scope.Resolver) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc, scopes)

    r.GET("/healthz", h.Healthz)

    api := r.Group("/api")
    api.GET("/azdo/consolidated", h.Consolidated)
    api.GET("/azdo/summary", h.Summary)
    api.GET("/v2/clients", h.Clients)
    api.GET("/v2/features", h.Features)
    api.GET("/auth/me", h.Me)
    api.POST("/auth/login", h.Login)
    api.GET("/auth/callback", h.Callback)
    api.POST("/webhooks/azdo", h.AzdoWebhook)

    r.GET("/admin/webhook-events", h.WebhookEvents)
    r.POST("/admin/prewarm", h.PrewarmNow)

    return r
}
