/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/marcelomcd/NewFarol-sub000/internal/adapters/azdo"
    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/domain"
    "github.com/marcelomcd/NewFarol-sub000/internal/scope"
    "github.com/rs/zerolog"
)

type service interface {
    BuildConsolidatedReport(ctx context.Context, token string, daysNearDeadline, cacheSeconds int) (domain.ConsolidatedReport, error)
    SummarizeReport(ctx context.Context, token string) (string, error)
    ListClients(ctx context.Context) ([]string, error)
    ListFeatures(ctx context.Context, token, client string) ([]domain.FeatureListRow, error)
    Prewarm(ctx context.Context) error
    LogWebhookEvent(ctx context.Context, ev domain.WebhookEvent)
    RecentWebhookEvents(ctx context.Context, limit int) ([]domain.WebhookEvent, error)
}

type Handlers struct {
    cfg    config.Config
    log    zerolog.Logger
    svc    service
    scopes *scope.Resolver
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any, scopes *scope.Resolver) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service), scopes: scopes}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// callerToken accepts the identity token from the query string or a Bearer
// header; the dashboard uses the former, API consumers the latter.
func callerToken(c *gin.Context) string {
    if tok := c.Query("token"); tok != "" { return tok }
    auth := c.GetHeader("Authorization")
    if v, ok := strings.CutPrefix(auth, "Bearer "); ok { return strings.TrimSpace(v) }
    return ""
}

func (h *Handlers) intQuery(c *gin.Context, name string, def int) int {
    raw := c.Query(name)
    if raw == "" { return def }
    n, err := strconv.Atoi(raw)
    if err != nil { return def }
    return n
}

// upstream failures map to 429 when the provider throttled us and 502 for
// everything else; the report is all-or-nothing so there is no partial body
func (h *Handlers) upstreamError(c *gin.Context, err error) {
    h.log.Error().Err(err).Str("path", c.FullPath()).Msg("upstream failure")
    if errors.Is(err, azdo.ErrRateLimited) {
        c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited by azure devops, retry later"})
        return
    }
    c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func (h *Handlers) Consolidated(c *gin.Context) {
    days := h.intQuery(c, "days_near_deadline", h.cfg.NearDeadlineDays)
    cacheSeconds := h.intQuery(c, "cache_seconds", h.cfg.CacheSeconds)
    rep, err := h.svc.BuildConsolidatedReport(c.Request.Context(), callerToken(c), days, cacheSeconds)
    if err != nil { h.upstreamError(c, err); return }
    c.JSON(http.StatusOK, rep)
}

func (h *Handlers) Summary(c *gin.Context) {
    text, err := h.svc.SummarizeReport(c.Request.Context(), callerToken(c))
    if err != nil { h.upstreamError(c, err); return }
    c.JSON(http.StatusOK, gin.H{"summary": text})
}

func (h *Handlers) Clients(c *gin.Context) {
    clients, err := h.svc.ListClients(c.Request.Context())
    if err != nil { h.upstreamError(c, err); return }
    c.JSON(http.StatusOK, gin.H{"clients": clients, "count": len(clients)})
}

func (h *Handlers) Features(c *gin.Context) {
    rows, err := h.svc.ListFeatures(c.Request.Context(), callerToken(c), c.Query("client"))
    if err != nil { h.upstreamError(c, err); return }
    c.JSON(http.StatusOK, gin.H{"features": rows, "count": len(rows)})
}

func (h *Handlers) Me(c *gin.Context) {
    tok := callerToken(c)
    claims, err := h.scopes.Claims(tok)
    if err != nil {
        c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
        return
    }
    sc := h.scopes.Resolve(tok)
    out := gin.H{
        "email":    claims["email"],
        "name":     claims["name"],
        "is_admin": claims["is_admin"] == true,
    }
    if sc.Kind == scope.Client { out["client"] = sc.Client }
    c.JSON(http.StatusOK, out)
}

// Login mints a token directly from the posted identity. It exists for
// development and for deployments that front this API with their own SSO.
func (h *Handlers) Login(c *gin.Context) {
    var in struct {
        Email string `json:"email"`
        Name  string `json:"name"`
    }
    if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Email) == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
        return
    }
    admin := strings.HasSuffix(strings.ToLower(in.Email), "@qualiit.com.br")
    tok, err := h.scopes.IssueDevToken(in.Email, in.Name, admin)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"token": tok})
}

// Callback closes the login flow by bouncing the token to the frontend.
func (h *Handlers) Callback(c *gin.Context) {
    tok := c.Query("token")
    if tok == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
        return
    }
    c.Redirect(http.StatusFound, strings.TrimRight(h.cfg.FrontendURL, "/")+"/?token="+tok)
}

func (h *Handlers) AzdoWebhook(c *gin.Context) {
    body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
        return
    }
    var in struct {
        EventType string `json:"eventType"`
        Resource  struct {
            ID         int `json:"id"`
            WorkItemID int `json:"workItemId"`
        } `json:"resource"`
    }
    _ = json.Unmarshal(body, &in)
    id := in.Resource.WorkItemID
    if id == 0 { id = in.Resource.ID }
    h.svc.LogWebhookEvent(c.Request.Context(), domain.WebhookEvent{
        EventType:  in.EventType,
        WorkItemID: id,
        Payload:    string(body),
        ReceivedAt: time.Now().UTC(),
    })
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) WebhookEvents(c *gin.Context) {
    events, err := h.svc.RecentWebhookEvents(c.Request.Context(), h.intQuery(c, "limit", 50))
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (h *Handlers) PrewarmNow(c *gin.Context) {
    // detached from the request so a slow upstream cannot cancel the warm
    go func() { _ = h.svc.Prewarm(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
