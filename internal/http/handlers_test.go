package http

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/marcelomcd/NewFarol-sub000/internal/adapters/azdo"
    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/domain"
    "github.com/marcelomcd/NewFarol-sub000/internal/scope"
    "github.com/rs/zerolog"
)

type stubService struct {
    err       error
    days      int
    ttl       int
    token     string
    webhooks  []domain.WebhookEvent
    prewarmed chan struct{}
}

func (s *stubService) BuildConsolidatedReport(_ context.Context, token string, days, ttl int) (domain.ConsolidatedReport, error) {
    s.token, s.days, s.ttl = token, days, ttl
    if s.err != nil { return domain.ConsolidatedReport{}, s.err }
    return domain.ConsolidatedReport{Totals: domain.Totals{Total: 5}}, nil
}

func (s *stubService) SummarizeReport(context.Context, string) (string, error) {
    if s.err != nil { return "", s.err }
    return "tudo sob controle", nil
}

func (s *stubService) ListClients(context.Context) ([]string, error) {
    return []string{"Camil", "Combio"}, s.err
}

func (s *stubService) ListFeatures(context.Context, string, string) ([]domain.FeatureListRow, error) {
    return []domain.FeatureListRow{{ID: 1, Title: "F"}}, s.err
}

func (s *stubService) Prewarm(context.Context) error {
    if s.prewarmed != nil { close(s.prewarmed) }
    return nil
}

func (s *stubService) LogWebhookEvent(_ context.Context, ev domain.WebhookEvent) {
    s.webhooks = append(s.webhooks, ev)
}

func (s *stubService) RecentWebhookEvents(context.Context, int) ([]domain.WebhookEvent, error) {
    return s.webhooks, nil
}

func testRouterWith(t *testing.T, svc *stubService) (http.Handler, *scope.Resolver) {
    t.Helper()
    cfg := config.Config{
        AppEnv:           "test",
        SecretKey:        "test-secret",
        TokenTTL:         time.Minute,
        NearDeadlineDays: 7,
        CacheSeconds:     10,
        FrontendURL:      "https://farol.example",
    }
    scopes := scope.NewResolver(cfg)
    return NewRouter(cfg, zerolog.Nop(), svc, scopes), scopes
}

func doReq(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
    t.Helper()
    var req *http.Request
    if body == "" {
        req = httptest.NewRequest(method, target, nil)
    } else {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set("Content-Type", "application/json")
    }
    w := httptest.NewRecorder()
    h.ServeHTTP(w, req)
    return w
}

func TestConsolidated_ParamsAndDefaults(t *testing.T) {
    svc := &stubService{}
    h, _ := testRouterWith(t, svc)

    w := doReq(t, h, http.MethodGet, "/api/azdo/consolidated?days_near_deadline=14&cache_seconds=0&token=abc", "")
    if w.Code != http.StatusOK { t.Fatalf("status %d: %s", w.Code, w.Body.String()) }
    if svc.days != 14 || svc.ttl != 0 || svc.token != "abc" {
        t.Fatalf("params not forwarded: days=%d ttl=%d token=%q", svc.days, svc.ttl, svc.token)
    }

    doReq(t, h, http.MethodGet, "/api/azdo/consolidated", "")
    if svc.days != 7 || svc.ttl != 10 { t.Fatalf("defaults: days=%d ttl=%d", svc.days, svc.ttl) }

    req := httptest.NewRequest(http.MethodGet, "/api/azdo/consolidated", nil)
    req.Header.Set("Authorization", "Bearer xyz")
    h.ServeHTTP(httptest.NewRecorder(), req)
    if svc.token != "xyz" { t.Fatalf("bearer token not picked up: %q", svc.token) }
}

func TestConsolidated_RateLimitMapsTo429(t *testing.T) {
    svc := &stubService{err: fmt.Errorf("wiql: %w", azdo.ErrRateLimited)}
    h, _ := testRouterWith(t, svc)
    if w := doReq(t, h, http.MethodGet, "/api/azdo/consolidated", ""); w.Code != http.StatusTooManyRequests {
        t.Fatalf("status %d", w.Code)
    }
}

func TestConsolidated_UpstreamFailureMapsTo502(t *testing.T) {
    svc := &stubService{err: fmt.Errorf("azdo api status=500")}
    h, _ := testRouterWith(t, svc)
    if w := doReq(t, h, http.MethodGet, "/api/azdo/consolidated", ""); w.Code != http.StatusBadGateway {
        t.Fatalf("status %d", w.Code)
    }
}

func TestMe_RequiresValidToken(t *testing.T) {
    h, scopes := testRouterWith(t, &stubService{})

    if w := doReq(t, h, http.MethodGet, "/api/auth/me", ""); w.Code != http.StatusUnauthorized {
        t.Fatalf("missing token: status %d", w.Code)
    }

    tok, err := scopes.IssueDevToken("maria@combio.com.br", "Maria", false)
    if err != nil { t.Fatalf("issue: %v", err) }
    w := doReq(t, h, http.MethodGet, "/api/auth/me?token="+tok, "")
    if w.Code != http.StatusOK { t.Fatalf("status %d: %s", w.Code, w.Body.String()) }
    var out map[string]any
    _ = json.Unmarshal(w.Body.Bytes(), &out)
    if out["email"] != "maria@combio.com.br" || out["client"] != "Combio" {
        t.Fatalf("payload: %v", out)
    }
}

func TestLogin_IssuesUsableToken(t *testing.T) {
    h, scopes := testRouterWith(t, &stubService{})
    w := doReq(t, h, http.MethodPost, "/api/auth/login", `{"email":"dev@qualiit.com.br","name":"Dev"}`)
    if w.Code != http.StatusOK { t.Fatalf("status %d: %s", w.Code, w.Body.String()) }
    var out struct{ Token string `json:"token"` }
    _ = json.Unmarshal(w.Body.Bytes(), &out)
    if out.Token == "" { t.Fatalf("no token issued") }
    if _, err := scopes.Claims(out.Token); err != nil { t.Fatalf("claims: %v", err) }

    if w := doReq(t, h, http.MethodPost, "/api/auth/login", `{"name":"No Email"}`); w.Code != http.StatusBadRequest {
        t.Fatalf("missing email: status %d", w.Code)
    }
}

func TestAzdoWebhook_CapturesEvent(t *testing.T) {
    svc := &stubService{}
    h, _ := testRouterWith(t, svc)
    body := `{"eventType":"workitem.updated","resource":{"workItemId":123}}`
    if w := doReq(t, h, http.MethodPost, "/api/webhooks/azdo", body); w.Code != http.StatusOK {
        t.Fatalf("status %d", w.Code)
    }
    if len(svc.webhooks) != 1 || svc.webhooks[0].WorkItemID != 123 || svc.webhooks[0].EventType != "workitem.updated" {
        t.Fatalf("event: %+v", svc.webhooks)
    }
    if !strings.Contains(svc.webhooks[0].Payload, "workitem.updated") { t.Fatalf("raw payload not kept") }
}

func TestPrewarm_Queues(t *testing.T) {
    svc := &stubService{prewarmed: make(chan struct{})}
    h, _ := testRouterWith(t, svc)
    if w := doReq(t, h, http.MethodPost, "/admin/prewarm", ""); w.Code != http.StatusAccepted {
        t.Fatalf("status %d", w.Code)
    }
    select {
    case <-svc.prewarmed:
    case <-time.After(time.Second):
        t.Fatalf("prewarm never ran")
    }
}
