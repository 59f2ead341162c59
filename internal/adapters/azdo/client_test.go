package azdo

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync/atomic"
    "testing"
    "time"

    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/rs/zerolog"
)

func testClient(baseURL string) *Client {
    cfg := config.Config{
        AzdoBaseURL:    baseURL,
        AzdoPAT:        "pat",
        AzdoAPIVersion: "7.0",
        HTTPTimeout:    5 * time.Second,
    }
    return NewClient(cfg, zerolog.Nop())
}

func TestExecuteQuery_ReturnsRefs(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "/_apis/wit/wiql") {
            t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
        }
        if r.URL.Query().Get("api-version") != "7.0" {
            t.Errorf("missing api-version: %s", r.URL.RawQuery)
        }
        var body struct{ Query string `json:"query"` }
        _ = json.NewDecoder(r.Body).Decode(&body)
        if !strings.Contains(body.Query, "SELECT") { t.Errorf("query not posted: %q", body.Query) }
        fmt.Fprint(w, `{"workItems":[{"id":1},{"id":2},{"id":3}]}`)
    }))
    defer srv.Close()

    refs, err := testClient(srv.URL).ExecuteQuery(context.Background(), "Projeto X", "SELECT [System.Id] FROM workitems")
    if err != nil { t.Fatalf("ExecuteQuery: %v", err) }
    if len(refs) != 3 || refs[0].ID != 1 || refs[2].ID != 3 { t.Fatalf("got %#v", refs) }
}

func TestGetWorkItems_EmptyIDsMakesNoCall(t *testing.T) {
    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls.Add(1)
        fmt.Fprint(w, `{"value":[]}`)
    }))
    defer srv.Close()

    items, err := testClient(srv.URL).GetWorkItems(context.Background(), nil, nil)
    if err != nil { t.Fatalf("GetWorkItems: %v", err) }
    if len(items) != 0 { t.Fatalf("got %#v", items) }
    if calls.Load() != 0 { t.Fatalf("empty id set must not hit the API (%d calls)", calls.Load()) }
}

func TestGetWorkItems_BatchesOf200(t *testing.T) {
    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls.Add(1)
        ids := strings.Split(r.URL.Query().Get("ids"), ",")
        if len(ids) > 200 { t.Errorf("batch too large: %d ids", len(ids)) }
        items := make([]map[string]any, len(ids))
        for i := range ids { items[i] = map[string]any{"id": i, "fields": map[string]any{}} }
        _ = json.NewEncoder(w).Encode(map[string]any{"value": items})
    }))
    defer srv.Close()

    ids := make([]int, 450)
    for i := range ids { ids[i] = i + 1 }
    items, err := testClient(srv.URL).GetWorkItems(context.Background(), ids, []string{"System.Title"})
    if err != nil { t.Fatalf("GetWorkItems: %v", err) }
    if len(items) != 450 { t.Fatalf("expected 450 items, got %d", len(items)) }
    if calls.Load() != 3 { t.Fatalf("expected 3 batches, got %d", calls.Load()) }
}

func TestGetWorkItems_FieldsExcludeExpand(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        q := r.URL.Query()
        hasFields := q.Get("fields") != ""
        hasExpand := q.Get("$expand") != ""
        if hasFields == hasExpand {
            t.Errorf("fields and $expand must be mutually exclusive: %s", r.URL.RawQuery)
        }
        fmt.Fprint(w, `{"value":[]}`)
    }))
    defer srv.Close()

    c := testClient(srv.URL)
    if _, err := c.GetWorkItems(context.Background(), []int{1}, []string{"System.Title"}); err != nil {
        t.Fatalf("with fields: %v", err)
    }
    if _, err := c.GetWorkItems(context.Background(), []int{1}, nil); err != nil {
        t.Fatalf("without fields: %v", err)
    }
}

func TestRateLimitClassification(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusTooManyRequests)
    }))
    defer srv.Close()

    _, err := testClient(srv.URL).ExecuteQuery(context.Background(), "P", "SELECT [System.Id] FROM workitems")
    if !errors.Is(err, ErrRateLimited) { t.Fatalf("expected ErrRateLimited, got %v", err) }
}

func TestAuthFailureIsHardError(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusUnauthorized)
    }))
    defer srv.Close()

    _, err := testClient(srv.URL).GetWorkItems(context.Background(), []int{1}, nil)
    if err == nil || !strings.Contains(err.Error(), "authentication") {
        t.Fatalf("expected auth error, got %v", err)
    }
    if errors.Is(err, ErrRateLimited) { t.Fatalf("auth failure must not look retryable") }
}

func TestBasicAuthEmptyUserPlusPAT(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        user, pass, ok := r.BasicAuth()
        if !ok || user != "" || pass != "pat" {
            t.Errorf("bad auth: ok=%v user=%q pass=%q", ok, user, pass)
        }
        fmt.Fprint(w, `{"workItems":[]}`)
    }))
    defer srv.Close()

    if _, err := testClient(srv.URL).ExecuteQuery(context.Background(), "P", "SELECT [System.Id] FROM workitems"); err != nil {
        t.Fatalf("ExecuteQuery: %v", err)
    }
}
