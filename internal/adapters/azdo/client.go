/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package azdo

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/domain"
    "github.com/rs/zerolog"
)

// ErrRateLimited marks an upstream 429. The caller may retry; this client
// never does.
var ErrRateLimited = errors.New("azdo: rate limited")

const (
    // the workitems endpoint rejects more than 200 IDs per call
    maxBatch   = 200
    batchDelay = 300 * time.Millisecond
)

type Client struct {
    baseURL string
    org     string
    pat     string
    apiVer  string
    http    *http.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL: cfg.AzdoBaseURL,
        org:     cfg.AzdoOrg,
        pat:     cfg.AzdoPAT,
        apiVer:  cfg.AzdoAPIVersion,
        // 302 means the PAT was rejected; surface it instead of following
        http: &http.Client{
            Timeout:       cfg.HTTPTimeout,
            CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
        },
        log: log,
    }
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    if q == nil { q = url.Values{} }
    q.Set("api-version", c.apiVer)
    return base + path + "?" + q.Encode()
}

// ExecuteQuery runs a WIQL ID-query and returns the matching references.
func (c *Client) ExecuteQuery(ctx context.Context, project, query string) ([]domain.WorkItemRef, error) {
    if c.baseURL == "" { return nil, errors.New("azdo: empty baseURL") }
    if strings.TrimSpace(query) == "" { return nil, errors.New("azdo: empty query") }
    u := c.apiURL(url.PathEscape(project)+"/_apis/wit/wiql", nil)
    var out struct {
        WorkItems []domain.WorkItemRef `json:"workItems"`
    }
    if err := c.doJSON(ctx, http.MethodPost, u, map[string]string{"query": query}, &out); err != nil {
        return nil, err
    }
    c.log.Debug().Str("project", project).Int("refs", len(out.WorkItems)).Msg("azdo wiql")
    return out.WorkItems, nil
}

// GetWorkItems hydrates ids in batches of 200. fields and full expansion
// are mutually exclusive upstream: pass fields for a projection, none for
// the full payload plus relations. Empty ids returns without any call.
func (c *Client) GetWorkItems(ctx context.Context, ids []int, fields []string) ([]domain.WorkItem, error) {
    if len(ids) == 0 { return []domain.WorkItem{}, nil }
    out := make([]domain.WorkItem, 0, len(ids))
    for start := 0; start < len(ids); start += maxBatch {
        end := start + maxBatch
        if end > len(ids) { end = len(ids) }
        batch, err := c.workItemsBatch(ctx, ids[start:end], fields)
        if err != nil { return nil, err }
        out = append(out, batch...)
        if end < len(ids) {
            select {
            case <-ctx.Done():
                return nil, ctx.Err()
            case <-time.After(batchDelay):
            }
        }
    }
    if len(out) != len(ids) {
        c.log.Warn().Int("requested", len(ids)).Int("returned", len(out)).Msg("azdo hydration count mismatch")
    }
    return out, nil
}

func (c *Client) workItemsBatch(ctx context.Context, ids []int, fields []string) ([]domain.WorkItem, error) {
    strIDs := make([]string, len(ids))
    for i, id := range ids { strIDs[i] = strconv.Itoa(id) }
    q := url.Values{}
    q.Set("ids", strings.Join(strIDs, ","))
    if len(fields) > 0 {
        q.Set("fields", strings.Join(fields, ","))
    } else {
        q.Set("$expand", "all")
    }
    u := c.apiURL("_apis/wit/workitems", q)
    var out struct {
        Value []domain.WorkItem `json:"value"`
    }
    if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil { return nil, err }
    return out.Value, nil
}

func (c *Client) doJSON(ctx context.Context, method, u string, body, out any) error {
    var r io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return err }
        r = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, method, u, r)
    if err != nil { return err }
    if body != nil { req.Header.Set("Content-Type", "application/json") }
    req.SetBasicAuth("", c.pat)
    resp, err := c.http.Do(req)
    if err != nil { return fmt.Errorf("azdo: %w", err) }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(resp.Body)
        return classify(resp.StatusCode, b)
    }
    return json.NewDecoder(resp.Body).Decode(out)
}

func classify(status int, body []byte) error {
    switch status {
    case http.StatusTooManyRequests:
        return fmt.Errorf("azdo api status=%d: %w", status, ErrRateLimited)
    case http.StatusUnauthorized, http.StatusFound:
        return fmt.Errorf("azdo: authentication failed status=%d; check the PAT and its permissions", status)
    default:
        return fmt.Errorf("azdo api status=%d body=%s", status, strings.TrimSpace(string(body)))
    }
}
