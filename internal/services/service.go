/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "sort"
    "strings"
    "time"

    "golang.org/x/sync/errgroup"

    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/domain"
    "github.com/marcelomcd/NewFarol-sub000/internal/normalize"
    "github.com/marcelomcd/NewFarol-sub000/internal/repo"
    "github.com/marcelomcd/NewFarol-sub000/internal/scope"
    "github.com/marcelomcd/NewFarol-sub000/internal/wiql"
    "github.com/rs/zerolog"
)

type AzdoClient interface {
    ExecuteQuery(ctx context.Context, project, query string) ([]domain.WorkItemRef, error)
    GetWorkItems(ctx context.Context, ids []int, fields []string) ([]domain.WorkItem, error)
}

type Cache interface {
    Get(key string) (any, bool)
    Set(key string, value any, ttl time.Duration)
    Clear()
}

type Summarizer interface {
    Summarize(ctx context.Context, report domain.ConsolidatedReport) (string, error)
}

// Projection hydrated for feature buckets. Dashboard and Power BI both
// read from these rows, so every field here is load-bearing.
var featureFields = []string{
    "System.Id",
    "System.Title",
    "System.State",
    "System.WorkItemType",
    "Microsoft.VSTS.Scheduling.TargetDate",
    "System.AssignedTo",
    "Custom.ResponsavelCliente",
    "Custom.StatusProjeto",
    "System.ChangedDate",
    "System.CreatedDate",
    "System.BoardColumn",
    "System.AreaPath",
    "System.IterationPath",
}

var epicFields = []string{"System.Id", "System.Title", "System.WorkItemType", "System.State"}

var featureListFields = append(append([]string(nil), featureFields...), "System.Tags")

type Service struct {
    cfg    config.Config
    log    zerolog.Logger
    azdo   AzdoClient
    cache  Cache
    scopes *scope.Resolver
    repo   *repo.Repository
    llm    Summarizer
}

// New wires the aggregation engine. r may be nil when no database is
// configured; only the webhook audit degrades.
func New(cfg config.Config, log zerolog.Logger, azdo AzdoClient, c Cache, scopes *scope.Resolver, r *repo.Repository, llm Summarizer) *Service {
    return &Service{cfg: cfg, log: log, azdo: azdo, cache: c, scopes: scopes, repo: r, llm: llm}
}

// BuildConsolidatedReport computes the full dashboard payload for one
// caller: concurrent ID-queries per bucket, concurrent hydration, local
// near-deadline refinement, then normalization and assembly, all behind
// the TTL cache. Any upstream failure aborts the whole call; there is no
// partial report.
func (s *Service) BuildConsolidatedReport(ctx context.Context, token string, daysNearDeadline, cacheSeconds int) (domain.ConsolidatedReport, error) {
    if daysNearDeadline <= 0 { daysNearDeadline = s.cfg.NearDeadlineDays }
    if cacheSeconds < 0 { cacheSeconds = 0 }
    project := s.cfg.AzdoRootProject

    sc := s.scopes.Resolve(token)
    if sc.Kind == scope.Unknown {
        // authenticated but mapped to no known client: the caller sees an
        // empty portfolio, never someone else's
        s.log.Warn().Msg("caller scope unknown; serving all-zero report")
        return s.emptyReport(daysNearDeadline, cacheSeconds), nil
    }
    var clientFilter *string
    scopeKey := "all"
    if sc.Kind == scope.Client {
        clientFilter = &sc.Client
        scopeKey = sc.Client
    }

    cacheKey := fmt.Sprintf("azdo_consolidated:v1:project=%s:user_client=%s:days=%d", project, scopeKey, daysNearDeadline)
    if cacheSeconds > 0 {
        if v, ok := s.cache.Get(cacheKey); ok {
            if rep, ok := v.(domain.ConsolidatedReport); ok {
                rep.Cache = domain.CacheInfo{Hit: true, TTLSeconds: cacheSeconds}
                return rep, nil
            }
        }
    }

    statuses := s.cfg.Statuses

    // ID phase: every bucket query in flight at once
    var idsTotal, idsOpen, idsOverdue, idsNear, idsClosed, idsEpics []int
    statusIDs := make([][]int, len(statuses))
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error { var err error; idsTotal, err = s.idsFor(gctx, project, wiql.TotalFeatures(project)); return err })
    g.Go(func() error { var err error; idsOpen, err = s.idsFor(gctx, project, wiql.OpenFeatures(project)); return err })
    g.Go(func() error { var err error; idsOverdue, err = s.idsFor(gctx, project, wiql.OverdueFeatures(project)); return err })
    g.Go(func() error { var err error; idsNear, err = s.idsFor(gctx, project, wiql.NearDeadlineCandidates(project)); return err })
    g.Go(func() error { var err error; idsClosed, err = s.idsFor(gctx, project, wiql.ClosedFeatures(project)); return err })
    g.Go(func() error { var err error; idsEpics, err = s.idsFor(gctx, project, wiql.Epics(project)); return err })
    for i, st := range statuses {
        i, st := i, st
        g.Go(func() error { var err error; statusIDs[i], err = s.idsFor(gctx, project, wiql.FeaturesByStatus(project, st)); return err })
    }
    if err := g.Wait(); err != nil { return domain.ConsolidatedReport{}, err }

    // hydration phase: empty buckets short-circuit without a call
    var totalItems, openItems, overdueItems, nearCandidates, closedItems, epicItems []domain.WorkItem
    statusItems := make([][]domain.WorkItem, len(statuses))
    h, hctx := errgroup.WithContext(ctx)
    h.Go(func() error { var err error; totalItems, err = s.itemsFor(hctx, idsTotal, featureFields); return err })
    h.Go(func() error { var err error; openItems, err = s.itemsFor(hctx, idsOpen, featureFields); return err })
    h.Go(func() error { var err error; overdueItems, err = s.itemsFor(hctx, idsOverdue, featureFields); return err })
    h.Go(func() error { var err error; nearCandidates, err = s.itemsFor(hctx, idsNear, featureFields); return err })
    h.Go(func() error { var err error; closedItems, err = s.itemsFor(hctx, idsClosed, featureFields); return err })
    h.Go(func() error { var err error; epicItems, err = s.itemsFor(hctx, idsEpics, epicFields); return err })
    for i := range statuses {
        i := i
        h.Go(func() error { var err error; statusItems[i], err = s.itemsFor(hctx, statusIDs[i], featureFields); return err })
    }
    if err := h.Wait(); err != nil { return domain.ConsolidatedReport{}, err }

    // near-deadline refinement: the query dialect cannot bound a future
    // window, so the wide candidate set is cut down here. Inclusive at
    // both ends, time-of-day stripped.
    today := normalize.Day(time.Now())
    maxDay := today.AddDate(0, 0, daysNearDeadline)
    nearItems := make([]domain.WorkItem, 0, len(nearCandidates))
    for _, wi := range nearCandidates {
        td, ok := normalize.ParseDay(wi.Fields["Microsoft.VSTS.Scheduling.TargetDate"])
        if !ok { continue }
        if !td.Before(today) && !td.After(maxDay) { nearItems = append(nearItems, wi) }
    }

    // PMOs: distinct assignee display names over the total bucket
    pmoSet := map[string]struct{}{}
    for _, wi := range totalItems {
        if name := normalize.SafeDisplayName(wi.Fields["System.AssignedTo"]); name != "" {
            pmoSet[name] = struct{}{}
        }
    }
    pmos := make([]string, 0, len(pmoSet))
    for name := range pmoSet { pmos = append(pmos, name) }
    sort.Strings(pmos)

    filtered := func(items []domain.WorkItem) []domain.FeatureRow {
        return s.filterByClient(s.featureRows(items), sc)
    }
    lists := domain.Lists{
        Total:        filtered(totalItems),
        Open:         filtered(openItems),
        Overdue:      filtered(overdueItems),
        NearDeadline: filtered(nearItems),
        Closed:       filtered(closedItems),
    }

    byStatus := make(map[string]domain.StatusGroup, len(statuses))
    for i, st := range statuses {
        rows := filtered(statusItems[i])
        count := len(statusIDs[i])
        if s.cfg.ScopedTotals { count = len(rows) }
        byStatus[st] = domain.StatusGroup{Count: count, Items: rows}
    }

    // totals stay global even under a client scope unless SCOPED_TOTALS
    // flips them to track the filtered lists
    totals := domain.Totals{
        Total:        len(idsTotal),
        Open:         len(idsOpen),
        Overdue:      len(idsOverdue),
        NearDeadline: len(nearItems),
        Closed:       len(idsClosed),
    }
    if s.cfg.ScopedTotals {
        totals = domain.Totals{
            Total:        len(lists.Total),
            Open:         len(lists.Open),
            Overdue:      len(lists.Overdue),
            NearDeadline: len(lists.NearDeadline),
            Closed:       len(lists.Closed),
        }
    }

    epics := s.epicRows(epicItems)
    summary := clientSummaries(epics, lists.Total, lists.Open)

    rep := domain.ConsolidatedReport{
        Meta: domain.Meta{
            Org:              s.cfg.AzdoOrg,
            Project:          project,
            APIVersion:       s.cfg.AzdoAPIVersion,
            GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
            NearDeadlineDays: daysNearDeadline,
            ClientFilter:     clientFilter,
        },
        Cache:  domain.CacheInfo{Hit: false, TTLSeconds: cacheSeconds},
        Totals: totals,
        Lists:  lists,
        Clients: domain.ClientsSection{
            Epics:       epics,
            Count:       len(epics),
            Summary:     summary,
            UniqueCount: len(summary),
        },
        PMOs:             domain.PMOSection{Items: pmos, Count: len(pmos)},
        FeaturesByStatus: byStatus,
    }

    if cacheSeconds > 0 {
        s.cache.Set(cacheKey, rep, time.Duration(cacheSeconds)*time.Second)
    }
    return rep, nil
}

func (s *Service) idsFor(ctx context.Context, project, query string) ([]int, error) {
    refs, err := s.azdo.ExecuteQuery(ctx, project, query)
    if err != nil { return nil, err }
    ids := make([]int, 0, len(refs))
    for _, r := range refs {
        if r.ID > 0 { ids = append(ids, r.ID) }
    }
    return ids, nil
}

// itemsFor guards the hydration call: empty buckets never reach the
// client.
func (s *Service) itemsFor(ctx context.Context, ids []int, fields []string) ([]domain.WorkItem, error) {
    if len(ids) == 0 { return []domain.WorkItem{}, nil }
    return s.azdo.GetWorkItems(ctx, ids, fields)
}

func (s *Service) featureRows(items []domain.WorkItem) []domain.FeatureRow {
    rows := make([]domain.FeatureRow, 0, len(items))
    for _, wi := range items { rows = append(rows, s.toFeatureRow(wi)) }
    return rows
}

func (s *Service) toFeatureRow(wi domain.WorkItem) domain.FeatureRow {
    f := wi.Fields
    area := normalize.FieldString(f, "System.AreaPath")
    iter := normalize.FieldString(f, "System.IterationPath")
    var client *string
    if name := normalize.ExtractClientName(area, iter, s.cfg.AzdoRootProject); name != "" { client = &name }
    var pmo *string
    if name := normalize.SafeDisplayName(f["System.AssignedTo"]); name != "" { pmo = &name }
    id := wi.ID
    if id == 0 {
        if v, ok := f["System.Id"].(float64); ok { id = int(v) }
    }
    return domain.FeatureRow{
        ID:            id,
        Title:         normalize.FieldString(f, "System.Title"),
        State:         normalize.FieldString(f, "System.State"),
        WorkItemType:  normalize.FieldString(f, "System.WorkItemType"),
        TargetDate:    normalize.FieldString(f, "Microsoft.VSTS.Scheduling.TargetDate"),
        CreatedDate:   normalize.FieldString(f, "System.CreatedDate"),
        ChangedDate:   normalize.FieldString(f, "System.ChangedDate"),
        PMO:           pmo,
        Responsible:   normalize.FieldString(f, "Custom.ResponsavelCliente"),
        FarolStatus:   normalize.FarolStatus(f["Custom.StatusProjeto"]),
        BoardColumn:   normalize.FieldString(f, "System.BoardColumn"),
        Client:        client,
        AreaPath:      area,
        IterationPath: iter,
    }
}

func (s *Service) epicRows(items []domain.WorkItem) []domain.EpicRow {
    rows := make([]domain.EpicRow, 0, len(items))
    for _, wi := range items {
        f := wi.Fields
        title := normalize.FieldString(f, "System.Title")
        var client *string
        if name := normalize.CanonicalClientName(title); name != "" { client = &name }
        id := wi.ID
        if id == 0 {
            if v, ok := f["System.Id"].(float64); ok { id = int(v) }
        }
        rows = append(rows, domain.EpicRow{
            ID:           id,
            Title:        title,
            Client:       client,
            WorkItemType: normalize.FieldString(f, "System.WorkItemType"),
        })
    }
    return rows
}

func (s *Service) filterByClient(rows []domain.FeatureRow, sc scope.Scope) []domain.FeatureRow {
    if sc.Kind != scope.Client { return rows }
    key := normalize.ClientKey(sc.Client)
    out := make([]domain.FeatureRow, 0, len(rows))
    for _, r := range rows {
        if r.Client != nil && normalize.ClientKey(*r.Client) == key { out = append(out, r) }
    }
    return out
}

// clientSummaries counts features per client over the Epic-derived client
// registry. closed is clamped at zero: the buckets are sampled at slightly
// different instants and may disagree.
func clientSummaries(epics []domain.EpicRow, totalRows, openRows []domain.FeatureRow) []domain.ClientSummary {
    byTotal := map[string]int{}
    for _, r := range totalRows {
        if r.Client == nil { continue }
        if k := normalize.ClientKey(*r.Client); k != "" { byTotal[k]++ }
    }
    byOpen := map[string]int{}
    for _, r := range openRows {
        if r.Client == nil { continue }
        if k := normalize.ClientKey(*r.Client); k != "" { byOpen[k]++ }
    }

    names := map[string]string{}
    for _, e := range epics {
        name := e.Title
        if e.Client != nil { name = *e.Client }
        key := normalize.ClientKey(name)
        if key == "" { continue }
        if _, seen := names[key]; !seen {
            display := normalize.CanonicalClientName(name)
            if display == "" { display = strings.TrimSpace(name) }
            names[key] = display
        }
    }

    out := make([]domain.ClientSummary, 0, len(names))
    for key, name := range names {
        total := byTotal[key]
        open := byOpen[key]
        closed := total - open
        if closed < 0 { closed = 0 }
        out = append(out, domain.ClientSummary{Key: key, Name: name, Active: open, Total: total, Closed: closed})
    }
    sort.Slice(out, func(i, j int) bool {
        return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
    })
    return out
}

func (s *Service) emptyReport(daysNearDeadline, cacheSeconds int) domain.ConsolidatedReport {
    byStatus := make(map[string]domain.StatusGroup, len(s.cfg.Statuses))
    for _, st := range s.cfg.Statuses {
        byStatus[st] = domain.StatusGroup{Count: 0, Items: []domain.FeatureRow{}}
    }
    return domain.ConsolidatedReport{
        Meta: domain.Meta{
            Org:              s.cfg.AzdoOrg,
            Project:          s.cfg.AzdoRootProject,
            APIVersion:       s.cfg.AzdoAPIVersion,
            GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
            NearDeadlineDays: daysNearDeadline,
        },
        Cache: domain.CacheInfo{Hit: false, TTLSeconds: cacheSeconds},
        Lists: domain.Lists{
            Total:        []domain.FeatureRow{},
            Open:         []domain.FeatureRow{},
            Overdue:      []domain.FeatureRow{},
            NearDeadline: []domain.FeatureRow{},
            Closed:       []domain.FeatureRow{},
        },
        Clients: domain.ClientsSection{
            Epics:   []domain.EpicRow{},
            Summary: []domain.ClientSummary{},
        },
        PMOs:             domain.PMOSection{Items: []string{}},
        FeaturesByStatus: byStatus,
    }
}

// ListClients returns the distinct client names derived from Epic area and
// iteration paths, sorted.
func (s *Service) ListClients(ctx context.Context) ([]string, error) {
    project := s.cfg.AzdoRootProject
    ids, err := s.idsFor(ctx, project, wiql.Epics(project))
    if err != nil { return nil, err }
    items, err := s.itemsFor(ctx, ids, []string{"System.AreaPath", "System.IterationPath"})
    if err != nil { return nil, err }
    set := map[string]struct{}{}
    for _, wi := range items {
        name := normalize.ExtractClientName(
            normalize.FieldString(wi.Fields, "System.AreaPath"),
            normalize.FieldString(wi.Fields, "System.IterationPath"),
            project,
        )
        if name != "" { set[name] = struct{}{} }
    }
    out := make([]string, 0, len(set))
    for name := range set { out = append(out, name) }
    sort.Strings(out)
    return out, nil
}

// ListFeatures returns thin open-feature rows. An explicit client query
// wins over the caller's scope; both match on the normalized key.
func (s *Service) ListFeatures(ctx context.Context, token, client string) ([]domain.FeatureListRow, error) {
    project := s.cfg.AzdoRootProject
    ids, err := s.idsFor(ctx, project, wiql.OpenFeatures(project))
    if err != nil { return nil, err }
    items, err := s.itemsFor(ctx, ids, featureListFields)
    if err != nil { return nil, err }

    filterKey := normalize.ClientKey(client)
    if filterKey == "" {
        if sc := s.scopes.Resolve(token); sc.Kind == scope.Client {
            filterKey = normalize.ClientKey(sc.Client)
        }
    }

    out := make([]domain.FeatureListRow, 0, len(items))
    for _, wi := range items {
        row := s.toFeatureRow(wi)
        if filterKey != "" {
            if row.Client == nil || normalize.ClientKey(*row.Client) != filterKey { continue }
        }
        out = append(out, domain.FeatureListRow{
            ID:              row.ID,
            Title:           row.Title,
            State:           row.State,
            NormalizedState: normalize.State(row.State, s.cfg.Statuses),
            Client:          row.Client,
            PMO:             row.PMO,
            TargetDate:      row.TargetDate,
            BoardColumn:     row.BoardColumn,
            FarolStatus:     row.FarolStatus,
            ChangedDate:     row.ChangedDate,
            CreatedDate:     row.CreatedDate,
            Tags:            normalize.SplitTags(normalize.FieldString(wi.Fields, "System.Tags")),
        })
    }
    return out, nil
}

// SummarizeReport builds a fresh report for the caller and asks the LLM
// for an executive reading of it.
func (s *Service) SummarizeReport(ctx context.Context, token string) (string, error) {
    rep, err := s.BuildConsolidatedReport(ctx, token, s.cfg.NearDeadlineDays, s.cfg.CacheSeconds)
    if err != nil { return "", err }
    return s.llm.Summarize(ctx, rep)
}

// Prewarm computes the unrestricted report so the next dashboard load hits
// the cache.
func (s *Service) Prewarm(ctx context.Context) error {
    _, err := s.BuildConsolidatedReport(ctx, "", s.cfg.NearDeadlineDays, s.cfg.CacheSeconds)
    return err
}

func (s *Service) LogWebhookEvent(ctx context.Context, ev domain.WebhookEvent) {
    s.log.Info().Str("event", ev.EventType).Int("work_item", ev.WorkItemID).Msg("webhook received")
    if s.repo == nil { return }
    if _, err := s.repo.InsertWebhookEvent(ctx, ev); err != nil {
        s.log.Error().Err(err).Msg("webhook audit insert failed")
    }
}

func (s *Service) RecentWebhookEvents(ctx context.Context, limit int) ([]domain.WebhookEvent, error) {
    if s.repo == nil { return []domain.WebhookEvent{}, nil }
    return s.repo.RecentWebhookEvents(ctx, limit)
}
