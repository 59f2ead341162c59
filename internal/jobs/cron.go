package jobs

import (
    "context"
    "time"

    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/repo"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface{ Prewarm(ctx context.Context) error }

type Cron struct {
    cfg  config.Config
    log  zerolog.Logger
    svc  service
    repo *repo.Repository
    c    *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, svc service, r *repo.Repository) *Cron {
    loc, _ := time.LoadLocation(cfg.TZ)
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, repo: r, c: c}
    _, _ = c.AddFunc(cfg.PrewarmCron, cr.prewarm)
    return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

// prewarm refreshes the unrestricted report ahead of dashboard traffic.
// With a database configured, an advisory lock keeps replicas from warming
// the same window at once; without one, every replica warms its own cache
// anyway.
func (cr *Cron) prewarm() {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
    defer cancel()
    if cr.repo != nil {
        const lockKey int64 = 731942
        ok, err := cr.repo.TryAdvisoryLock(ctx, lockKey)
        if err != nil { cr.log.Error().Err(err).Msg("cron: lock error"); return }
        if !ok { cr.log.Info().Msg("cron: prewarm already running elsewhere"); return }
        defer func() { _ = cr.repo.AdvisoryUnlock(context.Background(), lockKey) }()
    }
    cr.log.Info().Msg("cron: prewarm consolidated report")
    if err := cr.svc.Prewarm(ctx); err != nil { cr.log.Error().Err(err).Msg("cron: prewarm failed") }
}
