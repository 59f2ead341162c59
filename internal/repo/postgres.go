package repo

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/domain"
    "github.com/rs/zerolog"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

// Repository holds the webhook audit log and the cross-replica locks used
// by the cron. The report path itself never touches the database.
type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

func (r *Repository) InsertWebhookEvent(ctx context.Context, ev domain.WebhookEvent) (int64, error) {
    const q = `INSERT INTO webhook_events(event_type, work_item_id, payload, received_at)
        VALUES($1,$2,$3,$4) RETURNING id`
    var id int64
    if err := r.db.Pool.QueryRow(ctx, q, ev.EventType, ev.WorkItemID, ev.Payload, ev.ReceivedAt).Scan(&id); err != nil {
        return 0, err
    }
    return id, nil
}

func (r *Repository) RecentWebhookEvents(ctx context.Context, limit int) ([]domain.WebhookEvent, error) {
    if limit <= 0 { limit = 50 }
    const q = `SELECT id, event_type, coalesce(work_item_id,0), payload::text, received_at
        FROM webhook_events ORDER BY id DESC LIMIT $1`
    rows, err := r.db.Pool.Query(ctx, q, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]domain.WebhookEvent, 0, limit)
    for rows.Next() {
        var ev domain.WebhookEvent
        if err := rows.Scan(&ev.ID, &ev.EventType, &ev.WorkItemID, &ev.Payload, &ev.ReceivedAt); err != nil {
            return nil, err
        }
        out = append(out, ev)
    }
    return out, rows.Err()
}
