// Package archive keeps a Postgres history of what the trackers announced.
package archive

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

    _ "github.com/lib/pq"

    "github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
)

// BattleRecord is one announced battle.
type BattleRecord struct {
    RunID      string
    Room       string
    Format     string
    BattleRoom string
    P1         string
    P2         string
    Rating     int
    RatingKind string
    Reason     string
    At         time.Time
}

// ChangeRecord is one announced batch of rank changes.
type ChangeRecord struct {
    RunID   string
    Room    string
    Format  string
    At      time.Time
    Changes []ladder.Change
}

const schema = `
CREATE TABLE IF NOT EXISTS tracked_battles (
    room        TEXT NOT NULL,
    battle_room TEXT NOT NULL,
    run_id      TEXT NOT NULL,
    format      TEXT NOT NULL,
    p1          TEXT NOT NULL,
    p2          TEXT NOT NULL,
    rating      INTEGER NOT NULL,
    rating_kind TEXT NOT NULL,
    reason      TEXT NOT NULL,
    reported_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (room, battle_room)
);
CREATE TABLE IF NOT EXISTS rank_changes (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    room        TEXT NOT NULL,
    format      TEXT NOT NULL,
    player_id   TEXT NOT NULL,
    player_name TEXT NOT NULL,
    elo         INTEGER NOT NULL,
    old_rank    INTEGER,
    new_rank    INTEGER,
    reported_at TIMESTAMPTZ NOT NULL
);`

type Repository struct {
    db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
    if strings.TrimSpace(databaseURL) == "" {
        return nil, fmt.Errorf("DATABASE_URL is required")
    }
    db, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(4)
    db.SetMaxIdleConns(2)
    db.SetConnMaxLifetime(30 * time.Minute)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, err
    }
    if _, err := db.ExecContext(ctx, schema); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("archive schema: %w", err)
    }
    return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
    if r == nil || r.db == nil { return nil }
    return r.db.Close()
}

// SaveBattle stores an announced battle. A battle re-announced in the same room
// (after a restart, say) overwrites the earlier row.
func (r *Repository) SaveBattle(ctx context.Context, rec BattleRecord) error {
    if r == nil || r.db == nil {
        return nil
    }
    q := `INSERT INTO tracked_battles (
        room, battle_room, run_id, format, p1, p2, rating, rating_kind, reason, reported_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
      ON CONFLICT (room, battle_room) DO UPDATE SET
        run_id=EXCLUDED.run_id,
        rating=EXCLUDED.rating,
        rating_kind=EXCLUDED.rating_kind,
        reason=EXCLUDED.reason,
        reported_at=EXCLUDED.reported_at`
    _, err := r.db.ExecContext(ctx, q,
        rec.Room, rec.BattleRoom, rec.RunID, rec.Format,
        rec.P1, rec.P2, rec.Rating, rec.RatingKind, rec.Reason, rec.At,
    )
    return err
}

// SaveChanges stores every change of a batch in one transaction.
func (r *Repository) SaveChanges(ctx context.Context, rec ChangeRecord) error {
    if r == nil || r.db == nil || len(rec.Changes) == 0 {
        return nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer func() { _ = tx.Rollback() }()

    stmt, err := tx.PrepareContext(ctx, `INSERT INTO rank_changes (
        run_id, room, format, player_id, player_name, elo, old_rank, new_rank, reported_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`)
    if err != nil {
        return err
    }
    defer stmt.Close()

    for _, c := range rec.Changes {
        if _, err := stmt.ExecContext(ctx,
            rec.RunID, rec.Room, rec.Format,
            c.ID.String(), c.Name, c.Elo, rankColumn(c.Old), rankColumn(c.New), rec.At,
        ); err != nil {
            return fmt.Errorf("insert change %s: %w", c.ID, err)
        }
    }
    return tx.Commit()
}

// rankColumn maps Unranked to NULL.
func rankColumn(r ladder.Rank) sql.NullInt64 {
    pos, ok := r.Position()
    return sql.NullInt64{Int64: int64(pos), Valid: ok}
}
