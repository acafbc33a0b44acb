package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feedfloat/internal/core/model"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS feeds (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	label       TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	ended_at    INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	side        TEXT,
	volume_ml   REAL,
	milk_type   TEXT,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feeds_started_at ON feeds(started_at DESC);
`

// Journal stores completed feeding sessions in SQLite.
type Journal struct {
	conn *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return &Journal{conn: conn}, nil
}

// Close closes the database.
func (journal *Journal) Close() error {
	return journal.conn.Close()
}

// Save stores draft. Saving the same draft twice keeps the first copy.
func (journal *Journal) Save(ctx context.Context, draft model.SessionDraft) error {
	var side, milk sql.NullString
	var volume sql.NullFloat64
	if draft.Side != nil {
		side = sql.NullString{String: string(*draft.Side), Valid: true}
	}
	if draft.MilkType != nil {
		milk = sql.NullString{String: string(*draft.MilkType), Valid: true}
	}
	if draft.VolumeMl != nil {
		volume = sql.NullFloat64{Float64: *draft.VolumeMl, Valid: true}
	}

	_, err := journal.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO feeds
			(id, mode, label, started_at, ended_at, duration_ms, side, volume_ml, milk_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.ID,
		string(draft.Mode),
		draft.Label,
		draft.Start.UnixMilli(),
		draft.End.UnixMilli(),
		draft.Duration.Milliseconds(),
		side,
		volume,
		milk,
		draft.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save feed %s: %w", draft.ID, err)
	}
	return nil
}

// Recent returns up to limit feeds, newest first.
func (journal *Journal) Recent(ctx context.Context, limit int) ([]model.SessionDraft, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := journal.conn.QueryContext(ctx, `
		SELECT id, mode, label, started_at, ended_at, duration_ms, side, volume_ml, milk_type, created_at
		FROM feeds
		ORDER BY started_at DESC, created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var drafts []model.SessionDraft
	for rows.Next() {
		var (
			draft                         model.SessionDraft
			mode                          string
			started, ended, total, create int64
			side, milk                    sql.NullString
			volume                        sql.NullFloat64
		)
		if err := rows.Scan(&draft.ID, &mode, &draft.Label, &started, &ended, &total, &side, &volume, &milk, &create); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		draft.Mode = model.Mode(mode)
		draft.Start = time.UnixMilli(started)
		draft.End = time.UnixMilli(ended)
		draft.Duration = time.Duration(total) * time.Millisecond
		draft.CreatedAt = time.UnixMilli(create)
		if side.Valid {
			value := model.Side(side.String)
			draft.Side = &value
		}
		if volume.Valid {
			value := volume.Float64
			draft.VolumeMl = &value
		}
		if milk.Valid {
			value := model.MilkType(milk.String)
			draft.MilkType = &value
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}
	return drafts, nil
}
