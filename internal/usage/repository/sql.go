package repository

import (
	"context"
	"database/sql"
	"time"

	"restaurant-bridge/backend/internal/db"
	"restaurant-bridge/backend/internal/usage/domain"
)

const (
	insertUsage = `INSERT INTO usage_logs (action, phrase, category, language, table_id, created_at)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`
	countByAction = `SELECT action, COUNT(*) FROM usage_logs
GROUP BY action ORDER BY COUNT(*) DESC, MIN(id) ASC`
	countByLanguage = `SELECT language, COUNT(*) FROM usage_logs
WHERE language IS NOT NULL AND language <> ''
GROUP BY language ORDER BY COUNT(*) DESC, MIN(id) ASC`
	topPhrases = `SELECT phrase, COUNT(*) FROM usage_logs
WHERE action = ? AND phrase IS NOT NULL AND phrase <> ''
GROUP BY phrase ORDER BY COUNT(*) DESC, MIN(id) ASC LIMIT ?`
)

// SQLRepository stores usage entries in the usage_logs table of Postgres or sqlite.
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
	nowF    func() time.Time
}

// NewSQLRepository returns a usage repository that uses the given db for persistence.
func NewSQLRepository(conn *sql.DB, dialect db.Dialect) *SQLRepository {
	return &SQLRepository{
		db:      conn,
		dialect: dialect,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Append inserts e and sets e.ID and e.CreatedAt.
func (r *SQLRepository) Append(ctx context.Context, e *domain.Entry) error {
	now := r.nowF()
	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(insertUsage),
		e.Action, nullString(e.Phrase), nullString(e.Category), nullString(e.Language), nullString(e.TableID), now,
	).Scan(&id)
	if err != nil {
		return err
	}
	e.ID = id
	e.CreatedAt = now
	return nil
}

// CountByAction returns the number of entries per action, largest first.
func (r *SQLRepository) CountByAction(ctx context.Context) ([]domain.Count, error) {
	return r.counts(ctx, countByAction)
}

// CountByLanguage returns the number of entries per non-empty language, largest first.
func (r *SQLRepository) CountByLanguage(ctx context.Context) ([]domain.Count, error) {
	return r.counts(ctx, countByLanguage)
}

// TopPhrases returns the limit most tapped phrases.
func (r *SQLRepository) TopPhrases(ctx context.Context, limit int) ([]domain.Count, error) {
	if limit <= 0 {
		return []domain.Count{}, nil
	}
	return r.counts(ctx, topPhrases, domain.ActionPhraseTap, limit)
}

func (r *SQLRepository) counts(ctx context.Context, query string, args ...interface{}) ([]domain.Count, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.Count, 0)
	for rows.Next() {
		var c domain.Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
