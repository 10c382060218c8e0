package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"restaurant-bridge/backend/internal/call/domain"
	"restaurant-bridge/backend/internal/db"
)

const callColumns = `id, table_id, call_type, message, status, created_at, responded_at`

const (
	insertCall = `INSERT INTO staff_calls (table_id, call_type, message, status, created_at)
VALUES (?, ?, ?, ?, ?) RETURNING id`
	getCall         = `SELECT ` + callColumns + ` FROM staff_calls WHERE id = ?`
	listPendingCall = `SELECT ` + callColumns + ` FROM staff_calls WHERE status = ? ORDER BY created_at DESC, id DESC`
	listRecentCall  = `SELECT ` + callColumns + ` FROM staff_calls ORDER BY created_at DESC, id DESC LIMIT ?`
	// resolveCall is the only mutation of an existing row; the status guard makes it a compare-and-set.
	resolveCall = `UPDATE staff_calls SET status = ?, responded_at = ? WHERE id = ? AND status = ?`
)

// SQLRepository stores calls in the staff_calls table of Postgres or sqlite.
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
	nowF    func() time.Time
}

// NewSQLRepository returns a call repository that uses the given db for persistence.
func NewSQLRepository(conn *sql.DB, dialect db.Dialect) *SQLRepository {
	return &SQLRepository{
		db:      conn,
		dialect: dialect,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Append inserts c with status pending and created_at now. Identical calls are all stored.
func (r *SQLRepository) Append(ctx context.Context, c *domain.CallEvent) error {
	now := r.nowF()
	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(insertCall),
		c.TableID, c.CallType, nullString(c.Message), string(domain.CallStatusPending), now,
	).Scan(&id)
	if err != nil {
		return err
	}
	c.ID = id
	c.Status = domain.CallStatusPending
	c.CreatedAt = now
	c.RespondedAt = nil
	return nil
}

// GetByID returns the call for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*domain.CallEvent, error) {
	c, err := scanCall(r.db.QueryRowContext(ctx, r.dialect.Rebind(getCall), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ListPending returns all pending calls ordered by created_at descending.
func (r *SQLRepository) ListPending(ctx context.Context) ([]*domain.CallEvent, error) {
	return r.list(ctx, listPendingCall, string(domain.CallStatusPending))
}

// ListRecent returns the newest limit calls of any status ordered by created_at descending.
func (r *SQLRepository) ListRecent(ctx context.Context, limit int) ([]*domain.CallEvent, error) {
	if limit <= 0 {
		return []*domain.CallEvent{}, nil
	}
	return r.list(ctx, listRecentCall, limit)
}

// Resolve sets status responded and responded_at now for id, only while the row is pending.
// Returns false without error for unknown or already responded ids.
func (r *SQLRepository) Resolve(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(resolveCall),
		string(domain.CallStatusResponded), r.nowF(), id, string(domain.CallStatusPending),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.CallEvent, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.CallEvent, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCall(row rowScanner) (*domain.CallEvent, error) {
	var (
		c           domain.CallEvent
		message     sql.NullString
		status      string
		respondedAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.TableID, &c.CallType, &message, &status, &c.CreatedAt, &respondedAt); err != nil {
		return nil, err
	}
	c.Status = domain.CallStatus(status)
	if message.Valid {
		c.Message = message.String
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		c.RespondedAt = &t
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
