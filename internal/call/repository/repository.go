package repository

import (
	"context"

	"restaurant-bridge/backend/internal/call/domain"
)

// Repository defines persistence for staff call events.
type Repository interface {
	// Append inserts c as a new pending call and sets c.ID, c.Status and c.CreatedAt.
	Append(ctx context.Context, c *domain.CallEvent) error
	// GetByID returns the call for id, or nil if not found.
	GetByID(ctx context.Context, id int64) (*domain.CallEvent, error)
	// ListPending returns every pending call, newest first.
	ListPending(ctx context.Context) ([]*domain.CallEvent, error)
	// ListRecent returns the newest limit calls regardless of status.
	ListRecent(ctx context.Context, limit int) ([]*domain.CallEvent, error)
	// Resolve marks id responded if it is still pending. Reports whether a row changed.
	Resolve(ctx context.Context, id int64) (bool, error)
}
