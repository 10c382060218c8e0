package repository

import (
	"context"

	"restaurant-bridge/backend/internal/usage/domain"
)

// Repository defines persistence and read-side aggregation for usage logs.
type Repository interface {
	Append(ctx context.Context, e *domain.Entry) error
	CountByAction(ctx context.Context) ([]domain.Count, error)
	CountByLanguage(ctx context.Context) ([]domain.Count, error)
	// TopPhrases returns the limit most tapped phrases; ties are ordered by first occurrence.
	TopPhrases(ctx context.Context, limit int) ([]domain.Count, error)
}
