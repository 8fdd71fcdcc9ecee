package repository

import (
	"context"
	"time"

	"social-ops/domain/model"
)

// ISocialAccount defines persistence for per-platform account bindings.
// Upsert keys on (user, platform, account id or name) so re-authorizing the
// same external account updates the existing row instead of duplicating it.
type ISocialAccount interface {
	Create(ctx context.Context, a *model.SocialAccount) error
	GetByID(ctx context.Context, id string) (*model.SocialAccount, error)
	// ListByUser returns the user's accounts, optionally restricted to a
	// platform (empty = all) and to ACTIVE accounts only.
	ListByUser(ctx context.Context, userID string, platform model.Platform, activeOnly bool) ([]*model.SocialAccount, error)
	// Upsert inserts or updates by the uniqueness tuple and returns the row.
	Upsert(ctx context.Context, a *model.SocialAccount) (*model.SocialAccount, error)
	Update(ctx context.Context, a *model.SocialAccount) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error
	// UpdateTokens persists rotated credentials after a refresh.
	UpdateTokens(ctx context.Context, id, accessToken string, refreshToken *string, expiry *time.Time) error
	TouchLastUsed(ctx context.Context, id string) error
}
