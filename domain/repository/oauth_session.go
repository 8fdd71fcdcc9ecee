package repository

import (
	"context"
	"time"

	"social-ops/domain/model"
)

// PendingSelection is the token bundle carried between the OAuth callback
// and the channel-confirmation request when a Google identity owns several
// channels. It lives server-side under a random handle with a short TTL.
type PendingSelection struct {
	UserID       string           `json:"user_id"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenExpiry  *time.Time       `json:"token_expiry,omitempty"`
	Identity     model.GoogleIdentity `json:"identity"`
	Channels     []model.Channel  `json:"channels"`
}

// IOAuthSession stores the short-lived cross-request state of the OAuth
// flow: the anti-forgery state (bound to a user) and pending multi-channel
// selections.
type IOAuthSession interface {
	SaveState(ctx context.Context, state, userID string, ttl time.Duration) error
	// ConsumeState returns the bound user id and deletes the state; a
	// missing or expired state returns an error.
	ConsumeState(ctx context.Context, state string) (string, error)

	SaveSelection(ctx context.Context, handle string, sel *PendingSelection, ttl time.Duration) error
	GetSelection(ctx context.Context, handle string) (*PendingSelection, error)
	DeleteSelection(ctx context.Context, handle string) error
}
