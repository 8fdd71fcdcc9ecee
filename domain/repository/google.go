package repository

import (
	"context"
	"time"

	"social-ops/domain/model"
)

// TokenBundle is the result of a code exchange or refresh.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
}

// IGoogleOAuth drives the Google/YouTube side of the OAuth flow.
type IGoogleOAuth interface {
	// AuthCodeURL builds the provider authorization URL embedding the
	// anti-forgery state, offline access and forced consent.
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*TokenBundle, error)
	// Refresh trades a refresh token for a fresh access token. The refresh
	// token is reused unless the provider rotates it.
	Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error)
	FetchIdentity(ctx context.Context, accessToken string) (*model.GoogleIdentity, error)
	// ListMyChannels returns the channels owned by the token's identity.
	ListMyChannels(ctx context.Context, accessToken string) ([]model.Channel, error)
	GetChannel(ctx context.Context, accessToken, channelID string) (*model.Channel, error)
	// SetVideoPrivacy reverts an uploaded asset to a non-public state when a
	// scheduled publish is cancelled.
	SetVideoPrivacy(ctx context.Context, accessToken, videoID, privacy string) error
}
