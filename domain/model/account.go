package model

import "time"

// Platform identifies an external distribution target.
type Platform string

const (
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformThreads   Platform = "THREADS"
	PlatformYouTube   Platform = "YOUTUBE"
)

// ValidPlatform reports whether p is one of the supported platforms.
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformInstagram, PlatformThreads, PlatformYouTube:
		return true
	}
	return false
}

// AccountStatus is the lifecycle status of a social account binding.
type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountExpired  AccountStatus = "EXPIRED"
	AccountDisabled AccountStatus = "DISABLED"
	AccountPending  AccountStatus = "PENDING"
)

// SocialAccount binds a user to one external account on a platform.
// AccountID is nil when a Google identity is linked but owns no channel yet.
// Access and refresh tokens are stored encrypted (iv:authTag:ciphertext hex).
type SocialAccount struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Platform        Platform      `json:"platform"`
	AccountID       *string       `json:"account_id,omitempty"`
	AccountName     string        `json:"account_name"`
	ProfileURL      *string       `json:"profile_url,omitempty"`
	AvatarURL       *string       `json:"avatar_url,omitempty"`
	AccessToken     string        `json:"-"`
	RefreshToken    *string       `json:"-"`
	TokenExpiry     *time.Time    `json:"token_expiry,omitempty"`
	Status          AccountStatus `json:"status"`
	LastUsedAt      *time.Time    `json:"last_used_at,omitempty"`
	Metadata        *string       `json:"metadata,omitempty"` // JSON blob: channel stats snapshot
	GoogleAccountID *string       `json:"google_account_id,omitempty"`
	GoogleEmail     *string       `json:"google_email,omitempty"`
	GoogleName      *string       `json:"google_name,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Publishable reports whether the account may be selected as a publish target.
func (a *SocialAccount) Publishable() bool {
	return a.Status != AccountDisabled && a.Status != AccountExpired
}

// Channel is a YouTube publishing destination discovered during OAuth binding.
type Channel struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	SubscriberCount uint64 `json:"subscriber_count"`
	VideoCount      uint64 `json:"video_count"`
	ViewCount       uint64 `json:"view_count"`
}

// ChannelStats is the metadata snapshot stored on a YouTube account.
type ChannelStats struct {
	SubscriberCount uint64    `json:"subscriber_count"`
	VideoCount      uint64    `json:"video_count"`
	ViewCount       uint64    `json:"view_count"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// GoogleIdentity is the upstream identity behind a Google-backed account.
type GoogleIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
