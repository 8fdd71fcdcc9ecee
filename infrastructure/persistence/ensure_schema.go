package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSocialAccountSchema creates the social_accounts table and its
// uniqueness index. Safe to call at startup.
func EnsureSocialAccountSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS social_accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			account_id TEXT,
			account_name TEXT NOT NULL,
			profile_url TEXT,
			avatar_url TEXT,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT,
			token_expiry TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			last_used_at TIMESTAMPTZ,
			metadata TEXT,
			google_account_id TEXT,
			google_email TEXT,
			google_name TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		// one row per (user, platform, external account); name stands in when
		// the platform id is not bound yet
		`CREATE UNIQUE INDEX IF NOT EXISTS social_accounts_identity_idx
			ON social_accounts (user_id, platform, COALESCE(account_id, account_name))`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensuring social account schema failed: %w", err)
		}
	}
	return nil
}

// EnsurePublishSchema creates the publish task tables. Safe to call at
// startup.
func EnsurePublishSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS publish_tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			video_url TEXT,
			cover_url TEXT,
			series_id TEXT,
			platforms TEXT NOT NULL,
			publish_mode TEXT NOT NULL DEFAULT 'MANUAL',
			scheduled_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS platform_contents (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES publish_tasks(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			title TEXT,
			description TEXT,
			hashtags TEXT,
			privacy TEXT,
			category_id TEXT,
			playlist_id TEXT,
			thumbnail TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (task_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS publish_records (
			id BIGSERIAL PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES publish_tasks(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			status TEXT NOT NULL,
			external_id TEXT,
			external_url TEXT,
			error_message TEXT,
			published_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS task_accounts (
			id BIGSERIAL PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES publish_tasks(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			account_id TEXT NOT NULL REFERENCES social_accounts(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (task_id, platform)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensuring publish schema failed: %w", err)
		}
	}
	return nil
}
