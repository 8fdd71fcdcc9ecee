package persistence

import (
	"context"
	"database/sql"
	"time"

	"social-ops/domain/model"
	"social-ops/domain/repository"
)

const socialAccountColumns = `id, user_id, platform, account_id, account_name, profile_url, avatar_url,
	access_token, refresh_token, token_expiry, status, last_used_at, metadata,
	google_account_id, google_email, google_name, created_at, updated_at`

// SocialAccountRepository implements ISocialAccount on PostgreSQL.
type SocialAccountRepository struct{ db *sql.DB }

func NewSocialAccountRepository(db *sql.DB) repository.ISocialAccount {
	return &SocialAccountRepository{db: db}
}

func (r *SocialAccountRepository) Create(ctx context.Context, a *model.SocialAccount) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO social_accounts
		(id, user_id, platform, account_id, account_name, profile_url, avatar_url,
		 access_token, refresh_token, token_expiry, status, last_used_at, metadata,
		 google_account_id, google_email, google_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.UserID, a.Platform, a.AccountID, a.AccountName, a.ProfileURL, a.AvatarURL,
		a.AccessToken, a.RefreshToken, a.TokenExpiry, a.Status, a.LastUsedAt, a.Metadata,
		a.GoogleAccountID, a.GoogleEmail, a.GoogleName, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *SocialAccountRepository) GetByID(ctx context.Context, id string) (*model.SocialAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+socialAccountColumns+` FROM social_accounts WHERE id=$1`, id)
	return scanSocialAccount(row)
}

func (r *SocialAccountRepository) ListByUser(ctx context.Context, userID string, platform model.Platform, activeOnly bool) ([]*model.SocialAccount, error) {
	q := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE user_id=$1`
	args := []interface{}{userID}
	if platform != "" {
		args = append(args, platform)
		q += ` AND platform=$2`
	}
	if activeOnly {
		q += ` AND status='ACTIVE'`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.SocialAccount
	for rows.Next() {
		a, err := scanSocialAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Upsert keys on (user_id, platform, COALESCE(account_id, account_name)) so a
// second bind of the same channel updates the existing row.
func (r *SocialAccountRepository) Upsert(ctx context.Context, a *model.SocialAccount) (*model.SocialAccount, error) {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	row := r.db.QueryRowContext(ctx, `INSERT INTO social_accounts
		(id, user_id, platform, account_id, account_name, profile_url, avatar_url,
		 access_token, refresh_token, token_expiry, status, last_used_at, metadata,
		 google_account_id, google_email, google_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (user_id, platform, COALESCE(account_id, account_name)) DO UPDATE SET
			account_name=EXCLUDED.account_name,
			profile_url=EXCLUDED.profile_url,
			avatar_url=EXCLUDED.avatar_url,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			token_expiry=EXCLUDED.token_expiry,
			status=EXCLUDED.status,
			metadata=EXCLUDED.metadata,
			google_account_id=EXCLUDED.google_account_id,
			google_email=EXCLUDED.google_email,
			google_name=EXCLUDED.google_name,
			updated_at=EXCLUDED.updated_at
		RETURNING `+socialAccountColumns,
		a.ID, a.UserID, a.Platform, a.AccountID, a.AccountName, a.ProfileURL, a.AvatarURL,
		a.AccessToken, a.RefreshToken, a.TokenExpiry, a.Status, a.LastUsedAt, a.Metadata,
		a.GoogleAccountID, a.GoogleEmail, a.GoogleName, a.CreatedAt, a.UpdatedAt)
	return scanSocialAccount(row)
}

func (r *SocialAccountRepository) Update(ctx context.Context, a *model.SocialAccount) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE social_accounts SET
		account_name=$1, profile_url=$2, avatar_url=$3, access_token=$4, refresh_token=$5,
		token_expiry=$6, status=$7, metadata=$8, updated_at=$9
		WHERE id=$10`,
		a.AccountName, a.ProfileURL, a.AvatarURL, a.AccessToken, a.RefreshToken,
		a.TokenExpiry, a.Status, a.Metadata, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SocialAccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM social_accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SocialAccountRepository) UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE social_accounts SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now().UTC(), id)
	return err
}

func (r *SocialAccountRepository) UpdateTokens(ctx context.Context, id, accessToken string, refreshToken *string, expiry *time.Time) error {
	// Refresh token is reused unless the provider rotates it.
	if refreshToken != nil {
		_, err := r.db.ExecContext(ctx, `UPDATE social_accounts SET access_token=$1, refresh_token=$2, token_expiry=$3, updated_at=$4 WHERE id=$5`,
			accessToken, refreshToken, expiry, time.Now().UTC(), id)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE social_accounts SET access_token=$1, token_expiry=$2, updated_at=$3 WHERE id=$4`,
		accessToken, expiry, time.Now().UTC(), id)
	return err
}

func (r *SocialAccountRepository) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE social_accounts SET last_used_at=$1 WHERE id=$2`,
		time.Now().UTC(), id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSocialAccount(row rowScanner) (*model.SocialAccount, error) {
	a := &model.SocialAccount{}
	var accountID, profileURL, avatarURL, refreshToken, metadata, gID, gEmail, gName sql.NullString
	var tokenExpiry, lastUsedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.UserID, &a.Platform, &accountID, &a.AccountName, &profileURL, &avatarURL,
		&a.AccessToken, &refreshToken, &tokenExpiry, &a.Status, &lastUsedAt, &metadata,
		&gID, &gEmail, &gName, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if accountID.Valid {
		v := accountID.String
		a.AccountID = &v
	}
	if profileURL.Valid {
		v := profileURL.String
		a.ProfileURL = &v
	}
	if avatarURL.Valid {
		v := avatarURL.String
		a.AvatarURL = &v
	}
	if refreshToken.Valid {
		v := refreshToken.String
		a.RefreshToken = &v
	}
	if metadata.Valid {
		v := metadata.String
		a.Metadata = &v
	}
	if gID.Valid {
		v := gID.String
		a.GoogleAccountID = &v
	}
	if gEmail.Valid {
		v := gEmail.String
		a.GoogleEmail = &v
	}
	if gName.Valid {
		v := gName.String
		a.GoogleName = &v
	}
	if tokenExpiry.Valid {
		t := tokenExpiry.Time
		a.TokenExpiry = &t
	}
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		a.LastUsedAt = &t
	}
	return a, nil
}
